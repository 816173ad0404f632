package controllers

import (
	"context"
	"net/http"
	"strings"

	"obratools/app"
	"obratools/apperr"
	"obratools/config"
	"obratools/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthStore interface {
	FindUsuarioPorEmail(ctx context.Context, email string) (*models.Usuario, string, error)
	TouchUsuarioLogin(ctx context.Context, usuarioID uint) error
}

type SessionManager interface {
	Create(ctx context.Context, jti string, usuarioID uint, rol string) error
	Delete(ctx context.Context, jti string) error
}

type AuthController struct {
	Store    AuthStore
	Sessions SessionManager
	Cfg      config.Config
}

func NewAuthController(store AuthStore, sessions SessionManager, cfg config.Config) *AuthController {
	return &AuthController{Store: store, Sessions: sessions, Cfg: cfg}
}

// Login intercambia email+contraseña por un bearer token.
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Validationf("faltan email o contraseña"))
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Password = strings.TrimSpace(in.Password)
	if in.Email == "" || in.Password == "" {
		apperr.Abort(c, apperr.Validationf("faltan email o contraseña"))
		return
	}

	u, rol, err := ac.Store.FindUsuarioPorEmail(c.Request.Context(), in.Email)
	if err != nil {
		// un email desconocido responde igual que una contraseña mala
		apperr.Abort(c, apperr.Authf("credenciales inválidas"))
		return
	}
	if !u.Activo {
		apperr.Abort(c, apperr.Forbiddenf("usuario inactivo"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		apperr.Abort(c, apperr.Authf("credenciales inválidas"))
		return
	}

	token, jti, err := app.NewToken(ac.Cfg, u, rol)
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	if err := ac.Sessions.Create(c.Request.Context(), jti, u.ID, rol); err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	_ = ac.Store.TouchUsuarioLogin(c.Request.Context(), u.ID)

	c.JSON(http.StatusOK, app.H{
		"ok":     true,
		"id":     u.ID,
		"nombre": u.Nombre,
		"email":  u.Email,
		"rol":    rol,
		"token":  token,
	})
}

// Logout revoca la sesión del token presentado.
func (ac *AuthController) Logout(c *gin.Context) {
	jti := c.GetString("jti")
	if jti != "" {
		_ = ac.Sessions.Delete(c.Request.Context(), jti)
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
