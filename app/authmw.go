package app

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"obratools/config"
	"obratools/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims es el payload del token: identidad más el rol para autorizar.
type Claims struct {
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Rol    string `json:"rol"`
	jwt.RegisteredClaims
}

// SessionChecker consulta si un token sigue vigente (no revocado).
type SessionChecker interface {
	Alive(ctx context.Context, jti string) (bool, error)
}

// NewToken firma un token para el usuario y devuelve también el jti con el
// que se registra la sesión en Redis.
func NewToken(cfg config.Config, u *models.Usuario, rol string) (token, jti string, err error) {
	jti = uuid.NewString()
	now := time.Now()
	claims := Claims{
		Nombre: u.Nombre,
		Email:  u.Email,
		Rol:    rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.JWTExpires)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.JWTSecret)
	return token, jti, err
}

// AuthRequired valida el bearer token y deja la identidad en el contexto.
// Un token con firma válida pero sesión revocada también se rechaza.
func AuthRequired(secret []byte, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "token requerido"})
			return
		}

		var claims Claims
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "token inválido o expirado"})
			return
		}

		alive, err := sessions.Alive(c.Request.Context(), claims.ID)
		if err != nil || !alive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "sesión revocada"})
			return
		}

		uid, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "token inválido o expirado"})
			return
		}

		c.Set("usuarioID", uint(uid))
		c.Set("nombre", claims.Nombre)
		c.Set("email", claims.Email)
		c.Set("rol", claims.Rol)
		c.Set("jti", claims.ID)
		c.Next()
	}
}

// RequireRol corta con 403 si el rol del token no está en la lista.
func RequireRol(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rol := c.GetString("rol")
		for _, r := range roles {
			if rol == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "permisos insuficientes"})
	}
}

// UsuarioID lee la identidad que dejó AuthRequired.
func UsuarioID(c *gin.Context) uint {
	v, _ := c.Get("usuarioID")
	id, _ := v.(uint)
	return id
}
