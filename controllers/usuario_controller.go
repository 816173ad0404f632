package controllers

import (
	"context"
	"net/http"

	"obratools/app"
	"obratools/apperr"
	"obratools/db"
	"obratools/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type UsuarioStore interface {
	ListUsuarios(ctx context.Context, f db.UsuariosFilter) ([]db.UsuarioRow, error)
	FindUsuarioRow(ctx context.Context, id uint) (*db.UsuarioRow, error)
	CreateUsuario(ctx context.Context, u *models.Usuario) (*db.UsuarioRow, error)
	UpdateUsuarioCampos(ctx context.Context, id uint, campos map[string]any) (*db.UsuarioRow, error)
	SetUsuarioPassword(ctx context.Context, id uint, hash string) error
	SetUsuarioActivo(ctx context.Context, id uint, activo bool) error
	DeleteUsuario(ctx context.Context, id uint) error
	RolExists(ctx context.Context, rolID uint) (bool, error)
	ListRoles(ctx context.Context) ([]models.Rol, error)
	ListTrabajadores(ctx context.Context) ([]db.UsuarioRow, error)
}

// SessionRevoker invalida las sesiones de un usuario cuando el admin lo
// desactiva o elimina.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, usuarioID uint) error
}

type UsuarioController struct {
	Store    UsuarioStore
	Sessions SessionRevoker
}

func NewUsuarioController(store UsuarioStore, sessions SessionRevoker) *UsuarioController {
	return &UsuarioController{Store: store, Sessions: sessions}
}

func (uc *UsuarioController) List(c *gin.Context) {
	f := db.UsuariosFilter{
		Q:     c.Query("q"),
		RolID: queryUint(c, "rol_id"),
	}
	if v := c.Query("activo"); v != "" {
		activo := v == "1" || v == "true"
		f.Activo = &activo
	}
	rows, err := uc.Store.ListUsuarios(c.Request.Context(), f)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "data": rows})
}

func (uc *UsuarioController) Create(c *gin.Context) {
	var in struct {
		Nombre   string `json:"nombre"`
		Email    string `json:"email"`
		Password string `json:"password"`
		RolID    uint   `json:"rol_id"`
		Activo   *bool  `json:"activo"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Validationf("cuerpo inválido"))
		return
	}
	if in.Nombre == "" || in.Email == "" || in.Password == "" || in.RolID == 0 {
		apperr.Abort(c, apperr.Validationf("faltan campos: nombre, email, password, rol_id"))
		return
	}
	ok, err := uc.Store.RolExists(c.Request.Context(), in.RolID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	if !ok {
		apperr.Abort(c, apperr.Validationf("el rol indicado no existe"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	activo := true
	if in.Activo != nil {
		activo = *in.Activo
	}
	u := &models.Usuario{
		Nombre:       in.Nombre,
		Email:        in.Email,
		PasswordHash: string(hash),
		RolID:        in.RolID,
		Activo:       activo,
	}
	row, err := uc.Store.CreateUsuario(c.Request.Context(), u)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"ok": true, "data": row})
}

func (uc *UsuarioController) Update(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var in struct {
		Nombre string `json:"nombre"`
		Email  string `json:"email"`
		RolID  uint   `json:"rol_id"`
		Activo *bool  `json:"activo"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Validationf("cuerpo inválido"))
		return
	}
	if id == app.UsuarioID(c) && in.Activo != nil && !*in.Activo {
		apperr.Abort(c, apperr.Validationf("no puedes desactivarte a ti mismo"))
		return
	}

	campos := map[string]any{}
	if in.Nombre != "" {
		campos["nombre"] = in.Nombre
	}
	if in.Email != "" {
		campos["email"] = in.Email
	}
	if in.RolID > 0 {
		exists, err := uc.Store.RolExists(c.Request.Context(), in.RolID)
		if err != nil {
			apperr.Abort(c, err)
			return
		}
		if !exists {
			apperr.Abort(c, apperr.Validationf("el rol indicado no existe"))
			return
		}
		campos["rol_id"] = in.RolID
	}
	if in.Activo != nil {
		campos["activo"] = *in.Activo
	}
	if len(campos) == 0 {
		apperr.Abort(c, apperr.Validationf("no hay campos para actualizar"))
		return
	}

	row, err := uc.Store.UpdateUsuarioCampos(c.Request.Context(), id, campos)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	if in.Activo != nil && !*in.Activo {
		_ = uc.Sessions.RevokeAllForUser(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "data": row})
}

func (uc *UsuarioController) SetPassword(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var in struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Password == "" {
		apperr.Abort(c, apperr.Validationf("falta password"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	if err := uc.Store.SetUsuarioPassword(c.Request.Context(), id, string(hash)); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (uc *UsuarioController) SetEstado(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if id == app.UsuarioID(c) {
		apperr.Abort(c, apperr.Validationf("no puedes cambiar tu propio estado"))
		return
	}
	var in struct {
		Activo bool `json:"activo"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Validationf("cuerpo inválido"))
		return
	}
	if err := uc.Store.SetUsuarioActivo(c.Request.Context(), id, in.Activo); err != nil {
		apperr.Abort(c, err)
		return
	}
	if !in.Activo {
		_ = uc.Sessions.RevokeAllForUser(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (uc *UsuarioController) Delete(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if id == app.UsuarioID(c) {
		apperr.Abort(c, apperr.Validationf("no puedes eliminarte a ti mismo"))
		return
	}
	if err := uc.Store.DeleteUsuario(c.Request.Context(), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	_ = uc.Sessions.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (uc *UsuarioController) Roles(c *gin.Context) {
	roles, err := uc.Store.ListRoles(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "data": roles})
}

// PorRol es la lista que usa el capataz: usuarios activos, opcionalmente
// filtrados por rol.
func (uc *UsuarioController) PorRol(c *gin.Context) {
	activo := true
	f := db.UsuariosFilter{RolID: queryUint(c, "rol"), Activo: &activo}
	rows, err := uc.Store.ListUsuarios(c.Request.Context(), f)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (uc *UsuarioController) Trabajadores(c *gin.Context) {
	rows, err := uc.Store.ListTrabajadores(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
