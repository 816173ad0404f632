package db

import (
	"context"
	"strings"

	"obratools/apperr"
	"obratools/models"

	"gorm.io/gorm"
)

// UsuarioRow agrega el nombre del rol a los datos visibles del usuario.
type UsuarioRow struct {
	ID     uint   `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	RolID  uint   `json:"rol_id"`
	Activo bool   `json:"activo"`
	Rol    string `json:"rol"`
}

type UsuariosFilter struct {
	Q      string
	RolID  uint
	Activo *bool
}

func (r *Repo) usuarioBase(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("usuarios u").
		Select("u.id, u.nombre, u.email, u.rol_id, u.activo, r.nombre AS rol").
		Joins("JOIN roles r ON r.id = u.rol_id")
}

func (r *Repo) ListUsuarios(ctx context.Context, f UsuariosFilter) ([]UsuarioRow, error) {
	q := r.usuarioBase(ctx)
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(u.nombre) LIKE ? OR LOWER(u.email) LIKE ?", like, like)
	}
	if f.RolID > 0 {
		q = q.Where("u.rol_id = ?", f.RolID)
	}
	if f.Activo != nil {
		q = q.Where("u.activo = ?", *f.Activo)
	}
	rows := []UsuarioRow{}
	if err := q.Order("u.nombre").Scan(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

func (r *Repo) FindUsuarioRow(ctx context.Context, id uint) (*UsuarioRow, error) {
	var row UsuarioRow
	res := r.usuarioBase(ctx).Where("u.id = ?", id).Scan(&row)
	if res.Error != nil {
		return nil, apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFoundf("usuario no encontrado")
	}
	return &row, nil
}

// FindUsuarioPorEmail devuelve el usuario con su rol; lo usa el login, por
// eso incluye el hash.
func (r *Repo) FindUsuarioPorEmail(ctx context.Context, email string) (*models.Usuario, string, error) {
	var u models.Usuario
	if err := r.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error; err != nil {
		return nil, "", apperr.FromGorm(err, "usuario no encontrado", "")
	}
	var rol models.Rol
	if err := r.DB.WithContext(ctx).First(&rol, "id = ?", u.RolID).Error; err != nil {
		return nil, "", apperr.Internal(err)
	}
	return &u, rol.Nombre, nil
}

func (r *Repo) RolExists(ctx context.Context, rolID uint) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Rol{}).
		Where("id = ?", rolID).Count(&n).Error; err != nil {
		return false, apperr.Internal(err)
	}
	return n > 0, nil
}

func (r *Repo) ListRoles(ctx context.Context) ([]models.Rol, error) {
	var roles []models.Rol
	if err := r.DB.WithContext(ctx).Order("nombre").Find(&roles).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return roles, nil
}

func (r *Repo) CreateUsuario(ctx context.Context, u *models.Usuario) (*UsuarioRow, error) {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, apperr.FromGorm(err, "", "el email ya está registrado")
	}
	return r.FindUsuarioRow(ctx, u.ID)
}

func (r *Repo) UpdateUsuarioCampos(ctx context.Context, id uint, campos map[string]any) (*UsuarioRow, error) {
	res := r.DB.WithContext(ctx).Model(&models.Usuario{}).
		Where("id = ?", id).
		Updates(campos)
	if res.Error != nil {
		return nil, apperr.FromGorm(res.Error, "usuario no encontrado", "el email ya está registrado")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFoundf("usuario no encontrado")
	}
	return r.FindUsuarioRow(ctx, id)
}

func (r *Repo) SetUsuarioPassword(ctx context.Context, id uint, hash string) error {
	res := r.DB.WithContext(ctx).Model(&models.Usuario{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("usuario no encontrado")
	}
	return nil
}

func (r *Repo) SetUsuarioActivo(ctx context.Context, id uint, activo bool) error {
	res := r.DB.WithContext(ctx).Model(&models.Usuario{}).
		Where("id = ?", id).
		Update("activo", activo)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("usuario no encontrado")
	}
	return nil
}

func (r *Repo) DeleteUsuario(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Usuario{}, id)
	if res.Error != nil {
		return apperr.FromGorm(res.Error, "usuario no encontrado", "el usuario tiene registros asociados")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("usuario no encontrado")
	}
	return nil
}

// ListTrabajadores lista los usuarios activos con rol trabajador; es la
// lista que el capataz usa al armar un préstamo.
func (r *Repo) ListTrabajadores(ctx context.Context) ([]UsuarioRow, error) {
	rows := []UsuarioRow{}
	err := r.usuarioBase(ctx).
		Where("u.activo = ? AND r.nombre = ?", true, models.RolTrabajador).
		Order("u.nombre").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}
