package db

import (
	"context"

	"obratools/models"

	"gorm.io/gorm"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

func (r *Repo) TouchUsuarioLogin(ctx context.Context, usuarioID uint) error {
	// hora del servidor de base de datos, y el contador sin carrera
	return r.DB.WithContext(ctx).Model(&models.Usuario{}).
		Where("id = ?", usuarioID).
		Updates(map[string]interface{}{
			"last_login_at": gorm.Expr("NOW()"),
			"last_seen_at":  gorm.Expr("NOW()"),
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
		}).Error
}

func (r *Repo) TouchUsuarioSeen(ctx context.Context, usuarioID uint) error {
	return r.DB.WithContext(ctx).Model(&models.Usuario{}).
		Where("id = ?", usuarioID).
		Update("last_seen_at", gorm.Expr("NOW()")).Error
}
