package models

import "time"

const (
	RolAdmin      = "admin"
	RolCapataz    = "capataz"
	RolTrabajador = "trabajador"
)

type Rol struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Nombre string `gorm:"size:40;uniqueIndex;not null" json:"nombre"`
}

type Usuario struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Nombre       string `gorm:"size:120;not null" json:"nombre"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`
	RolID        uint   `gorm:"index;not null" json:"rol_id"`
	Activo       bool   `gorm:"not null;default:true" json:"activo"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Rol) TableName() string     { return "roles" }
func (Usuario) TableName() string { return "usuarios" }
