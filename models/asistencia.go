package models

import "time"

type Asistencia struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UsuarioID   uint      `gorm:"index;not null" json:"usuario_id"`
	Fecha       string    `gorm:"size:10;index;not null" json:"fecha"` // YYYY-MM-DD
	HoraEntrada string    `gorm:"size:8;not null" json:"hora_entrada"` // HH:MM:SS
	HoraSalida  *string   `gorm:"size:8" json:"hora_salida,omitempty"`
	Estado      string    `gorm:"size:20;not null;default:'PRESENTE'" json:"estado"`
	TurnoID     uint      `gorm:"not null;default:1" json:"turno_id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Asistencia) TableName() string { return "asistencias" }

// Tipos de movimiento registrados al cambiar el estado de una herramienta.
const (
	MovimientoAjuste     = "AJUSTE"
	MovimientoMantencion = "MANTENCION"
	MovimientoBaja       = "BAJA"
)

// Movimiento es la bitácora de cambios de estado. Su escritura es best-effort:
// un fallo aquí nunca revierte el cambio de estado que lo originó.
type Movimiento struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	HerramientaID uint      `gorm:"index;not null" json:"herramienta_id"`
	Tipo          string    `gorm:"size:20;not null" json:"tipo"`
	CreadoPor     uint      `json:"creado_por"`
	Detalle       string    `gorm:"size:255" json:"detalle"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Movimiento) TableName() string { return "movimientos_herramienta" }
