package models

import "time"

const PrestamoTable = "prestamos"
const PrestamoItemTable = "prestamo_items"

const (
	PrestamoActivo  = "ACTIVO"
	PrestamoParcial = "PARCIAL"
	PrestamoCerrado = "CERRADO"
)

const (
	DevolucionPendiente = "PENDIENTE"
	DevolucionOK        = "OK"
)

type Prestamo struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CapatazID    uint       `gorm:"index;not null" json:"capataz_id"`
	TrabajadorID uint       `gorm:"index;not null" json:"trabajador_id"`
	FechaEntrada time.Time  `gorm:"index;not null" json:"fecha_entrada"`
	FechaSalida  *time.Time `json:"fecha_salida,omitempty"`
	Estado       string     `gorm:"size:20;not null;default:'ACTIVO'" json:"estado"`

	Items []PrestamoItem `gorm:"foreignKey:PrestamoID" json:"items,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PrestamoItem struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	PrestamoID       uint       `gorm:"index;not null" json:"prestamo_id"`
	HerramientaID    uint       `gorm:"index;not null" json:"herramienta_id"`
	EstadoDevolucion string     `gorm:"size:20;not null;default:'PENDIENTE'" json:"estado_devolucion"`
	HoraEntrada      *time.Time `gorm:"index" json:"hora_entrada,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Prestamo) TableName() string     { return PrestamoTable }
func (PrestamoItem) TableName() string { return PrestamoItemTable }

// EstadoDePrestamo deriva el estado de un préstamo a partir de sus items:
// todos pendientes = ACTIVO, algunos devueltos = PARCIAL, ninguno pendiente
// = CERRADO. Es la única regla de cierre; la usan todos los caminos de
// devolución.
func EstadoDePrestamo(pendientes, total int) string {
	switch {
	case total == 0 || pendientes == total:
		return PrestamoActivo
	case pendientes == 0:
		return PrestamoCerrado
	default:
		return PrestamoParcial
	}
}
