package models

import "time"

// Estados del ciclo de vida de una herramienta. DISPONIBLE y NO_DISPONIBLE
// son los únicos alcanzables por el flujo prestar/devolver; el resto son
// cambios administrativos.
const (
	EstadoDisponible   = "DISPONIBLE"
	EstadoNoDisponible = "NO_DISPONIBLE"
	EstadoMantencion   = "MANTENCION"
	EstadoDanada       = "DANADA"
	EstadoBaja         = "BAJA"
)

var EstadosHerramienta = []string{
	EstadoDisponible,
	EstadoNoDisponible,
	EstadoMantencion,
	EstadoDanada,
	EstadoBaja,
}

func EstadoHerramientaValido(estado string) bool {
	for _, e := range EstadosHerramienta {
		if e == estado {
			return true
		}
	}
	return false
}

// Prestable indica si la herramienta puede entrar a un préstamo nuevo.
func Prestable(estado string) bool { return estado == EstadoDisponible }

// Bloqueada indica los estados que impiden el préstamo de forma definitiva.
func Bloqueada(estado string) bool {
	return estado == EstadoDanada || estado == EstadoBaja
}

type Categoria struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Nombre string `gorm:"size:120;not null" json:"nombre"`
	Slug   string `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Activa bool   `gorm:"not null;default:true" json:"activa"`
}

type Herramienta struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	CategoriaID   uint     `gorm:"index;not null" json:"categoria_id"`
	Codigo        string   `gorm:"size:60;uniqueIndex;not null" json:"codigo"`
	Nombre        string   `gorm:"size:200;not null" json:"nombre"`
	Descripcion   *string  `gorm:"size:500" json:"descripcion,omitempty"`
	Ubicacion     *string  `gorm:"size:200" json:"ubicacion,omitempty"`
	ValorEstimado *float64 `json:"valor_estimado,omitempty"`
	Estado        string   `gorm:"size:20;not null;default:'DISPONIBLE'" json:"estado"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Categoria) TableName() string   { return "categorias_herramienta" }
func (Herramienta) TableName() string { return "herramientas" }
