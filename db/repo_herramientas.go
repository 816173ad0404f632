package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"obratools/apperr"
	"obratools/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// HerramientaRow es la fila que consumen las vistas: la herramienta más el
// nombre de su categoría.
type HerramientaRow struct {
	ID            uint      `json:"id"`
	CategoriaID   uint      `json:"categoria_id"`
	Codigo        string    `json:"codigo"`
	Nombre        string    `json:"nombre"`
	Descripcion   *string   `json:"descripcion,omitempty"`
	Ubicacion     *string   `json:"ubicacion,omitempty"`
	ValorEstimado *float64  `json:"valor_estimado,omitempty"`
	Estado        string    `json:"estado"`
	Categoria     *string   `json:"categoria,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HerramientasFilter enumera los filtros admitidos por el listado admin.
// Cada campo se traduce a una condición parametrizada; nunca se concatena
// texto del cliente dentro del SQL.
type HerramientasFilter struct {
	Estado      string
	Q           string
	CategoriaID uint
}

func (r *Repo) herramientaBase(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("herramientas h").
		Select(`h.id, h.categoria_id, h.codigo, h.nombre, h.descripcion,
			h.ubicacion, h.valor_estimado, h.estado, h.created_at, h.updated_at,
			c.nombre AS categoria`).
		Joins("LEFT JOIN categorias_herramienta c ON c.id = h.categoria_id")
}

func (r *Repo) ListHerramientas(ctx context.Context, f HerramientasFilter) ([]HerramientaRow, error) {
	q := r.herramientaBase(ctx)
	if f.Estado != "" && models.EstadoHerramientaValido(f.Estado) {
		q = q.Where("h.estado = ?", f.Estado)
	}
	if f.CategoriaID > 0 {
		q = q.Where("h.categoria_id = ?", f.CategoriaID)
	}
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(h.codigo) LIKE ? OR LOWER(h.nombre) LIKE ?", like, like)
	}
	rows := []HerramientaRow{}
	if err := q.Order("h.nombre").Scan(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

func (r *Repo) FindHerramientaRow(ctx context.Context, id uint) (*HerramientaRow, error) {
	var row HerramientaRow
	res := r.herramientaBase(ctx).Where("h.id = ?", id).Scan(&row)
	if res.Error != nil {
		return nil, apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFoundf("herramienta no encontrada")
	}
	return &row, nil
}

func (r *Repo) CreateHerramienta(ctx context.Context, h *models.Herramienta) (*HerramientaRow, error) {
	if err := r.DB.WithContext(ctx).Create(h).Error; err != nil {
		return nil, apperr.FromGorm(err, "herramienta no encontrada", "el código ya existe, debe ser único")
	}
	return r.FindHerramientaRow(ctx, h.ID)
}

// UpdateHerramientaCampos aplica un subconjunto de {codigo, nombre,
// categoria_id}; el controlador arma el mapa a partir del body.
func (r *Repo) UpdateHerramientaCampos(ctx context.Context, id uint, campos map[string]any) (*HerramientaRow, error) {
	res := r.DB.WithContext(ctx).Model(&models.Herramienta{}).
		Where("id = ?", id).
		Updates(campos)
	if res.Error != nil {
		return nil, apperr.FromGorm(res.Error, "herramienta no encontrada", "el código ya existe, debe ser único")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFoundf("herramienta no encontrada")
	}
	return r.FindHerramientaRow(ctx, id)
}

// SetEstadoHerramienta cambia el estado y deja rastro en la bitácora de
// movimientos. La bitácora es best-effort: su fallo se loguea y se traga.
func (r *Repo) SetEstadoHerramienta(ctx context.Context, id uint, estado, detalle string, actorID uint) (*HerramientaRow, error) {
	var prev models.Herramienta
	if err := r.DB.WithContext(ctx).First(&prev, "id = ?", id).Error; err != nil {
		return nil, apperr.FromGorm(err, "herramienta no encontrada", "")
	}

	res := r.DB.WithContext(ctx).Model(&models.Herramienta{}).
		Where("id = ?", id).
		Update("estado", estado)
	if res.Error != nil {
		return nil, apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFoundf("herramienta no encontrada")
	}

	tipo := models.MovimientoAjuste
	switch estado {
	case models.EstadoMantencion:
		tipo = models.MovimientoMantencion
	case models.EstadoBaja:
		tipo = models.MovimientoBaja
	}
	if detalle == "" {
		detalle = fmt.Sprintf("Cambio de %s a %s", prev.Estado, estado)
	}
	r.RegistrarMovimiento(ctx, id, tipo, actorID, detalle)

	return r.FindHerramientaRow(ctx, id)
}

// DeleteHerramienta intenta el borrado físico; si hay préstamos que la
// referencian devuelve conflicto y el cliente debe caer a BAJA lógica.
func (r *Repo) DeleteHerramienta(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Herramienta{}, id)
	if res.Error != nil {
		err := apperr.FromGorm(res.Error, "herramienta no encontrada", "")
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind == apperr.KindConflict {
			return apperr.Conflictf("no se pudo eliminar: tiene préstamos asociados, usar BAJA lógica")
		}
		return err
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("herramienta no encontrada")
	}
	return nil
}

// BuscarHerramientas es el listado del capataz: búsqueda simple por código,
// nombre o descripción.
func (r *Repo) BuscarHerramientas(ctx context.Context, buscar string) ([]HerramientaRow, error) {
	q := r.herramientaBase(ctx)
	if s := strings.TrimSpace(buscar); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(h.nombre) LIKE ? OR LOWER(h.descripcion) LIKE ? OR LOWER(h.codigo) LIKE ?", like, like, like)
	}
	rows := []HerramientaRow{}
	if err := q.Order("h.nombre").Scan(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

func (r *Repo) ListHerramientasDanadas(ctx context.Context) ([]HerramientaRow, error) {
	rows := []HerramientaRow{}
	err := r.herramientaBase(ctx).
		Where("h.estado IN ?", []string{models.EstadoDanada, models.EstadoMantencion, models.EstadoBaja}).
		Order("h.estado DESC, h.nombre ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

func (r *Repo) ListCategorias(ctx context.Context) ([]models.Categoria, error) {
	var cats []models.Categoria
	err := r.DB.WithContext(ctx).
		Where("activa = ?", true).
		Order("nombre").
		Find(&cats).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return cats, nil
}

// RegistrarMovimiento anota en la bitácora; nunca devuelve error al caller.
func (r *Repo) RegistrarMovimiento(ctx context.Context, herramientaID uint, tipo string, actorID uint, detalle string) {
	m := models.Movimiento{
		HerramientaID: herramientaID,
		Tipo:          tipo,
		CreadoPor:     actorID,
		Detalle:       detalle,
	}
	if err := r.DB.WithContext(ctx).Create(&m).Error; err != nil {
		log.Warn().Err(err).Uint("herramienta_id", herramientaID).Msg("movimiento no registrado")
	}
}
