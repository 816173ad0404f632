package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"obratools/apperr"
	"obratools/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CrearPrestamo registra un préstamo del capataz al trabajador con el lote
// de herramientas indicado. Todo ocurre en una transacción con las filas de
// herramienta bloqueadas: la disponibilidad se re-verifica bajo el lock, así
// dos requests concurrentes no pueden prestar la misma herramienta.
func (r *Repo) CrearPrestamo(ctx context.Context, capatazID, trabajadorID uint, herramientaIDs []uint) (*models.Prestamo, error) {
	ids := dedupe(herramientaIDs)
	if len(ids) == 0 {
		return nil, apperr.Validationf("datos incompletos para crear el préstamo")
	}

	var prestamo *models.Prestamo
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var hs []models.Herramienta
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Find(&hs).Error; err != nil {
			return apperr.Internal(err)
		}
		if len(hs) != len(ids) {
			return apperr.NotFoundf("alguna herramienta no existe")
		}

		if ofensoras := seleccionarOfensoras(hs); len(ofensoras) > 0 {
			return apperr.State(mensajeNoPrestables(ofensoras), ofensoras)
		}

		now := time.Now()
		p := &models.Prestamo{
			CapatazID:    capatazID,
			TrabajadorID: trabajadorID,
			FechaEntrada: now,
			Estado:       models.PrestamoActivo,
		}
		if err := tx.Create(p).Error; err != nil {
			return apperr.Internal(err)
		}

		items := make([]models.PrestamoItem, len(ids))
		for i, hid := range ids {
			items[i] = models.PrestamoItem{
				PrestamoID:       p.ID,
				HerramientaID:    hid,
				EstadoDevolucion: models.DevolucionPendiente,
			}
		}
		if err := tx.Create(&items).Error; err != nil {
			// el índice parcial único salta si otro préstamo dejó un item abierto
			return apperr.FromGorm(err, "", "alguna herramienta ya tiene un préstamo abierto")
		}

		if err := tx.Model(&models.Herramienta{}).
			Where("id IN ?", ids).
			Update("estado", models.EstadoNoDisponible).Error; err != nil {
			return apperr.Internal(err)
		}

		p.Items = items
		prestamo = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prestamo, nil
}

// seleccionarOfensoras filtra las herramientas que bloquean el préstamo.
// Cualquier ofensora rechaza el lote completo.
func seleccionarOfensoras(hs []models.Herramienta) []apperr.Ofensora {
	var ofensoras []apperr.Ofensora
	for _, h := range hs {
		if !models.Prestable(h.Estado) {
			ofensoras = append(ofensoras, apperr.Ofensora{ID: h.ID, Nombre: h.Nombre, Estado: h.Estado})
		}
	}
	return ofensoras
}

func mensajeNoPrestables(ofensoras []apperr.Ofensora) string {
	detalles := make([]string, len(ofensoras))
	for i, o := range ofensoras {
		detalles[i] = fmt.Sprintf("%s (%s)", o.Nombre, o.Estado)
	}
	return "No se pueden prestar herramientas no disponibles: " + strings.Join(detalles, ", ")
}

// DevolucionPar identifica un item a devolver dentro de un lote.
type DevolucionPar struct {
	PrestamoID    uint `json:"prestamo_id" binding:"required"`
	HerramientaID uint `json:"herramienta_id" binding:"required"`
}

// ResultadoDevolucion resume lo que el lote efectivamente cambió: las
// herramientas liberadas, los préstamos que quedaron CERRADO y los pares
// que no pudieron aplicarse.
type ResultadoDevolucion struct {
	Devueltas []uint          `json:"devueltas"`
	Cerrados  []uint          `json:"cerrados"`
	Fallidas  []DevolucionPar `json:"fallidas,omitempty"`
}

// DevolverItems procesa un lote de devoluciones. Cada par se aplica en su
// propia transacción (el lote no es atómico); un par que falla queda en
// Fallidas y no detiene al resto. El recálculo de estado corre siempre para
// cada préstamo tocado: un préstamo cuyo último item pendiente ya se devolvió
// no puede quedar ACTIVO por un error en otro par del lote.
func (r *Repo) DevolverItems(ctx context.Context, pares []DevolucionPar) (*ResultadoDevolucion, error) {
	if len(pares) == 0 {
		return nil, apperr.Validationf("no se enviaron herramientas a devolver")
	}

	res := &ResultadoDevolucion{}
	tocados := map[uint]struct{}{}

	for _, par := range pares {
		aplicado := false
		err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			aplicado = false
			upd := tx.Model(&models.PrestamoItem{}).
				Where("prestamo_id = ? AND herramienta_id = ? AND hora_entrada IS NULL",
					par.PrestamoID, par.HerramientaID).
				Updates(map[string]any{
					"hora_entrada":      gorm.Expr("NOW()"),
					"estado_devolucion": models.DevolucionOK,
				})
			if upd.Error != nil {
				return apperr.Internal(upd.Error)
			}
			if upd.RowsAffected == 0 {
				// ya devuelta o el par no existe: no-op
				return nil
			}
			if err := tx.Model(&models.Herramienta{}).
				Where("id = ?", par.HerramientaID).
				Update("estado", models.EstadoDisponible).Error; err != nil {
				return apperr.Internal(err)
			}
			aplicado = true
			return nil
		})
		if err != nil {
			res.Fallidas = append(res.Fallidas, par)
			continue
		}
		// el resultado se anota recién con la transacción confirmada
		if aplicado {
			res.Devueltas = append(res.Devueltas, par.HerramientaID)
			tocados[par.PrestamoID] = struct{}{}
		}
	}

	var primero error
	for pid := range tocados {
		var estado string
		err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			estado, err = recalcularEstadoPrestamo(tx, pid)
			return err
		})
		if err != nil {
			if primero == nil {
				primero = err
			}
			continue
		}
		if estado == models.PrestamoCerrado {
			res.Cerrados = append(res.Cerrados, pid)
		}
	}
	// el resultado parcial se devuelve también con error, para que quien
	// llama pueda anunciar lo que sí quedó confirmado
	return res, primero
}

// DevolverHerramienta es el camino simplificado de devolución por
// herramienta: cierra el item PENDIENTE más reciente de esa herramienta.
// Pasa por el mismo recálculo de estado que el camino por lote.
func (r *Repo) DevolverHerramienta(ctx context.Context, herramientaID uint) (prestamoID uint, cerrado bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.PrestamoItem
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("herramienta_id = ? AND hora_entrada IS NULL", herramientaID).
			Order("id DESC").
			Limit(1).
			Find(&item)
		if res.Error != nil {
			return apperr.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			// nada pendiente: devolver dos veces es un no-op
			return nil
		}

		if err := tx.Model(&models.PrestamoItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"hora_entrada":      gorm.Expr("NOW()"),
				"estado_devolucion": models.DevolucionOK,
			}).Error; err != nil {
			return apperr.Internal(err)
		}
		if err := tx.Model(&models.Herramienta{}).
			Where("id = ?", herramientaID).
			Update("estado", models.EstadoDisponible).Error; err != nil {
			return apperr.Internal(err)
		}

		estado, err := recalcularEstadoPrestamo(tx, item.PrestamoID)
		if err != nil {
			return err
		}
		prestamoID = item.PrestamoID
		cerrado = estado == models.PrestamoCerrado
		return nil
	})
	return prestamoID, cerrado, err
}

// recalcularEstadoPrestamo es el único punto que decide ACTIVO, PARCIAL o
// CERRADO; lo invocan todos los caminos de devolución.
func recalcularEstadoPrestamo(tx *gorm.DB, prestamoID uint) (string, error) {
	var p models.Prestamo
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", prestamoID).Error; err != nil {
		return "", apperr.FromGorm(err, "préstamo no encontrado", "")
	}

	var total, pendientes int64
	if err := tx.Model(&models.PrestamoItem{}).
		Where("prestamo_id = ?", prestamoID).
		Count(&total).Error; err != nil {
		return "", apperr.Internal(err)
	}
	if err := tx.Model(&models.PrestamoItem{}).
		Where("prestamo_id = ? AND hora_entrada IS NULL", prestamoID).
		Count(&pendientes).Error; err != nil {
		return "", apperr.Internal(err)
	}

	estado := models.EstadoDePrestamo(int(pendientes), int(total))
	campos := map[string]any{"estado": estado}
	if estado == models.PrestamoCerrado && p.FechaSalida == nil {
		campos["fecha_salida"] = gorm.Expr("NOW()")
	}
	if err := tx.Model(&models.Prestamo{}).
		Where("id = ?", prestamoID).
		Updates(campos).Error; err != nil {
		return "", apperr.Internal(err)
	}
	return estado, nil
}

// HistorialRow es una línea del historial de préstamos de un capataz.
type HistorialRow struct {
	PrestamoID      uint       `json:"prestamo_id"`
	FechaPrestamo   time.Time  `json:"fecha_prestamo"`
	FechaDevolucion *time.Time `json:"fecha_devolucion,omitempty"`
	Estado          string     `json:"estado"`
	Trabajador      string     `json:"trabajador"`
	Herramienta     string     `json:"herramienta"`
}

func (r *Repo) HistorialPrestamos(ctx context.Context, capatazID uint) ([]HistorialRow, error) {
	rows := []HistorialRow{}
	err := r.DB.WithContext(ctx).
		Table(models.PrestamoTable+" p").
		Select(`p.id AS prestamo_id, p.fecha_entrada AS fecha_prestamo,
			p.fecha_salida AS fecha_devolucion, p.estado,
			u.nombre AS trabajador, h.nombre AS herramienta`).
		Joins("JOIN usuarios u ON u.id = p.trabajador_id").
		Joins("JOIN "+models.PrestamoItemTable+" pi ON pi.prestamo_id = p.id").
		Joins("JOIN herramientas h ON h.id = pi.herramienta_id").
		Where("p.capataz_id = ?", capatazID).
		Order("p.fecha_entrada DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

// PrestadaRow es un item abierto en la pantalla de devoluciones pendientes.
type PrestadaRow struct {
	PrestamoID       uint       `json:"prestamo_id"`
	HerramientaID    uint       `json:"herramienta_id"`
	Herramienta      string     `json:"herramienta"`
	Trabajador       string     `json:"trabajador"`
	EstadoDevolucion string     `json:"estado_devolucion"`
	// HoraSalida es cuándo la herramienta salió de bodega (la fecha_entrada
	// del préstamo); hora_entrada es cuándo volvió. El vocabulario es el de
	// la pantalla de devoluciones, no el de la tabla prestamos.
	HoraSalida  time.Time  `json:"hora_salida"`
	HoraEntrada *time.Time `json:"hora_entrada,omitempty"`
}

func (r *Repo) ListPrestadas(ctx context.Context) ([]PrestadaRow, error) {
	rows := []PrestadaRow{}
	err := r.DB.WithContext(ctx).
		Table(models.PrestamoItemTable+" pi").
		Select(`pi.prestamo_id, pi.herramienta_id, h.nombre AS herramienta,
			u.nombre AS trabajador, pi.estado_devolucion,
			p.fecha_entrada AS hora_salida, pi.hora_entrada`).
		Joins("JOIN "+models.PrestamoTable+" p ON p.id = pi.prestamo_id").
		Joins("JOIN herramientas h ON h.id = pi.herramienta_id").
		Joins("JOIN usuarios u ON u.id = p.trabajador_id").
		Where("pi.hora_entrada IS NULL").
		Order("p.fecha_entrada DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

// MiHerramientaRow es una herramienta que un trabajador tiene en su poder.
type MiHerramientaRow struct {
	HerramientaID uint      `json:"herramienta_id"`
	Herramienta   string    `json:"herramienta"`
	Codigo        string    `json:"codigo"`
	Estado        string    `json:"estado_herramienta"`
	PrestamoID    uint      `json:"prestamo_id"`
	FechaPrestamo time.Time `json:"fecha_prestamo"`
	EntregadoPor  string    `json:"entregado_por"`
}

func (r *Repo) MisHerramientas(ctx context.Context, trabajadorID uint) ([]MiHerramientaRow, error) {
	rows := []MiHerramientaRow{}
	err := r.DB.WithContext(ctx).
		Table(models.PrestamoItemTable+" pi").
		Select(`pi.herramienta_id, h.nombre AS herramienta, h.codigo,
			h.estado, pi.prestamo_id, p.fecha_entrada AS fecha_prestamo,
			cap.nombre AS entregado_por`).
		Joins("JOIN "+models.PrestamoTable+" p ON p.id = pi.prestamo_id").
		Joins("JOIN herramientas h ON h.id = pi.herramienta_id").
		Joins("JOIN usuarios cap ON cap.id = p.capataz_id").
		Where("p.trabajador_id = ? AND pi.hora_entrada IS NULL", trabajadorID).
		Where("p.estado IN ? OR pi.estado_devolucion = ?",
			[]string{models.PrestamoActivo, models.PrestamoParcial}, models.DevolucionPendiente).
		Order("p.fecha_entrada DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
