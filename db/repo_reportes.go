package db

import (
	"context"
	"strings"
	"time"

	"obratools/apperr"
	"obratools/models"
)

// DashboardKPIs son los contadores por estado del inventario.
type DashboardKPIs struct {
	Disponibles  int64 `json:"disponibles"`
	EnUso        int64 `json:"en_uso"`
	EnMantencion int64 `json:"en_mantencion"`
	Danadas      int64 `json:"danadas"`
	Bajas        int64 `json:"bajas"`
	Total        int64 `json:"total"`
}

func (r *Repo) Dashboard(ctx context.Context) (*DashboardKPIs, error) {
	var k DashboardKPIs
	err := r.DB.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) FILTER (WHERE estado = 'DISPONIBLE')    AS disponibles,
			COUNT(*) FILTER (WHERE estado = 'NO_DISPONIBLE') AS en_uso,
			COUNT(*) FILTER (WHERE estado = 'MANTENCION')    AS en_mantencion,
			COUNT(*) FILTER (WHERE estado = 'DANADA')        AS danadas,
			COUNT(*) FILTER (WHERE estado = 'BAJA')          AS bajas,
			COUNT(*)                                         AS total
		FROM herramientas
	`).Scan(&k).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &k, nil
}

// ConsolidadoAsistencias y ConsolidadoPrestamos son los agregados que
// alimentan el reporte consolidado junto a los KPIs del inventario.
type ConsolidadoAsistencias struct {
	UsuariosActivos  int64   `json:"usuarios_activos"`
	MarcasAsistencia int64   `json:"marcas_asistencia"`
	PromedioHoras    float64 `json:"promedio_horas"`
}

type ConsolidadoPrestamos struct {
	PrestamosActivos         int64 `json:"prestamos_activos"`
	TrabajadoresConPrestamos int64 `json:"trabajadores_con_prestamos"`
	ItemsPrestados           int64 `json:"items_prestados"`
}

// MetricaConsolidada es una línea del reporte consolidado del admin.
type MetricaConsolidada struct {
	Metrica     string `json:"metrica"`
	Valor       int64  `json:"valor"`
	Observacion string `json:"observacion"`
}

// metricasConsolidadas arma las líneas del reporte a partir de los agregados.
func metricasConsolidadas(k *DashboardKPIs, a *ConsolidadoAsistencias, p *ConsolidadoPrestamos) []MetricaConsolidada {
	redondeo := int64(a.PromedioHoras + 0.5)
	return []MetricaConsolidada{
		{Metrica: "Total de Herramientas", Valor: k.Total, Observacion: "Inventario completo"},
		{Metrica: "Herramientas Disponibles", Valor: k.Disponibles, Observacion: "Listas para usar"},
		{Metrica: "Herramientas en Uso", Valor: k.EnUso, Observacion: "Actualmente prestadas"},
		{Metrica: "En Mantención", Valor: k.EnMantencion, Observacion: "En reparación"},
		{Metrica: "Dañadas", Valor: k.Danadas, Observacion: "Requieren atención"},
		{Metrica: "Usuarios Activos (30 días)", Valor: a.UsuariosActivos, Observacion: "Con asistencia registrada"},
		{Metrica: "Promedio de Horas", Valor: redondeo, Observacion: "Por usuario al día"},
		{Metrica: "Préstamos Activos", Valor: p.PrestamosActivos, Observacion: "En curso"},
		{Metrica: "Trabajadores con Préstamos", Valor: p.TrabajadoresConPrestamos, Observacion: "Con herramientas asignadas"},
	}
}

// ReporteConsolidado reúne inventario, asistencia de los últimos 30 días y
// préstamos en curso en una sola vista de métricas.
func (r *Repo) ReporteConsolidado(ctx context.Context) ([]MetricaConsolidada, error) {
	k, err := r.Dashboard(ctx)
	if err != nil {
		return nil, err
	}

	desde := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	var a ConsolidadoAsistencias
	err = r.DB.WithContext(ctx).Raw(`
		SELECT
			COUNT(DISTINCT usuario_id) AS usuarios_activos,
			COUNT(*)                   AS marcas_asistencia,
			COALESCE(AVG(EXTRACT(EPOCH FROM (COALESCE(hora_salida::time, LOCALTIME) - hora_entrada::time)) / 3600), 0)
				AS promedio_horas
		FROM asistencias
		WHERE fecha >= ?
	`, desde).Scan(&a).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var p ConsolidadoPrestamos
	err = r.DB.WithContext(ctx).Raw(`
		SELECT
			COUNT(DISTINCT p.id)            AS prestamos_activos,
			COUNT(DISTINCT p.trabajador_id) AS trabajadores_con_prestamos,
			COUNT(pi.id)                    AS items_prestados
		FROM `+models.PrestamoTable+` p
		LEFT JOIN `+models.PrestamoItemTable+` pi ON pi.prestamo_id = p.id
		WHERE p.estado IN ('ACTIVO', 'PARCIAL')
	`).Scan(&p).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return metricasConsolidadas(k, &a, &p), nil
}

// AsistenciaReporteRow es una línea del reporte de asistencias con las horas
// trabajadas calculadas por la base de datos.
type AsistenciaReporteRow struct {
	ID              uint    `json:"id"`
	Fecha           string  `json:"fecha"`
	HoraEntrada     string  `json:"hora_entrada"`
	HoraSalida      *string `json:"hora_salida,omitempty"`
	UsuarioID       uint    `json:"usuario_id"`
	Usuario         string  `json:"usuario"`
	HorasTrabajadas float64 `json:"horas_trabajadas"`
}

type ReporteAsistencias struct {
	Filas     []AsistenciaReporteRow `json:"data"`
	SinMarcar []UsuarioRow           `json:"sin_marcar"`
}

func (r *Repo) ReporteAsistencias(ctx context.Context, desde, hasta, usuario string) (*ReporteAsistencias, error) {
	hoy := time.Now().Format("2006-01-02")
	if desde == "" {
		desde = hoy
	}
	if hasta == "" {
		hasta = hoy
	}

	q := r.DB.WithContext(ctx).
		Table("asistencias a").
		Select(`a.id, a.fecha, a.hora_entrada, a.hora_salida,
			u.id AS usuario_id, u.nombre AS usuario,
			EXTRACT(EPOCH FROM (COALESCE(a.hora_salida::time, LOCALTIME) - a.hora_entrada::time)) / 3600
				AS horas_trabajadas`).
		Joins("INNER JOIN usuarios u ON u.id = a.usuario_id").
		Where("a.fecha BETWEEN ? AND ?", desde, hasta)
	if s := strings.TrimSpace(usuario); s != "" {
		q = q.Where("LOWER(u.nombre) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	filas := []AsistenciaReporteRow{}
	if err := q.Order("a.fecha DESC, u.nombre ASC").Scan(&filas).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	// usuarios (no admin) sin ninguna marca en el rango
	sinMarcar := []UsuarioRow{}
	err := r.usuarioBase(ctx).
		Where("r.nombre <> ?", models.RolAdmin).
		Where(`u.id NOT IN (
			SELECT a.usuario_id FROM asistencias a WHERE a.fecha BETWEEN ? AND ?
		)`, desde, hasta).
		Scan(&sinMarcar).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &ReporteAsistencias{Filas: filas, SinMarcar: sinMarcar}, nil
}

// HerramientaReporteRow agrega el uso histórico de una herramienta.
type HerramientaReporteRow struct {
	ID            uint    `json:"id"`
	Herramienta   string  `json:"herramienta"`
	Codigo        string  `json:"codigo"`
	Estado        string  `json:"estado"`
	Categoria     *string `json:"categoria,omitempty"`
	VecesPrestada int64   `json:"veces_prestada"`
	HorasUso      float64 `json:"horas_uso"`
}

func (r *Repo) ReporteHerramientas(ctx context.Context, estado string, categoriaID uint) ([]HerramientaReporteRow, error) {
	q := r.DB.WithContext(ctx).
		Table("herramientas h").
		Select(`h.id, h.nombre AS herramienta, h.codigo, h.estado,
			c.nombre AS categoria,
			COUNT(DISTINCT pi.prestamo_id) AS veces_prestada,
			COALESCE(SUM(EXTRACT(EPOCH FROM (COALESCE(p.fecha_salida, NOW()) - p.fecha_entrada)) / 3600), 0)
				AS horas_uso`).
		Joins("LEFT JOIN categorias_herramienta c ON c.id = h.categoria_id").
		Joins("LEFT JOIN " + models.PrestamoItemTable + " pi ON pi.herramienta_id = h.id").
		Joins("LEFT JOIN " + models.PrestamoTable + " p ON p.id = pi.prestamo_id").
		Group("h.id, h.nombre, h.codigo, h.estado, c.nombre").
		Order("h.nombre ASC")
	if estado != "" && models.EstadoHerramientaValido(estado) {
		q = q.Where("h.estado = ?", estado)
	}
	if categoriaID > 0 {
		q = q.Where("h.categoria_id = ?", categoriaID)
	}

	rows := []HerramientaReporteRow{}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}
