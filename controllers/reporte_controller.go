package controllers

import (
	"context"
	"net/http"
	"time"

	"obratools/app"
	"obratools/apperr"
	"obratools/db"

	"github.com/gin-gonic/gin"
)

type ReporteStore interface {
	Dashboard(ctx context.Context) (*db.DashboardKPIs, error)
	ReporteAsistencias(ctx context.Context, desde, hasta, usuario string) (*db.ReporteAsistencias, error)
	ReporteHerramientas(ctx context.Context, estado string, categoriaID uint) ([]db.HerramientaReporteRow, error)
	ReporteConsolidado(ctx context.Context) ([]db.MetricaConsolidada, error)
}

type ReporteController struct {
	Store ReporteStore
}

func NewReporteController(store ReporteStore) *ReporteController {
	return &ReporteController{Store: store}
}

func (rc *ReporteController) Dashboard(c *gin.Context) {
	kpis, err := rc.Store.Dashboard(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "kpis": kpis})
}

func (rc *ReporteController) Asistencias(c *gin.Context) {
	rep, err := rc.Store.ReporteAsistencias(c.Request.Context(),
		c.Query("desde"), c.Query("hasta"), c.Query("usuario"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "data": rep.Filas, "sin_marcar": rep.SinMarcar})
}

// Consolidado es el resumen de métricas cruzadas del sistema.
func (rc *ReporteController) Consolidado(c *gin.Context) {
	rows, err := rc.Store.ReporteConsolidado(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"ok":            true,
		"data":          rows,
		"fecha_reporte": time.Now().Format(time.RFC3339),
	})
}

func (rc *ReporteController) Herramientas(c *gin.Context) {
	rows, err := rc.Store.ReporteHerramientas(c.Request.Context(),
		c.Query("estado"), queryUint(c, "categoria_id"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "data": rows})
}
