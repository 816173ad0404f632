package controllers

import (
	"context"
	"net/http"

	"obratools/app"
	"obratools/apperr"
	"obratools/db"
	"obratools/models"
	"obratools/notify"

	"github.com/gin-gonic/gin"
)

type PrestamoStore interface {
	CrearPrestamo(ctx context.Context, capatazID, trabajadorID uint, herramientaIDs []uint) (*models.Prestamo, error)
	DevolverItems(ctx context.Context, pares []db.DevolucionPar) (*db.ResultadoDevolucion, error)
	DevolverHerramienta(ctx context.Context, herramientaID uint) (uint, bool, error)
	HistorialPrestamos(ctx context.Context, capatazID uint) ([]db.HistorialRow, error)
	ListPrestadas(ctx context.Context) ([]db.PrestadaRow, error)
	MisHerramientas(ctx context.Context, trabajadorID uint) ([]db.MiHerramientaRow, error)
}

type PrestamoController struct {
	Store PrestamoStore
	Hub   Publisher
}

func NewPrestamoController(store PrestamoStore, hub Publisher) *PrestamoController {
	return &PrestamoController{Store: store, Hub: hub}
}

// Prestar crea un préstamo con el lote de herramientas indicado.
func (pc *PrestamoController) Prestar(c *gin.Context) {
	var in struct {
		CapatazID    uint   `json:"capataz_id"`
		TrabajadorID uint   `json:"trabajador_id"`
		Herramientas []uint `json:"herramientas"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Validationf("datos incompletos para crear el préstamo"))
		return
	}
	if in.CapatazID == 0 {
		in.CapatazID = app.UsuarioID(c)
	}
	if in.CapatazID == 0 || in.TrabajadorID == 0 || len(in.Herramientas) == 0 {
		apperr.Abort(c, apperr.Validationf("datos incompletos para crear el préstamo"))
		return
	}

	p, err := pc.Store.CrearPrestamo(c.Request.Context(), in.CapatazID, in.TrabajadorID, in.Herramientas)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	for _, item := range p.Items {
		pc.Hub.Publish(notify.EventoHerramientaEstado, app.H{
			"id":     item.HerramientaID,
			"estado": models.EstadoNoDisponible,
		})
	}
	pc.Hub.Publish(notify.EventoPrestamoCreated, app.H{
		"prestamo_id":   p.ID,
		"capataz_id":    p.CapatazID,
		"trabajador_id": p.TrabajadorID,
	})

	c.JSON(http.StatusCreated, app.H{
		"ok":          true,
		"message":     "Préstamo creado correctamente",
		"prestamo_id": p.ID,
	})
}

// DevolverBatch registra devoluciones por lote y anuncia los préstamos que
// quedaron cerrados.
func (pc *PrestamoController) DevolverBatch(c *gin.Context) {
	var in struct {
		Herramientas []db.DevolucionPar `json:"herramientas"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || len(in.Herramientas) == 0 {
		apperr.Abort(c, apperr.Validationf("no se enviaron herramientas a devolver"))
		return
	}

	res, err := pc.Store.DevolverItems(c.Request.Context(), in.Herramientas)
	// las devoluciones confirmadas se anuncian aunque otra parte del lote
	// haya fallado; los visores deben ver las herramientas ya liberadas
	if res != nil {
		for _, hid := range res.Devueltas {
			pc.Hub.Publish(notify.EventoHerramientaEstado, app.H{
				"id":     hid,
				"estado": models.EstadoDisponible,
			})
		}
		for _, pid := range res.Cerrados {
			pc.Hub.Publish(notify.EventoPrestamoClosed, app.H{"prestamo_id": pid})
		}
	}
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, app.H{
		"ok":        true,
		"message":   "Devoluciones registradas correctamente",
		"resultado": res,
	})
}

// DevolverUna es el camino simplificado por herramienta. Devolver una
// herramienta sin item pendiente es un no-op silencioso.
func (pc *PrestamoController) DevolverUna(c *gin.Context) {
	id, ok := paramUint(c, "herramienta_id")
	if !ok {
		return
	}
	prestamoID, cerrado, err := pc.Store.DevolverHerramienta(c.Request.Context(), id)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	if prestamoID != 0 {
		pc.Hub.Publish(notify.EventoHerramientaEstado, app.H{
			"id":     id,
			"estado": models.EstadoDisponible,
		})
		if cerrado {
			pc.Hub.Publish(notify.EventoPrestamoClosed, app.H{"prestamo_id": prestamoID})
		}
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "message": "Herramienta devuelta correctamente y disponible"})
}

func (pc *PrestamoController) Historial(c *gin.Context) {
	capatazID, ok := paramUint(c, "capataz_id")
	if !ok {
		return
	}
	rows, err := pc.Store.HistorialPrestamos(c.Request.Context(), capatazID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (pc *PrestamoController) Prestadas(c *gin.Context) {
	rows, err := pc.Store.ListPrestadas(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (pc *PrestamoController) MisHerramientas(c *gin.Context) {
	usuarioID, ok := paramUint(c, "usuario_id")
	if !ok {
		return
	}
	rows, err := pc.Store.MisHerramientas(c.Request.Context(), usuarioID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
