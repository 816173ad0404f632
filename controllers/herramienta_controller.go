package controllers

import (
	"context"
	"net/http"
	"strconv"

	"obratools/app"
	"obratools/apperr"
	"obratools/db"
	"obratools/models"
	"obratools/notify"

	"github.com/gin-gonic/gin"
)

type HerramientaStore interface {
	ListHerramientas(ctx context.Context, f db.HerramientasFilter) ([]db.HerramientaRow, error)
	FindHerramientaRow(ctx context.Context, id uint) (*db.HerramientaRow, error)
	CreateHerramienta(ctx context.Context, h *models.Herramienta) (*db.HerramientaRow, error)
	UpdateHerramientaCampos(ctx context.Context, id uint, campos map[string]any) (*db.HerramientaRow, error)
	SetEstadoHerramienta(ctx context.Context, id uint, estado, detalle string, actorID uint) (*db.HerramientaRow, error)
	DeleteHerramienta(ctx context.Context, id uint) error
	BuscarHerramientas(ctx context.Context, buscar string) ([]db.HerramientaRow, error)
	ListHerramientasDanadas(ctx context.Context) ([]db.HerramientaRow, error)
	ListCategorias(ctx context.Context) ([]models.Categoria, error)
}

// Publisher es lo único que los controladores saben del canal de push.
type Publisher interface {
	Publish(evento string, payload any)
}

type HerramientaController struct {
	Store HerramientaStore
	Hub   Publisher
}

func NewHerramientaController(store HerramientaStore, hub Publisher) *HerramientaController {
	return &HerramientaController{Store: store, Hub: hub}
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		apperr.Abort(c, apperr.Validationf("parámetro %s inválido", name))
		return 0, false
	}
	return uint(v), true
}

func queryUint(c *gin.Context, name string) uint {
	v, _ := strconv.ParseUint(c.Query(name), 10, 64)
	return uint(v)
}

// List es el inventario del admin con filtros opcionales.
func (hc *HerramientaController) List(c *gin.Context) {
	f := db.HerramientasFilter{
		Estado:      c.Query("estado"),
		Q:           c.Query("q"),
		CategoriaID: queryUint(c, "categoria_id"),
	}
	rows, err := hc.Store.ListHerramientas(c.Request.Context(), f)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "data": rows})
}

func (hc *HerramientaController) Get(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	row, err := hc.Store.FindHerramientaRow(c.Request.Context(), id)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "data": row})
}

func (hc *HerramientaController) Create(c *gin.Context) {
	var in struct {
		CategoriaID   uint     `json:"categoria_id"`
		Codigo        string   `json:"codigo"`
		Nombre        string   `json:"nombre"`
		Descripcion   *string  `json:"descripcion"`
		Ubicacion     *string  `json:"ubicacion"`
		ValorEstimado *float64 `json:"valor_estimado"`
		Estado        string   `json:"estado"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Validationf("cuerpo inválido"))
		return
	}
	if in.CategoriaID == 0 || in.Codigo == "" || in.Nombre == "" {
		apperr.Abort(c, apperr.Validationf("faltan campos obligatorios: categoria_id, codigo, nombre"))
		return
	}
	if in.Estado == "" {
		in.Estado = models.EstadoDisponible
	}
	if !models.EstadoHerramientaValido(in.Estado) {
		apperr.Abort(c, apperr.Validationf("estado inválido"))
		return
	}

	h := &models.Herramienta{
		CategoriaID:   in.CategoriaID,
		Codigo:        in.Codigo,
		Nombre:        in.Nombre,
		Descripcion:   in.Descripcion,
		Ubicacion:     in.Ubicacion,
		ValorEstimado: in.ValorEstimado,
		Estado:        in.Estado,
	}
	row, err := hc.Store.CreateHerramienta(c.Request.Context(), h)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	hc.Hub.Publish(notify.EventoHerramientaCreated, row)
	c.JSON(http.StatusCreated, app.H{"ok": true, "data": row})
}

// UpdateCampos acepta un subconjunto de {codigo, nombre, categoria_id}.
func (hc *HerramientaController) UpdateCampos(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var in struct {
		Codigo      string `json:"codigo"`
		Nombre      string `json:"nombre"`
		CategoriaID uint   `json:"categoria_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Validationf("cuerpo inválido"))
		return
	}
	campos := map[string]any{}
	if in.Codigo != "" {
		campos["codigo"] = in.Codigo
	}
	if in.Nombre != "" {
		campos["nombre"] = in.Nombre
	}
	if in.CategoriaID > 0 {
		campos["categoria_id"] = in.CategoriaID
	}
	if len(campos) == 0 {
		apperr.Abort(c, apperr.Validationf("debes enviar al menos un campo (codigo, nombre o categoria_id)"))
		return
	}

	row, err := hc.Store.UpdateHerramientaCampos(c.Request.Context(), id, campos)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	hc.Hub.Publish(notify.EventoHerramientaUpdated, row)
	c.JSON(http.StatusOK, app.H{"ok": true, "data": row})
}

func (hc *HerramientaController) SetEstado(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var in struct {
		Estado  string `json:"estado"`
		Detalle string `json:"detalle"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || !models.EstadoHerramientaValido(in.Estado) {
		apperr.Abort(c, apperr.Validationf("estado inválido"))
		return
	}

	row, err := hc.Store.SetEstadoHerramienta(c.Request.Context(), id, in.Estado, in.Detalle, app.UsuarioID(c))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	hc.Hub.Publish(notify.EventoHerramientaEstado, row)
	c.JSON(http.StatusOK, app.H{"ok": true, "data": row})
}

func (hc *HerramientaController) Delete(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	if err := hc.Store.DeleteHerramienta(c.Request.Context(), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	hc.Hub.Publish(notify.EventoHerramientaDeleted, app.H{"id": id})
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// Buscar es el listado del capataz.
func (hc *HerramientaController) Buscar(c *gin.Context) {
	rows, err := hc.Store.BuscarHerramientas(c.Request.Context(), c.Query("buscar"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (hc *HerramientaController) Danadas(c *gin.Context) {
	rows, err := hc.Store.ListHerramientasDanadas(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (hc *HerramientaController) Categorias(c *gin.Context) {
	cats, err := hc.Store.ListCategorias(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "data": cats})
}

// Usar y DevolverEstado son los atajos del capataz que mueven una
// herramienta entre DISPONIBLE y NO_DISPONIBLE sin pasar por un préstamo.
func (hc *HerramientaController) Usar(c *gin.Context) {
	hc.atajoEstado(c, models.EstadoNoDisponible, "marcada en uso por capataz")
}

func (hc *HerramientaController) DevolverEstado(c *gin.Context) {
	hc.atajoEstado(c, models.EstadoDisponible, "devuelta por capataz")
}

func (hc *HerramientaController) atajoEstado(c *gin.Context, estado, detalle string) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	row, err := hc.Store.SetEstadoHerramienta(c.Request.Context(), id, estado, detalle, app.UsuarioID(c))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	hc.Hub.Publish(notify.EventoHerramientaEstado, row)
	c.JSON(http.StatusOK, app.H{"ok": true, "estado": estado})
}
