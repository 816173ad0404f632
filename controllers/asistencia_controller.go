package controllers

import (
	"context"
	"net/http"
	"strings"

	"obratools/app"
	"obratools/apperr"
	"obratools/models"

	"github.com/gin-gonic/gin"
)

type AsistenciaStore interface {
	RegistrarEntrada(ctx context.Context, usuarioID uint, fecha, horaEntrada string) (*models.Asistencia, error)
	RegistrarSalida(ctx context.Context, usuarioID uint) (string, error)
	ListAsistencias(ctx context.Context, usuarioID uint) ([]models.Asistencia, error)
}

type AsistenciaController struct {
	Store AsistenciaStore
}

func NewAsistenciaController(store AsistenciaStore) *AsistenciaController {
	return &AsistenciaController{Store: store}
}

// Entrada registra la marca de entrada del día. El front manda la hora como
// timestamp ISO; acá se recorta a HH:MM:SS.
func (ac *AsistenciaController) Entrada(c *gin.Context) {
	var in struct {
		Fecha       string `json:"fecha"`
		HoraEntrada string `json:"hora_entrada"`
		UsuarioID   uint   `json:"usuario_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Abort(c, apperr.Validationf("faltan datos obligatorios"))
		return
	}
	if in.Fecha == "" || in.HoraEntrada == "" || in.UsuarioID == 0 {
		apperr.Abort(c, apperr.Validationf("faltan datos obligatorios"))
		return
	}

	hora := in.HoraEntrada
	if i := strings.Index(hora, "T"); i >= 0 {
		hora = hora[i+1:]
	}
	if len(hora) > 8 {
		hora = hora[:8]
	}

	a, err := ac.Store.RegistrarEntrada(c.Request.Context(), in.UsuarioID, in.Fecha, hora)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"id":           a.ID,
		"fecha":        a.Fecha,
		"hora_entrada": recortarMinutos(a.HoraEntrada),
	})
}

func (ac *AsistenciaController) Salida(c *gin.Context) {
	usuarioID, ok := paramUint(c, "usuario_id")
	if !ok {
		return
	}
	hora, err := ac.Store.RegistrarSalida(c.Request.Context(), usuarioID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"message":     "Salida registrada correctamente",
		"hora_salida": recortarMinutos(hora),
	})
}

func (ac *AsistenciaController) Listar(c *gin.Context) {
	usuarioID, ok := paramUint(c, "usuario_id")
	if !ok {
		return
	}
	rows, err := ac.Store.ListAsistencias(c.Request.Context(), usuarioID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func recortarMinutos(hora string) string {
	if len(hora) >= 5 {
		return hora[:5]
	}
	return hora
}
