package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"obratools/apperr"
	"obratools/models"

	"github.com/gin-gonic/gin"
)

type asistenciasFake struct {
	entradas     []models.Asistencia
	horaRecibida string
}

func (f *asistenciasFake) RegistrarEntrada(_ context.Context, usuarioID uint, fecha, horaEntrada string) (*models.Asistencia, error) {
	for _, a := range f.entradas {
		if a.UsuarioID == usuarioID && a.Fecha == fecha {
			return nil, apperr.Conflictf("ya existe asistencia registrada para hoy")
		}
	}
	f.horaRecibida = horaEntrada
	a := models.Asistencia{ID: uint(len(f.entradas) + 1), UsuarioID: usuarioID, Fecha: fecha, HoraEntrada: horaEntrada}
	f.entradas = append(f.entradas, a)
	return &a, nil
}

func (f *asistenciasFake) RegistrarSalida(_ context.Context, usuarioID uint) (string, error) {
	for _, a := range f.entradas {
		if a.UsuarioID == usuarioID {
			return "17:32:05", nil
		}
	}
	return "", apperr.NotFoundf("no hay asistencia de hoy para marcar salida")
}

func (f *asistenciasFake) ListAsistencias(_ context.Context, usuarioID uint) ([]models.Asistencia, error) {
	out := []models.Asistencia{}
	for _, a := range f.entradas {
		if a.UsuarioID == usuarioID {
			out = append(out, a)
		}
	}
	return out, nil
}

func routerAsistencias(store AsistenciaStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ac := NewAsistenciaController(store)
	r.POST("/asistencia", ac.Entrada)
	r.PUT("/asistencia/salida/:usuario_id", ac.Salida)
	r.GET("/asistencias/:usuario_id", ac.Listar)
	return r
}

func TestEntrada(t *testing.T) {
	t.Run("recorte del timestamp ISO", func(t *testing.T) {
		fake := &asistenciasFake{}
		r := routerAsistencias(fake)

		w := postJSON(r, http.MethodPost, "/asistencia",
			`{"usuario_id": 9, "fecha": "2026-08-28", "hora_entrada": "2026-08-28T08:03:17.512Z"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if fake.horaRecibida != "08:03:17" {
			t.Errorf("hora guardada = %q, want 08:03:17", fake.horaRecibida)
		}
		var resp struct {
			HoraEntrada string `json:"hora_entrada"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.HoraEntrada != "08:03" {
			t.Errorf("hora_entrada = %q, want 08:03", resp.HoraEntrada)
		}
	})

	t.Run("doble marca del mismo día", func(t *testing.T) {
		fake := &asistenciasFake{}
		r := routerAsistencias(fake)
		body := `{"usuario_id": 9, "fecha": "2026-08-28", "hora_entrada": "08:03:17"}`

		postJSON(r, http.MethodPost, "/asistencia", body)
		w := postJSON(r, http.MethodPost, "/asistencia", body)
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})

	t.Run("datos incompletos", func(t *testing.T) {
		r := routerAsistencias(&asistenciasFake{})
		w := postJSON(r, http.MethodPost, "/asistencia", `{"usuario_id": 9}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestSalida(t *testing.T) {
	fake := &asistenciasFake{}
	r := routerAsistencias(fake)
	postJSON(r, http.MethodPost, "/asistencia",
		`{"usuario_id": 9, "fecha": "2026-08-28", "hora_entrada": "08:03:17"}`)

	w := postJSON(r, http.MethodPut, "/asistencia/salida/9", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		HoraSalida string `json:"hora_salida"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.HoraSalida != "17:32" {
		t.Errorf("hora_salida = %q, want 17:32", resp.HoraSalida)
	}

	w = postJSON(r, http.MethodPut, "/asistencia/salida/77", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("sin entrada previa: status = %d, want 404", w.Code)
	}
}

func TestListarAsistencias(t *testing.T) {
	fake := &asistenciasFake{}
	r := routerAsistencias(fake)
	postJSON(r, http.MethodPost, "/asistencia",
		`{"usuario_id": 9, "fecha": "2026-08-27", "hora_entrada": "08:00:00"}`)
	postJSON(r, http.MethodPost, "/asistencia",
		`{"usuario_id": 9, "fecha": "2026-08-28", "hora_entrada": "08:05:00"}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/asistencias/9", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var rows []models.Asistencia
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}
}

func TestRecortarMinutos(t *testing.T) {
	cases := []struct{ in, want string }{
		{"08:03:17", "08:03"},
		{"08:03", "08:03"},
		{"8:03", "8:03"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := recortarMinutos(tc.in); got != tc.want {
			t.Errorf("recortarMinutos(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
