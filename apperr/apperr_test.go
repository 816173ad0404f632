package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validationf("falta el campo"), http.StatusBadRequest},
		{State("no prestable", nil), http.StatusBadRequest},
		{Conflictf("duplicado"), http.StatusConflict},
		{NotFoundf("no existe"), http.StatusNotFound},
		{Authf("credenciales inválidas"), http.StatusUnauthorized},
		{Forbiddenf("sin permiso"), http.StatusForbidden},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("HTTPStatus() de %q = %d, want %d", tc.err.Msg, got, tc.want)
		}
	}
}

func TestFromGorm(t *testing.T) {
	if err := FromGorm(nil, "nf", "dup"); err != nil {
		t.Fatalf("FromGorm(nil) = %v, want nil", err)
	}

	cases := []struct {
		nombre  string
		in      error
		kind    Kind
		wantMsg string
	}{
		{"not found", gorm.ErrRecordNotFound, KindNotFound, "nf"},
		{"duplicado", gorm.ErrDuplicatedKey, KindConflict, "dup"},
		{"fk", gorm.ErrForeignKeyViolated, KindConflict, "registro referenciado por otros datos"},
		{"otro", errors.New("se cayó la base"), KindInternal, "error interno del servidor"},
	}
	for _, tc := range cases {
		t.Run(tc.nombre, func(t *testing.T) {
			var ae *Error
			if !errors.As(FromGorm(tc.in, "nf", "dup"), &ae) {
				t.Fatal("FromGorm no devolvió *Error")
			}
			if ae.Kind != tc.kind {
				t.Errorf("Kind = %d, want %d", ae.Kind, tc.kind)
			}
			if ae.Msg != tc.wantMsg {
				t.Errorf("Msg = %q, want %q", ae.Msg, tc.wantMsg)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	causa := errors.New("conexión rechazada")
	if !errors.Is(Internal(causa), causa) {
		t.Error("Internal debe envolver la causa original")
	}
}

func TestAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("estado con ofensoras", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/prestar", nil)

		Abort(c, State("No se pueden prestar herramientas no disponibles: Taladro", []Ofensora{
			{ID: 7, Nombre: "Taladro", Estado: "DANADA"},
		}))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		var body struct {
			OK        bool       `json:"ok"`
			Error     string     `json:"error"`
			Ofensoras []Ofensora `json:"herramientas_danadas"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.OK {
			t.Error("ok = true, want false")
		}
		if len(body.Ofensoras) != 1 || body.Ofensoras[0].ID != 7 {
			t.Errorf("herramientas_danadas = %+v", body.Ofensoras)
		}
	})

	t.Run("error no clasificado", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		Abort(c, errors.New("sorpresa"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["error"] != "error interno del servidor" {
			t.Errorf("el detalle interno no debe filtrarse: %v", body["error"])
		}
	})
}
