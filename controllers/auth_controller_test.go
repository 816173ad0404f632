package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"obratools/apperr"
	"obratools/config"
	"obratools/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type authStoreFake struct {
	usuarios map[string]*models.Usuario
	roles    map[string]string
	logins   int
}

func (f *authStoreFake) FindUsuarioPorEmail(_ context.Context, email string) (*models.Usuario, string, error) {
	u, ok := f.usuarios[email]
	if !ok {
		return nil, "", apperr.NotFoundf("usuario no encontrado")
	}
	return u, f.roles[email], nil
}

func (f *authStoreFake) TouchUsuarioLogin(_ context.Context, usuarioID uint) error {
	f.logins++
	return nil
}

type sessionManagerFake struct {
	creadas  []string
	borradas []string
}

func (f *sessionManagerFake) Create(_ context.Context, jti string, usuarioID uint, rol string) error {
	f.creadas = append(f.creadas, jti)
	return nil
}

func (f *sessionManagerFake) Delete(_ context.Context, jti string) error {
	f.borradas = append(f.borradas, jti)
	return nil
}

func hashDe(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func routerAuth(store AuthStore, sessions SessionManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{JWTSecret: []byte("secreto-de-prueba"), JWTExpires: time.Hour}
	r := gin.New()
	ac := NewAuthController(store, sessions, cfg)
	r.POST("/login", ac.Login)
	r.POST("/logout", func(c *gin.Context) { c.Set("jti", "jti-de-prueba") }, ac.Logout)
	return r
}

func TestLogin(t *testing.T) {
	store := &authStoreFake{
		usuarios: map[string]*models.Usuario{
			"marta@obra.cl": {
				ID:           3,
				Nombre:       "Marta",
				Email:        "marta@obra.cl",
				PasswordHash: hashDe(t, "clave123"),
				Activo:       true,
			},
			"inactivo@obra.cl": {
				ID:           4,
				Email:        "inactivo@obra.cl",
				PasswordHash: hashDe(t, "clave123"),
				Activo:       false,
			},
		},
		roles: map[string]string{"marta@obra.cl": models.RolCapataz, "inactivo@obra.cl": models.RolTrabajador},
	}

	t.Run("credenciales correctas", func(t *testing.T) {
		sesiones := &sessionManagerFake{}
		r := routerAuth(store, sesiones)

		w := postJSON(r, http.MethodPost, "/login", `{"email": "MARTA@obra.cl ", "password": "clave123"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var resp struct {
			OK    bool   `json:"ok"`
			ID    uint   `json:"id"`
			Rol   string `json:"rol"`
			Token string `json:"token"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.OK || resp.ID != 3 || resp.Rol != models.RolCapataz || resp.Token == "" {
			t.Errorf("resp = %+v", resp)
		}
		if len(sesiones.creadas) != 1 {
			t.Errorf("sesiones creadas = %d, want 1", len(sesiones.creadas))
		}
		if store.logins == 0 {
			t.Error("el login exitoso debe tocar last_login_at")
		}
	})

	t.Run("contraseña incorrecta", func(t *testing.T) {
		r := routerAuth(store, &sessionManagerFake{})
		w := postJSON(r, http.MethodPost, "/login", `{"email": "marta@obra.cl", "password": "otra"}`)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("email desconocido responde igual que contraseña mala", func(t *testing.T) {
		r := routerAuth(store, &sessionManagerFake{})
		wMala := postJSON(r, http.MethodPost, "/login", `{"email": "marta@obra.cl", "password": "otra"}`)
		wNadie := postJSON(r, http.MethodPost, "/login", `{"email": "nadie@obra.cl", "password": "otra"}`)
		if wNadie.Code != wMala.Code || !strings.Contains(wNadie.Body.String(), "credenciales inválidas") {
			t.Errorf("respuestas distinguibles: %s vs %s", wMala.Body.String(), wNadie.Body.String())
		}
	})

	t.Run("usuario inactivo", func(t *testing.T) {
		r := routerAuth(store, &sessionManagerFake{})
		w := postJSON(r, http.MethodPost, "/login", `{"email": "inactivo@obra.cl", "password": "clave123"}`)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})

	t.Run("campos vacíos", func(t *testing.T) {
		r := routerAuth(store, &sessionManagerFake{})
		w := postJSON(r, http.MethodPost, "/login", `{"email": "", "password": ""}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestLogout(t *testing.T) {
	sesiones := &sessionManagerFake{}
	r := routerAuth(&authStoreFake{}, sesiones)

	w := postJSON(r, http.MethodPost, "/logout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(sesiones.borradas) != 1 || sesiones.borradas[0] != "jti-de-prueba" {
		t.Errorf("borradas = %v", sesiones.borradas)
	}
}
