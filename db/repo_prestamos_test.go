package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"obratools/apperr"
	"obratools/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestSeleccionarOfensoras(t *testing.T) {
	hs := []models.Herramienta{
		{ID: 1, Nombre: "Taladro", Estado: models.EstadoDisponible},
		{ID: 2, Nombre: "Sierra", Estado: models.EstadoDanada},
		{ID: 3, Nombre: "Esmeril", Estado: models.EstadoBaja},
		{ID: 4, Nombre: "Martillo", Estado: models.EstadoNoDisponible},
	}

	ofensoras := seleccionarOfensoras(hs)
	if len(ofensoras) != 3 {
		t.Fatalf("len(ofensoras) = %d, want 3", len(ofensoras))
	}
	want := map[uint]string{2: models.EstadoDanada, 3: models.EstadoBaja, 4: models.EstadoNoDisponible}
	for _, o := range ofensoras {
		if want[o.ID] != o.Estado {
			t.Errorf("ofensora %d con estado %q", o.ID, o.Estado)
		}
	}

	if got := seleccionarOfensoras([]models.Herramienta{{ID: 1, Estado: models.EstadoDisponible}}); got != nil {
		t.Errorf("todas disponibles: ofensoras = %v, want nil", got)
	}
}

func TestMensajeNoPrestables(t *testing.T) {
	msg := mensajeNoPrestables([]apperr.Ofensora{
		{ID: 2, Nombre: "Sierra", Estado: models.EstadoDanada},
		{ID: 3, Nombre: "Esmeril", Estado: models.EstadoBaja},
	})
	want := "No se pueden prestar herramientas no disponibles: Sierra (DANADA), Esmeril (BAJA)"
	if msg != want {
		t.Errorf("mensaje = %q, want %q", msg, want)
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]uint{5, 6, 5, 7, 6})
	want := []uint{5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("dedupe = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dedupe[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// abrirRepo conecta contra el Postgres de DB_HOST; sin esa variable los tests
// de integración se omiten.
func abrirRepo(t *testing.T) *Repo {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST no configurado; se omite el test contra Postgres")
	}
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("conectando a la base: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrando: %v", err)
	}
	return NewRepo(conn)
}

type escenario struct {
	r    *Repo
	cat  models.Categoria
	hids []uint
	pids []uint
}

func nuevoEscenario(t *testing.T, r *Repo) *escenario {
	t.Helper()
	e := &escenario{r: r}
	e.cat = models.Categoria{
		Nombre: "Pruebas",
		Slug:   fmt.Sprintf("pruebas-%d", time.Now().UnixNano()),
		Activa: true,
	}
	if err := r.DB.Create(&e.cat).Error; err != nil {
		t.Fatalf("creando categoría: %v", err)
	}
	t.Cleanup(func() {
		if len(e.hids) > 0 {
			r.DB.Exec("DELETE FROM prestamo_items WHERE herramienta_id IN ?", e.hids)
			r.DB.Exec("DELETE FROM herramientas WHERE id IN ?", e.hids)
		}
		if len(e.pids) > 0 {
			r.DB.Exec("DELETE FROM prestamos WHERE id IN ?", e.pids)
		}
		r.DB.Exec("DELETE FROM categorias_herramienta WHERE id = ?", e.cat.ID)
	})
	return e
}

func (e *escenario) herramienta(t *testing.T, nombre, estado string) *models.Herramienta {
	t.Helper()
	h := &models.Herramienta{
		CategoriaID: e.cat.ID,
		Codigo:      fmt.Sprintf("%s-%d-%d", nombre, time.Now().UnixNano(), len(e.hids)),
		Nombre:      nombre,
		Estado:      estado,
	}
	if err := e.r.DB.Create(h).Error; err != nil {
		t.Fatalf("creando herramienta: %v", err)
	}
	e.hids = append(e.hids, h.ID)
	return h
}

func (e *escenario) estadoDe(t *testing.T, herramientaID uint) string {
	t.Helper()
	var h models.Herramienta
	if err := e.r.DB.First(&h, herramientaID).Error; err != nil {
		t.Fatalf("leyendo herramienta %d: %v", herramientaID, err)
	}
	return h.Estado
}

func (e *escenario) prestamo(t *testing.T, prestamoID uint) *models.Prestamo {
	t.Helper()
	var p models.Prestamo
	if err := e.r.DB.First(&p, prestamoID).Error; err != nil {
		t.Fatalf("leyendo préstamo %d: %v", prestamoID, err)
	}
	return &p
}

func TestCicloDePrestamo(t *testing.T) {
	r := abrirRepo(t)
	e := nuevoEscenario(t, r)
	ctx := context.Background()

	h1 := e.herramienta(t, "taladro", models.EstadoDisponible)
	h2 := e.herramienta(t, "sierra", models.EstadoDisponible)

	p, err := r.CrearPrestamo(ctx, 9001, 9002, []uint{h1.ID, h2.ID})
	if err != nil {
		t.Fatalf("CrearPrestamo: %v", err)
	}
	e.pids = append(e.pids, p.ID)

	if p.Estado != models.PrestamoActivo {
		t.Errorf("estado inicial = %q, want ACTIVO", p.Estado)
	}
	if len(p.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(p.Items))
	}
	for _, item := range p.Items {
		if item.EstadoDevolucion != models.DevolucionPendiente {
			t.Errorf("item %d con devolución %q, want PENDIENTE", item.HerramientaID, item.EstadoDevolucion)
		}
	}
	for _, hid := range []uint{h1.ID, h2.ID} {
		if got := e.estadoDe(t, hid); got != models.EstadoNoDisponible {
			t.Errorf("herramienta %d en %q tras prestar, want NO_DISPONIBLE", hid, got)
		}
	}

	// primera devolución: el préstamo pasa a PARCIAL
	res, err := r.DevolverItems(ctx, []DevolucionPar{{PrestamoID: p.ID, HerramientaID: h1.ID}})
	if err != nil {
		t.Fatalf("DevolverItems: %v", err)
	}
	if len(res.Devueltas) != 1 || res.Devueltas[0] != h1.ID {
		t.Errorf("devueltas = %v", res.Devueltas)
	}
	if len(res.Cerrados) != 0 {
		t.Errorf("cerrados = %v, want vacío", res.Cerrados)
	}
	if got := e.prestamo(t, p.ID).Estado; got != models.PrestamoParcial {
		t.Errorf("estado tras devolución parcial = %q, want PARCIAL", got)
	}
	if got := e.estadoDe(t, h1.ID); got != models.EstadoDisponible {
		t.Errorf("herramienta devuelta en %q, want DISPONIBLE", got)
	}

	// segunda devolución: el préstamo cierra con fecha_salida
	res, err = r.DevolverItems(ctx, []DevolucionPar{{PrestamoID: p.ID, HerramientaID: h2.ID}})
	if err != nil {
		t.Fatalf("DevolverItems: %v", err)
	}
	if len(res.Cerrados) != 1 || res.Cerrados[0] != p.ID {
		t.Errorf("cerrados = %v, want [%d]", res.Cerrados, p.ID)
	}
	cerrado := e.prestamo(t, p.ID)
	if cerrado.Estado != models.PrestamoCerrado {
		t.Errorf("estado final = %q, want CERRADO", cerrado.Estado)
	}
	if cerrado.FechaSalida == nil {
		t.Error("fecha_salida sigue nula tras cerrar")
	}

	// devolver de nuevo es un no-op, por los dos caminos
	res, err = r.DevolverItems(ctx, []DevolucionPar{{PrestamoID: p.ID, HerramientaID: h2.ID}})
	if err != nil {
		t.Fatalf("DevolverItems repetido: %v", err)
	}
	if len(res.Devueltas) != 0 || len(res.Cerrados) != 0 {
		t.Errorf("doble devolución cambió algo: %+v", res)
	}
	pid, _, err := r.DevolverHerramienta(ctx, h1.ID)
	if err != nil {
		t.Fatalf("DevolverHerramienta: %v", err)
	}
	if pid != 0 {
		t.Errorf("devolución sin item pendiente tocó el préstamo %d", pid)
	}
}

func TestCrearPrestamoTodoONada(t *testing.T) {
	r := abrirRepo(t)
	e := nuevoEscenario(t, r)
	ctx := context.Background()

	sana := e.herramienta(t, "martillo", models.EstadoDisponible)
	rota := e.herramienta(t, "esmeril", models.EstadoDanada)

	_, err := r.CrearPrestamo(ctx, 9001, 9002, []uint{sana.ID, rota.ID})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindState {
		t.Fatalf("err = %v, want error de estado", err)
	}
	if len(ae.Ofensoras) != 1 || ae.Ofensoras[0].ID != rota.ID {
		t.Errorf("ofensoras = %+v", ae.Ofensoras)
	}

	// nada quedó a medias: ni items ni cambio de estado en la sana
	var items int64
	r.DB.Model(&models.PrestamoItem{}).Where("herramienta_id IN ?", []uint{sana.ID, rota.ID}).Count(&items)
	if items != 0 {
		t.Errorf("quedaron %d items de un préstamo rechazado", items)
	}
	if got := e.estadoDe(t, sana.ID); got != models.EstadoDisponible {
		t.Errorf("la herramienta sana quedó en %q", got)
	}
}

func TestCrearPrestamoHerramientaYaPrestada(t *testing.T) {
	r := abrirRepo(t)
	e := nuevoEscenario(t, r)
	ctx := context.Background()

	h := e.herramienta(t, "taladro", models.EstadoDisponible)
	p, err := r.CrearPrestamo(ctx, 9001, 9002, []uint{h.ID})
	if err != nil {
		t.Fatalf("primer préstamo: %v", err)
	}
	e.pids = append(e.pids, p.ID)

	_, err = r.CrearPrestamo(ctx, 9001, 9003, []uint{h.ID})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindState {
		t.Fatalf("segundo préstamo: err = %v, want error de estado", err)
	}
}
