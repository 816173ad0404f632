package db

import (
	"context"
	"time"

	"obratools/apperr"
	"obratools/models"
)

// RegistrarEntrada crea la marca de entrada del día. El índice único
// (usuario_id, fecha) rechaza la doble marca.
func (r *Repo) RegistrarEntrada(ctx context.Context, usuarioID uint, fecha, horaEntrada string) (*models.Asistencia, error) {
	a := &models.Asistencia{
		UsuarioID:   usuarioID,
		Fecha:       fecha,
		HoraEntrada: horaEntrada,
		Estado:      "PRESENTE",
		TurnoID:     1,
	}
	if err := r.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, apperr.FromGorm(err, "", "ya existe asistencia registrada para hoy")
	}
	return a, nil
}

// RegistrarSalida completa la marca del día con la hora actual.
func (r *Repo) RegistrarSalida(ctx context.Context, usuarioID uint) (string, error) {
	hoy := time.Now().Format("2006-01-02")
	hora := time.Now().Format("15:04:05")

	res := r.DB.WithContext(ctx).Model(&models.Asistencia{}).
		Where("usuario_id = ? AND fecha = ?", usuarioID, hoy).
		Updates(map[string]any{"hora_salida": hora, "estado": "PRESENTE"})
	if res.Error != nil {
		return "", apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return "", apperr.NotFoundf("no se encontró asistencia del día para registrar salida")
	}
	return hora, nil
}

func (r *Repo) ListAsistencias(ctx context.Context, usuarioID uint) ([]models.Asistencia, error) {
	var rows []models.Asistencia
	err := r.DB.WithContext(ctx).
		Where("usuario_id = ?", usuarioID).
		Order("fecha DESC, hora_entrada ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}
