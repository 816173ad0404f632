package db

import (
	"fmt"
	"os"

	"obratools/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ConnectDB() *gorm.DB {
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
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate models")
	}
	log.Info().Msg("database connected")
	return conn
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Rol{},
		&models.Usuario{},
		&models.Categoria{},
		&models.Herramienta{},
		&models.Prestamo{},
		&models.PrestamoItem{},
		&models.Movimiento{},
		&models.Asistencia{},
	); err != nil {
		return err
	}

	// una misma herramienta no puede tener más de un item abierto
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_herramienta
	  ON %s (herramienta_id)
	  WHERE hora_entrada IS NULL;
	`, models.PrestamoItemTable, models.PrestamoItemTable)).Error; err != nil {
		return err
	}

	// la vista de prestadas y el cierre de préstamos filtran por préstamo abierto
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_por_prestamo
	  ON %s (prestamo_id)
	  WHERE hora_entrada IS NULL;
	`, models.PrestamoItemTable, models.PrestamoItemTable)).Error; err != nil {
		return err
	}

	// una marca de asistencia por usuario y día
	if err := db.Exec(`
	  CREATE UNIQUE INDEX IF NOT EXISTS asistencias_usuario_fecha
	  ON asistencias (usuario_id, fecha);
	`).Error; err != nil {
		return err
	}

	return nil
}
