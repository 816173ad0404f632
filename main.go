package main

import (
	"net/http"
	"os"
	"time"

	"obratools/app"
	"obratools/config"
	"obratools/routes"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	config.LoadEnv()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if os.Getenv("GIN_MODE") == gin.ReleaseMode {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	a := app.MustNew()
	defer a.Close()

	a.Router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	routes.RegisterRoutes(a.Router, a)

	log.Info().Str("port", a.Config.Port).Msg("servidor iniciado")
	if err := a.Router.Run(":" + a.Config.Port); err != nil {
		log.Fatal().Err(err).Msg("no se pudo iniciar el servidor")
	}
}
