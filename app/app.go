package app

import (
	"context"
	"time"

	"obratools/config"
	"obratools/db"
	"obratools/notify"
	"obratools/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// alias cortos para los handlers
type Ctx = gin.Context
type H = gin.H

// App agrega las dependencias compartidas por los controladores.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Hub    *notify.Hub
	Config config.Config

	sessions *session.Store
}

func (a *App) Sessions() *session.Store { return a.sessions }

func MustNew() *App {
	cfg := config.Load()

	dbConn := db.ConnectDB()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis")
	}

	r := gin.Default()
	useCORS(r, cfg.WebOrigins)

	return &App{
		Router:   r,
		DB:       dbConn,
		RDB:      rdb,
		Hub:      notify.NewHub(),
		Config:   cfg,
		sessions: session.NewStore(rdb, cfg.JWTExpires),
	}
}

func (a *App) Close() { _ = a.RDB.Close() }
