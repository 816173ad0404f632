package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config se arma desde variables de entorno
type Config struct {
	RedisAddr  string
	RedisPwd   string
	WebOrigins []string

	JWTSecret  []byte
	JWTExpires time.Duration

	Port string
}

// LoadEnv carga .env si existe; en producción las variables vienen del entorno.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using process environment")
	}
}

func Load() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}

	originsCSV := get("WEB_ORIGINS", "http://localhost:3000")
	var origins []string
	for _, o := range strings.Split(originsCSV, ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}

	expires := 8 * time.Hour
	if d, err := time.ParseDuration(get("JWT_EXPIRES", "8h")); err == nil {
		expires = d
	}

	secret := get("JWT_SECRET", "dev")
	if secret == "dev" {
		log.Warn().Msg("JWT_SECRET not set, using insecure default")
	}

	return Config{
		RedisAddr:  get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:   os.Getenv("REDIS_PASSWORD"),
		WebOrigins: origins,
		JWTSecret:  []byte(secret),
		JWTExpires: expires,
		Port:       get("PORT", "3000"),
	}
}
