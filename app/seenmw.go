package app

import (
	"fmt"
	"time"

	"obratools/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSeen actualiza last_seen_at como mucho una vez por ventana de
// throttle; el SetNX en Redis evita golpear la base en cada request.
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UsuarioID(c)
		if uid == 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("user:lastseen:%d", uid)
		if ok, _ := rdb.SetNX(c, key, "1", throttle).Result(); ok {
			_ = repo.TouchUsuarioSeen(c, uid) // ignorar error, no bloquear el request
		}
		c.Next()
	}
}
