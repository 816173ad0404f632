package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store guarda en Redis una entrada por token emitido, indexada por el jti
// del JWT. Un token cuya entrada ya no existe se considera revocado aunque
// la firma siga siendo válida.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

type Session struct {
	UsuarioID uint   `json:"uid"`
	Rol       string `json:"rol"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func key(jti string) string      { return fmt.Sprintf("app:sess:%s", jti) }
func userSetKey(uid uint) string { return fmt.Sprintf("app:user_sessions:%d", uid) }

func (s *Store) Create(ctx context.Context, jti string, usuarioID uint, rol string) error {
	now := time.Now()
	b, _ := json.Marshal(Session{
		UsuarioID: usuarioID,
		Rol:       rol,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(jti), b, s.ttl)
	pipe.SAdd(ctx, userSetKey(usuarioID), jti)
	pipe.Expire(ctx, userSetKey(usuarioID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Alive indica si el token sigue vigente (no revocado ni expirado).
func (s *Store) Alive(ctx context.Context, jti string) (bool, error) {
	_, err := s.rdb.Get(ctx, key(jti)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, jti string) error {
	b, err := s.rdb.Get(ctx, key(jti)).Bytes()
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(jti))
	if err == nil {
		var sess Session
		if json.Unmarshal(b, &sess) == nil {
			pipe.SRem(ctx, userSetKey(sess.UsuarioID), jti)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// RevokeAllForUser invalida todas las sesiones de un usuario; se usa al
// desactivarlo o eliminarlo.
func (s *Store) RevokeAllForUser(ctx context.Context, usuarioID uint) error {
	jtis, err := s.rdb.SMembers(ctx, userSetKey(usuarioID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, jti := range jtis {
		pipe.Del(ctx, key(jti))
	}
	pipe.Del(ctx, userSetKey(usuarioID))
	_, err = pipe.Exec(ctx)
	return err
}
