package bank

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Session is the bank's web session, valid until the bank decides otherwise.
// It is a value: callers never mutate it, they drop it and re-authenticate.
type Session struct {
	ID            string    `json:"id"`
	DeviceID      string    `json:"deviceId"`
	EstablishedAt time.Time `json:"establishedAt"`
}

const sessionKey = "bankpay:bank:session"

// sessionCache keeps the current session in-process and, when Redis is
// configured, shares it across instances so a restart does not force a fresh
// login. Redis failures degrade silently to the local copy.
type sessionCache struct {
	rdb *redis.Client
	ttl time.Duration

	mu    sync.Mutex
	local *Session
}

func newSessionCache(rdb *redis.Client, ttl time.Duration) *sessionCache {
	return &sessionCache{rdb: rdb, ttl: ttl}
}

func (c *sessionCache) get(ctx context.Context) *Session {
	c.mu.Lock()
	local := c.local
	c.mu.Unlock()
	if local != nil {
		return local
	}
	if c.rdb == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, sessionKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Msg("bank: session cache read failed")
		}
		return nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	c.mu.Lock()
	c.local = &s
	c.mu.Unlock()
	return &s
}

func (c *sessionCache) put(ctx context.Context, s *Session) {
	c.mu.Lock()
	c.local = s
	c.mu.Unlock()
	if c.rdb == nil {
		return
	}
	raw, _ := json.Marshal(s)
	if err := c.rdb.Set(ctx, sessionKey, raw, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Msg("bank: session cache write failed")
	}
}

func (c *sessionCache) drop(ctx context.Context) {
	c.mu.Lock()
	c.local = nil
	c.mu.Unlock()
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, sessionKey).Err(); err != nil {
		log.Debug().Err(err).Msg("bank: session cache delete failed")
	}
}
