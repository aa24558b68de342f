package auth

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniresearch/research-portal-backend/utils"
)

// TokenStore remembers revoked refresh tokens until they would have expired.
type TokenStore interface {
	Revoke(jti string, ttl time.Duration) error
	IsRevoked(jti string) bool
}

// NewTokenStore returns a Redis-backed store when Redis is up, otherwise an
// in-process one.
func NewTokenStore() TokenStore {
	if utils.RedisClient != nil {
		return redisTokenStore{}
	}
	return NewMemoryTokenStore()
}

type redisTokenStore struct{}

func revokedKey(jti string) string { return "revoked_refresh:" + jti }

func (redisTokenStore) Revoke(jti string, ttl time.Duration) error {
	return utils.SetToken(revokedKey(jti), "1", ttl)
}

func (redisTokenStore) IsRevoked(jti string) bool {
	_, err := utils.GetToken(revokedKey(jti))
	if err == nil {
		return true
	}
	if !errors.Is(err, redis.Nil) {
		log.Printf("⚠️ revocation lookup failed, treating token as revoked: %v", err)
		return true
	}
	return false
}

// MemoryTokenStore is the single-instance fallback.
type MemoryTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryTokenStore) Revoke(jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, k)
		}
	}
	m.revoked[jti] = now.Add(ttl)
	return nil
}

func (m *MemoryTokenStore) IsRevoked(jti string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[jti]
	return ok && m.now().Before(exp)
}
