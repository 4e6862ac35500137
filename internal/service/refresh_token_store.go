package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshTokenStore registra el jti de cada refresh token vigente junto a su dueño.
type RefreshTokenStore interface {
	Store(jti, userID string, ttl time.Duration) error
	// Owner devuelve el usuario dueño del jti; false si no existe o venció.
	Owner(jti string) (string, bool, error)
	Revoke(jti string) error
}

type refreshEntry struct {
	userID    string
	expiresAt time.Time
}

type memoryRefreshTokenStore struct {
	mu    sync.Mutex
	items map[string]refreshEntry
}

func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{
		items: make(map[string]refreshEntry),
	}
}

func (s *memoryRefreshTokenStore) Store(jti, userID string, ttl time.Duration) error {
	if strings.TrimSpace(jti) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[jti] = refreshEntry{userID: userID, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (s *memoryRefreshTokenStore) Owner(jti string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[jti]
	if !ok {
		return "", false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(s.items, jti)
		return "", false, nil
	}
	return entry.userID, true, nil
}

func (s *memoryRefreshTokenStore) Revoke(jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, jti)
	return nil
}

// redisKV es el subconjunto de *redis.Client que usan los stores.
type redisKV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisRefreshTokenStore struct {
	client redisKV
	prefix string
}

func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return newRedisRefreshTokenStore(client)
}

func newRedisRefreshTokenStore(client redisKV) *redisRefreshTokenStore {
	return &redisRefreshTokenStore{
		client: client,
		prefix: "finsync:refresh:",
	}
}

func (s *redisRefreshTokenStore) Store(jti, userID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+jti, userID, ttl).Err()
}

func (s *redisRefreshTokenStore) Owner(jti string) (string, bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	userID, err := s.client.Get(ctx, s.prefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *redisRefreshTokenStore) Revoke(jti string) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+jti).Err()
}
