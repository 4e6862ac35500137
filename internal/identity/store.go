package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore guarda la sesión actual del proveedor (equivalente al almacenamiento local del SDK).
type SessionStore interface {
	Load(ctx context.Context) (Tokens, bool, error)
	Save(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
}

type memorySessionStore struct {
	mu     sync.Mutex
	tokens *Tokens
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{}
}

func (s *memorySessionStore) Load(_ context.Context) (Tokens, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return Tokens{}, false, nil
	}
	return *s.tokens, true, nil
}

func (s *memorySessionStore) Save(_ context.Context, tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := tokens
	s.tokens = &t
	return nil
}

func (s *memorySessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	return nil
}

type redisKVClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKVClient
	key    string
	ttl    time.Duration
}

// NewRedisSessionStore guarda la sesión bajo una clave por perfil, para que
// SilentReauthenticate la encuentre entre ejecuciones del cliente.
func NewRedisSessionStore(client *redis.Client, profile string, ttl time.Duration) SessionStore {
	if client == nil {
		return nil
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &redisSessionStore{
		client: client,
		key:    "finsync:session:" + profile,
		ttl:    ttl,
	}
}

func (s *redisSessionStore) Load(ctx context.Context) (Tokens, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return Tokens{}, false, nil
	}
	if err != nil {
		return Tokens{}, false, err
	}
	var tokens Tokens
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return Tokens{}, false, err
	}
	return tokens, true, nil
}

func (s *redisSessionStore) Save(ctx context.Context, tokens Tokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.key, string(data), s.ttl).Err()
}

func (s *redisSessionStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.key).Err()
}
