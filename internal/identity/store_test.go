package identity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisKV struct {
	values map[string]string
	ttl    time.Duration
	getErr error
}

func newMockRedisKV() *mockRedisKV {
	return &mockRedisKV{values: make(map[string]string)}
}

func (m *mockRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.values[key] = value.(string)
	m.ttl = expiration
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(m.values, k)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	if _, ok, err := store.Load(ctx); ok || err != nil {
		t.Fatalf("expected empty store, got %v,%v", ok, err)
	}
	want := Tokens{AccessToken: "a", RefreshToken: "r"}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx)
	if err != nil || !ok || got.AccessToken != "a" || got.RefreshToken != "r" {
		t.Fatalf("unexpected load: %+v,%v,%v", got, ok, err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected store cleared")
	}
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	mock := newMockRedisKV()
	store := &redisSessionStore{client: mock, key: "finsync:session:default", ttl: time.Hour}

	if _, ok, err := store.Load(ctx); ok || err != nil {
		t.Fatalf("expected missing session false,nil; got %v,%v", ok, err)
	}

	exp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, Tokens{AccessToken: "a", RefreshToken: "r", ExpiresAt: exp}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mock.ttl != time.Hour {
		t.Fatalf("unexpected ttl %v", mock.ttl)
	}
	var stored Tokens
	if err := json.Unmarshal([]byte(mock.values["finsync:session:default"]), &stored); err != nil {
		t.Fatalf("stored value not json: %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: %v,%v", ok, err)
	}
	if got.AccessToken != "a" || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected tokens: %+v", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected cleared session")
	}
}

func TestRedisSessionStore_LoadError(t *testing.T) {
	mock := newMockRedisKV()
	mock.getErr = errors.New("conn refused")
	store := &redisSessionStore{client: mock, key: "k", ttl: time.Hour}
	if _, _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestNewRedisSessionStore_NilClient(t *testing.T) {
	if store := NewRedisSessionStore(nil, "p", time.Hour); store != nil {
		t.Fatalf("expected nil store for nil client")
	}
}
