package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisLockAcquireAndRelease(t *testing.T) {
	t.Parallel()

	store := newStubRedisStore()
	lock, err := NewRedisLock(store, "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got ok=%v err=%v", ok, err)
	}

	second, err := NewRedisLock(store, "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("expected contended acquire to fail, got ok=%v err=%v", ok, err)
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected acquire after release to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	t.Parallel()

	store := newStubRedisStore()
	lock, err := NewRedisLock(store, "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Never acquired: release is a no-op even though someone holds the key.
	store.values["test:lock"] = "someone-else"
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, held := store.values["test:lock"]; !held {
		t.Fatal("release must not delete another owner's lock")
	}
}

type stubRedisStore struct {
	values map[string]string
}

func newStubRedisStore() *stubRedisStore {
	return &stubRedisStore{values: map[string]string{}}
}

func (s *stubRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubRedisStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *stubRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}
