package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/countdown/internal/config"
	"github.com/goodtune/countdown/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays 0
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	record := storage.Record{DeadlineMillis: 1792821600000, SetAtMillis: 1791957600123}

	if err := store.Save(ctx, "user-1", record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != record {
		t.Errorf("Expected %+v, got %+v", record, *loaded)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	// Stray fields from an older writer must not survive an upsert
	mr.HSet(keyPrefix+"user-1", "legacy", "x")

	first := storage.Record{DeadlineMillis: 1000, SetAtMillis: 10}
	second := storage.Record{DeadlineMillis: 2000, SetAtMillis: 20}

	if err := store.Save(ctx, "user-1", first); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save(ctx, "user-1", second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if err := store.Save(ctx, "user-1", second); err != nil {
		t.Fatalf("repeated Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != second {
		t.Errorf("Expected %+v, got %+v", second, *loaded)
	}

	fields, err := mr.HKeys(keyPrefix + "user-1")
	if err != nil {
		t.Fatalf("HKeys failed: %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("Expected exactly 2 hash fields, got %v", fields)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	_, err := store.Load(context.Background(), "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if err := store.Save(ctx, "user-1", storage.Record{DeadlineMillis: 1, SetAtMillis: 1}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mr.Exists(keyPrefix + "user-1") {
		t.Error("Expected key to be removed")
	}

	// Deleting again is a no-op
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestStore_RequiresIdentity(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if err := store.Save(ctx, "", storage.Record{}); !errors.Is(err, storage.ErrInvalidIdentity) {
		t.Errorf("Save: expected ErrInvalidIdentity, got %v", err)
	}
	if _, err := store.Load(ctx, ""); !errors.Is(err, storage.ErrInvalidIdentity) {
		t.Errorf("Load: expected ErrInvalidIdentity, got %v", err)
	}
	if err := store.Delete(ctx, ""); !errors.Is(err, storage.ErrInvalidIdentity) {
		t.Errorf("Delete: expected ErrInvalidIdentity, got %v", err)
	}
}

func TestStore_CorruptHash(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	mr.HSet(keyPrefix+"user-1", "deadline_ts_ms", "soon", "set_at_ms", "1")

	if _, err := store.Load(context.Background(), "user-1"); err == nil {
		t.Fatal("Expected parse error for corrupt hash")
	}
}

func TestOpen_InvalidTimeout(t *testing.T) {
	_, err := Open(config.RedisConfig{Host: "127.0.0.1", DialTimeout: "soon", ReadTimeout: "1s", WriteTimeout: "1s"})
	if err == nil {
		t.Fatal("Expected error for invalid dial timeout")
	}
}
