package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok := m.Get(ctx, "missing"); ok {
		t.Fatal("Get on empty cache should miss")
	}

	m.Set(ctx, "k", []byte("value"), time.Minute)
	got, ok := m.Get(ctx, "k")
	if !ok {
		t.Fatal("Get after Set should hit")
	}
	if !bytes.Equal(got, []byte("value")) {
		t.Errorf("got %q, want %q", got, "value")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.clock = func() time.Time { return now }

	m.Set(ctx, "k", []byte("v"), time.Minute)

	now = now.Add(59 * time.Second)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("item expired early")
	}

	now = now.Add(2 * time.Second)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("item should have expired")
	}
}

func TestMemorySetSweepsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.clock = func() time.Time { return now }

	m.Set(ctx, "old1", []byte("v"), time.Second)
	m.Set(ctx, "old2", []byte("v"), time.Second)

	now = now.Add(time.Minute)
	m.Set(ctx, "fresh", []byte("v"), time.Minute)

	m.mu.RLock()
	n := len(m.items)
	m.mu.RUnlock()
	if n != 1 {
		t.Errorf("items after sweep = %d, want 1", n)
	}
}

func TestMemoryDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "contents:list:latest", []byte("a"), time.Minute)
	m.Set(ctx, "contents:item:1", []byte("b"), time.Minute)
	m.Set(ctx, "categories:all", []byte("c"), time.Minute)

	m.DeleteByPrefix(ctx, "contents:")

	if _, ok := m.Get(ctx, "contents:list:latest"); ok {
		t.Error("contents:list:latest should have been dropped")
	}
	if _, ok := m.Get(ctx, "contents:item:1"); ok {
		t.Error("contents:item:1 should have been dropped")
	}
	if _, ok := m.Get(ctx, "categories:all"); !ok {
		t.Error("categories:all should have survived")
	}
}
