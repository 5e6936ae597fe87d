package store

import (
	"context"
	"testing"
)

func TestMemorySaveAndRead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if m.AccessToken(ctx) != "" || m.RefreshToken(ctx) != "" {
		t.Fatal("a fresh store must read empty")
	}
	if _, ok := m.CachedUser(ctx); ok {
		t.Fatal("a fresh store must have no cached user")
	}

	if err := m.Save(ctx, TokenPair{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if m.AccessToken(ctx) != "a1" || m.RefreshToken(ctx) != "r1" {
		t.Fatal("expected saved pair readable")
	}

	if err := m.SaveUser(ctx, CachedUser{Authenticated: true, Role: "teacher", Phone: "p", Name: "n"}); err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}
	user, ok := m.CachedUser(ctx)
	if !ok || user.Role != "teacher" {
		t.Fatalf("expected cached user, got %+v ok=%v", user, ok)
	}
}

func TestMemorySaveOverwritesWholesale(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Save(ctx, TokenPair{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := m.Save(ctx, TokenPair{AccessToken: "a2"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if m.AccessToken(ctx) != "a2" {
		t.Fatal("expected last write to win")
	}
	if m.RefreshToken(ctx) != "" {
		t.Fatal("Save replaces the whole pair, including an empty refresh token")
	}
}

func TestMemoryClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Save(ctx, TokenPair{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := m.SaveUser(ctx, CachedUser{Authenticated: true, Role: "admin", Phone: "p", Name: "n"}); err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if m.AccessToken(ctx) != "" || m.RefreshToken(ctx) != "" {
		t.Fatal("Clear must remove the token pair")
	}
	if _, ok := m.CachedUser(ctx); ok {
		t.Fatal("Clear must remove the cached user")
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("clearing an empty store must be a no-op: %v", err)
	}
}
