package store

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/source"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRawCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Empty cache returns nil.
	e, err := s.GetRaw(ctx, model.ModePractice)
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if e != nil {
		t.Fatalf("expected nil entry, got %+v", e)
	}

	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.PutRaw(ctx, model.ModePractice, source.Entry{FetchedAt: fetched, Raw: "a,b\n1,2\n"}); err != nil {
		t.Fatalf("PutRaw: %v", err)
	}
	e, err = s.GetRaw(ctx, model.ModePractice)
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if e == nil || e.Raw != "a,b\n1,2\n" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.FetchedAt.Equal(fetched) {
		t.Errorf("FetchedAt = %v, want %v", e.FetchedAt, fetched)
	}

	// Modes are independent.
	other, err := s.GetRaw(ctx, model.ModeVocab)
	if err != nil {
		t.Fatalf("GetRaw vocab: %v", err)
	}
	if other != nil {
		t.Errorf("expected no vocab entry, got %+v", other)
	}

	// Update existing.
	if err := s.PutRaw(ctx, model.ModePractice, source.Entry{FetchedAt: fetched.Add(time.Hour), Raw: "x"}); err != nil {
		t.Fatalf("PutRaw update: %v", err)
	}
	e, _ = s.GetRaw(ctx, model.ModePractice)
	if e.Raw != "x" {
		t.Errorf("expected updated body, got %q", e.Raw)
	}

	if err := s.ClearRaw(ctx); err != nil {
		t.Fatalf("ClearRaw: %v", err)
	}
	e, _ = s.GetRaw(ctx, model.ModePractice)
	if e != nil {
		t.Errorf("expected cleared cache, got %+v", e)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	// Missing key returns empty string.
	v, err := s.GetMetadata("sheet_hash_practice")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value, got %q", v)
	}

	if err := s.SetMetadata("sheet_hash_practice", "abc123"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	v, err = s.GetMetadata("sheet_hash_practice")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "abc123" {
		t.Errorf("expected 'abc123', got %q", v)
	}

	// Update existing.
	if err := s.SetMetadata("sheet_hash_practice", "def456"); err != nil {
		t.Fatalf("SetMetadata update: %v", err)
	}
	v, _ = s.GetMetadata("sheet_hash_practice")
	if v != "def456" {
		t.Errorf("expected 'def456', got %q", v)
	}
}

func TestStoreSatisfiesSourceInterfaces(t *testing.T) {
	var _ source.Cache = newTestStore(t)
	var _ source.Clearer = newTestStore(t)
	var _ source.HashRecorder = newTestStore(t)
}
