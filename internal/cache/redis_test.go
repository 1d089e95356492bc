package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/source"
)

func TestKey(t *testing.T) {
	if got := Key(model.ModeVocab); got != "flashquiz:raw:vocab" {
		t.Errorf("Key(vocab) = %q", got)
	}
}

func TestDecodeEntry(t *testing.T) {
	e, err := decodeEntry([]byte(`{"fetched_at":"2026-01-02T03:04:05Z","raw":"word,group\n"}`))
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !e.FetchedAt.Equal(want) || e.Raw != "word,group\n" {
		t.Errorf("unexpected entry %+v", e)
	}

	if _, err := decodeEntry([]byte("not json")); err == nil {
		t.Error("expected error for malformed entry")
	}
}

func TestNewRedisRequiresAddress(t *testing.T) {
	if _, err := NewRedis(context.Background(), "", time.Hour); err == nil {
		t.Error("expected error for empty address")
	}
}

func TestRedisSatisfiesCache(t *testing.T) {
	var _ source.Cache = (*Redis)(nil)
	var _ source.Clearer = (*Redis)(nil)
}
