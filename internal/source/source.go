// Package source fetches spreadsheet exports over HTTP with a short-lived raw cache.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/quiz"
)

// DefaultCacheTTL is how long a fetched sheet is reused.
const DefaultCacheTTL = time.Hour

const maxBodyBytes = 32 << 20

// Entry is one cached response body.
type Entry struct {
	FetchedAt time.Time `json:"fetched_at"`
	Raw       string    `json:"raw"`
}

// Cache stores the last fetched body per mode.
type Cache interface {
	GetRaw(ctx context.Context, mode model.Mode) (*Entry, error)
	PutRaw(ctx context.Context, mode model.Mode, e Entry) error
}

// Clearer is implemented by caches that can drop every stored body.
type Clearer interface {
	ClearRaw(ctx context.Context) error
}

// HashRecorder remembers the content hash of each fetched body.
type HashRecorder interface {
	GetMetadata(key string) (string, error)
	SetMetadata(key, value string) error
}

// Fetcher retrieves sheets by mode.
type Fetcher struct {
	urls   map[model.Mode]string
	client *http.Client
	cache  Cache
	ttl    time.Duration
	hashes HashRecorder
	now    func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCache enables the raw cache with the given TTL.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = c
		f.ttl = ttl
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithHashRecorder logs when a sheet's content changes between fetches.
func WithHashRecorder(h HashRecorder) Option {
	return func(f *Fetcher) { f.hashes = h }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// New creates a Fetcher for the given per-mode URLs.
func New(urls map[model.Mode]string, opts ...Option) *Fetcher {
	f := &Fetcher{
		urls:   urls,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// URL returns the configured URL for mode.
func (f *Fetcher) URL(mode model.Mode) string {
	return f.urls[mode]
}

// ClearCache empties the raw cache so the next Fetch goes to the network.
// It is a no-op without a cache or when the cache cannot be cleared.
func (f *Fetcher) ClearCache(ctx context.Context) error {
	c, ok := f.cache.(Clearer)
	if !ok {
		return nil
	}
	if err := c.ClearRaw(ctx); err != nil {
		return fmt.Errorf("clear raw cache: %w", err)
	}
	return nil
}

// Fetch returns the sheet body for mode, from cache when still fresh.
func (f *Fetcher) Fetch(ctx context.Context, mode model.Mode) ([]byte, error) {
	url, ok := f.urls[mode]
	if !ok || url == "" {
		return nil, &quiz.FetchError{Mode: mode, Err: fmt.Errorf("%w: no source URL configured", quiz.ErrUnknownMode)}
	}

	if f.cache != nil && f.ttl > 0 {
		e, err := f.cache.GetRaw(ctx, mode)
		if err != nil {
			slog.Warn("raw cache read failed", "mode", mode, "error", err)
		} else if e != nil && f.now().Sub(e.FetchedAt) < f.ttl {
			slog.Debug("using cached sheet", "mode", mode, "age", f.now().Sub(e.FetchedAt))
			return []byte(e.Raw), nil
		}
	}

	body, err := f.get(ctx, mode, url)
	if err != nil {
		return nil, err
	}

	if f.cache != nil && f.ttl > 0 {
		if err := f.cache.PutRaw(ctx, mode, Entry{FetchedAt: f.now(), Raw: string(body)}); err != nil {
			slog.Warn("raw cache write failed", "mode", mode, "error", err)
		}
	}
	f.recordHash(mode, body)
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, mode model.Mode, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &quiz.FetchError{Mode: mode, URL: url, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &quiz.FetchError{Mode: mode, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &quiz.FetchError{Mode: mode, URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &quiz.FetchError{Mode: mode, URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	slog.Info("fetched sheet", "mode", mode, "bytes", len(body))
	return body, nil
}

func (f *Fetcher) recordHash(mode model.Mode, body []byte) {
	if f.hashes == nil {
		return
	}
	key := "sheet_hash_" + string(mode)
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])

	stored, err := f.hashes.GetMetadata(key)
	if err != nil {
		slog.Warn("read sheet hash", "mode", mode, "error", err)
		return
	}
	if stored == hash {
		return
	}
	if stored != "" {
		slog.Info("sheet content changed since last fetch", "mode", mode)
	}
	if err := f.hashes.SetMetadata(key, hash); err != nil {
		slog.Warn("record sheet hash", "mode", mode, "error", err)
	}
}
