// Package registry keeps issued bracket specs until their result is submitted
// or they expire. Nothing here is durable; expiry is the only cleanup.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twobeats/worldcup/internal/domain/model"
)

// Backends accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Sentinel kinds for registry errors.
var (
	ErrNotFound       = model.ErrNotFound
	ErrExists         = errors.New("bracket already registered")
	ErrUnknownBackend = errors.New("unknown registry backend")
)

// Registry stores issued brackets for a bounded time.
type Registry interface {
	// Put stores spec for ttl. Putting an id twice fails with ErrExists.
	Put(ctx context.Context, spec model.BracketSpec, ttl time.Duration) error

	// Get returns a live spec or ErrNotFound.
	Get(ctx context.Context, id string) (model.BracketSpec, error)

	Close() error
}

// New builds the registry named by backend.
func New(ctx context.Context, backend string, opts ...Option) (Registry, error) {
	cfg := config{maxEntries: defaultMaxEntries, keyPrefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	switch backend {
	case "", BackendMemory:
		return NewMemory(cfg.maxEntries), nil
	case BackendRedis:
		return NewRedis(ctx, cfg.redisURL, cfg.keyPrefix)
	default:
		return nil, fmt.Errorf("%q: %w", backend, ErrUnknownBackend)
	}
}

// Option configures New.
type Option func(*config)

type config struct {
	maxEntries int
	redisURL   string
	keyPrefix  string
}

// WithMaxEntries bounds the in-memory backend.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithRedisURL sets the redis:// or rediss:// URL of the Redis backend.
func WithRedisURL(url string) Option {
	return func(c *config) { c.redisURL = url }
}

// WithKeyPrefix overrides the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

type candidateRecord struct {
	ID           uint64   `json:"id"`
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	Genre        string   `json:"genre"`
	Tags         []string `json:"tags,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	FileURL      string   `json:"file_url,omitempty"`
}

type specRecord struct {
	ID         string            `json:"id"`
	Size       int               `json:"size"`
	Slots      []uint64          `json:"slots"`
	Candidates []candidateRecord `json:"candidates"`
	IssuedAt   time.Time         `json:"issued_at"`
}

func encodeSpec(spec model.BracketSpec) ([]byte, error) {
	rec := specRecord{
		ID:         spec.ID,
		Size:       spec.Size,
		Slots:      make([]uint64, len(spec.Slots)),
		Candidates: make([]candidateRecord, len(spec.Candidates)),
		IssuedAt:   spec.IssuedAt,
	}
	for i, id := range spec.Slots {
		rec.Slots[i] = uint64(id)
	}
	for i, c := range spec.Candidates {
		rec.Candidates[i] = candidateRecord{
			ID: uint64(c.ID), Title: c.Title, Artist: c.Artist, Genre: string(c.Genre),
			Tags: c.Tags, ThumbnailURL: c.ThumbnailURL, FileURL: c.FileURL,
		}
	}
	return json.Marshal(rec)
}

func decodeSpec(data []byte) (model.BracketSpec, error) {
	var rec specRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.BracketSpec{}, fmt.Errorf("decode bracket: %w", err)
	}
	spec := model.BracketSpec{
		ID:         rec.ID,
		Size:       rec.Size,
		Slots:      make([]model.CandidateID, len(rec.Slots)),
		Candidates: make([]model.Candidate, len(rec.Candidates)),
		IssuedAt:   rec.IssuedAt,
	}
	for i, id := range rec.Slots {
		spec.Slots[i] = model.CandidateID(id)
	}
	for i, c := range rec.Candidates {
		spec.Candidates[i] = model.Candidate{
			ID: model.CandidateID(c.ID), Title: c.Title, Artist: c.Artist, Genre: model.Genre(c.Genre),
			Tags: c.Tags, ThumbnailURL: c.ThumbnailURL, FileURL: c.FileURL,
		}
	}
	return spec, nil
}
