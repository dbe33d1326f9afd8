// Package cache keeps recent page analyses so repeated lookups of the same
// URL skip the network fetch.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/seo-optimizer/tag-inspector/analyzer"
)

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// ErrUnknownBackend is returned by New for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown cache backend")

// Store is implemented by every analysis cache backend
type Store interface {
	// Get returns the cached analysis for key, or found=false on a miss.
	Get(ctx context.Context, key string) (analysis *analyzer.PageAnalysis, found bool, err error)
	Set(ctx context.Context, key string, analysis *analyzer.PageAnalysis) error
	// Len reports the number of live entries
	Len(ctx context.Context) (int, error)
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Backend         string
	TTL             time.Duration
	CleanupInterval time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
}

// New builds the Store named by opts.Backend. A zero TTL disables caching.
func New(ctx context.Context, opts Options) (Store, error) {
	if opts.TTL <= 0 {
		return Noop{}, nil
	}

	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(opts.TTL, opts.CleanupInterval), nil
	case BackendRedis:
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.TTL)
	case BackendNone:
		return Noop{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

// Key generates a cache key for a normalized page URL
func Key(pageURL string) string {
	hash := md5.Sum([]byte(pageURL))
	return hex.EncodeToString(hash[:])
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string) (*analyzer.PageAnalysis, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, *analyzer.PageAnalysis) error        { return nil }
func (Noop) Len(context.Context) (int, error)                                  { return 0, nil }
func (Noop) Close() error                                                      { return nil }
