package cache

import (
	"context"
	"errors"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
)

var ErrUnknownBackend = errors.New("unknown cache backend")

// Store holds at most one response per URL. The URL, query string included,
// is the exact lookup key. A miss is reported as (nil, false, nil).
type Store interface {
	Put(ctx context.Context, url string, resp *entity.Response) error
	Match(ctx context.Context, url string) (*entity.Response, bool, error)
	Delete(ctx context.Context, url string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// Storage namespaces stores by cache version.
type Storage interface {
	// Open returns the store for version, creating it if needed.
	// Opening the same version twice yields the same logical store.
	Open(ctx context.Context, version string) (Store, error)
	Versions(ctx context.Context) ([]string, error)
	DeleteVersion(ctx context.Context, version string) (bool, error)
	Close() error
}
