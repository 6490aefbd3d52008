package cache

import (
	"context"
	"time"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/jaennil/guide_helper/backend/offline/pkg/metrics"
)

func observe(backend, op string, start time.Time, err error) {
	metrics.CacheOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CacheErrors.WithLabelValues(backend, op).Inc()
	}
}

type instrumentedStorage struct {
	next    Storage
	backend string
}

// Instrument records Prometheus timings and errors for every storage and store call.
func Instrument(s Storage, backend string) Storage {
	return &instrumentedStorage{next: s, backend: backend}
}

func (s *instrumentedStorage) Open(ctx context.Context, version string) (Store, error) {
	start := time.Now()
	st, err := s.next.Open(ctx, version)
	observe(s.backend, "open", start, err)
	if err != nil {
		return nil, err
	}
	return &instrumentedStore{next: st, backend: s.backend}, nil
}

func (s *instrumentedStorage) Versions(ctx context.Context) ([]string, error) {
	start := time.Now()
	v, err := s.next.Versions(ctx)
	observe(s.backend, "versions", start, err)
	return v, err
}

func (s *instrumentedStorage) DeleteVersion(ctx context.Context, version string) (bool, error) {
	start := time.Now()
	ok, err := s.next.DeleteVersion(ctx, version)
	observe(s.backend, "delete_version", start, err)
	return ok, err
}

func (s *instrumentedStorage) Close() error {
	return s.next.Close()
}

type instrumentedStore struct {
	next    Store
	backend string
}

func (s *instrumentedStore) Put(ctx context.Context, url string, resp *entity.Response) error {
	start := time.Now()
	err := s.next.Put(ctx, url, resp)
	observe(s.backend, "put", start, err)
	return err
}

func (s *instrumentedStore) Match(ctx context.Context, url string) (*entity.Response, bool, error) {
	start := time.Now()
	resp, ok, err := s.next.Match(ctx, url)
	observe(s.backend, "match", start, err)
	return resp, ok, err
}

func (s *instrumentedStore) Delete(ctx context.Context, url string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Delete(ctx, url)
	observe(s.backend, "delete", start, err)
	return ok, err
}

func (s *instrumentedStore) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.next.Keys(ctx)
	observe(s.backend, "keys", start, err)
	return keys, err
}
