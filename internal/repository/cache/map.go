package cache

import (
	"context"
	"slices"
	"sync"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
)

type TypedSyncMap struct {
	m sync.Map
}

func (c *TypedSyncMap) Load(k string) (*entity.Response, bool) {
	v, exists := c.m.Load(k)
	if !exists {
		return nil, false
	}
	return v.(*entity.Response), exists
}

func (c *TypedSyncMap) Store(k string, v *entity.Response) {
	c.m.Store(k, v)
}

func (c *TypedSyncMap) Delete(k string) bool {
	_, loaded := c.m.LoadAndDelete(k)
	return loaded
}

func (c *TypedSyncMap) Keys() []string {
	var keys []string
	c.m.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}

// MapStorage keeps everything in process memory. Nothing survives a restart.
type MapStorage struct {
	mu     sync.Mutex
	stores map[string]*MapCache
}

func NewMapStorage() *MapStorage {
	return &MapStorage{
		stores: make(map[string]*MapCache),
	}
}

var _ Storage = (*MapStorage)(nil)

func (s *MapStorage) Open(_ context.Context, version string) (Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.stores[version]
	if !ok {
		c = NewMapCache()
		s.stores[version] = c
	}
	return c, nil
}

func (s *MapStorage) Versions(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := make([]string, 0, len(s.stores))
	for v := range s.stores {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}

func (s *MapStorage) DeleteVersion(_ context.Context, version string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.stores[version]
	delete(s.stores, version)
	return ok, nil
}

func (s *MapStorage) Close() error {
	return nil
}

type MapCache struct {
	m *TypedSyncMap
}

func NewMapCache() *MapCache {
	return &MapCache{
		m: &TypedSyncMap{},
	}
}

var _ Store = (*MapCache)(nil)

func (c *MapCache) Put(_ context.Context, url string, resp *entity.Response) error {
	c.m.Store(url, resp.Clone())
	return nil
}

func (c *MapCache) Match(_ context.Context, url string) (*entity.Response, bool, error) {
	v, exists := c.m.Load(url)
	if !exists {
		return nil, false, nil
	}
	return v.Clone(), true, nil
}

func (c *MapCache) Delete(_ context.Context, url string) (bool, error) {
	return c.m.Delete(url), nil
}

func (c *MapCache) Keys(_ context.Context) ([]string, error) {
	keys := c.m.Keys()
	slices.Sort(keys)
	return keys, nil
}
