package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/jaennil/guide_helper/backend/offline/internal/repository/cache"
)

const (
	testTileOrigin = "https://tile.example.org"
	testAppOrigin  = "https://app.example.org"
)

var errOffline = errors.New("network unreachable")

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	offline bool
	fail    map[string]bool
	status  map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, req *entity.Request) (*entity.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req.Method+" "+req.URL)
	if f.offline || f.fail[req.URL] {
		return nil, errOffline
	}

	status := http.StatusOK
	if s, ok := f.status[req.URL]; ok {
		status = s
	}

	contentType := "text/html"
	if strings.HasSuffix(req.URL, ".png") {
		contentType = "image/png"
	}
	return &entity.Response{
		Status: status,
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   []byte("body of " + req.URL),
		Source: entity.SourceNetwork,
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type collectingSink struct {
	mu     sync.Mutex
	events []entity.ProgressEvent
}

func (s *collectingSink) Publish(e entity.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *collectingSink) ofType(t entity.EventType) []entity.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.ProgressEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// spyStore records every call and optionally fails them.
type spyStore struct {
	cache.Store
	calls    int
	matchErr error
	putFail  map[string]bool
}

func newSpyStore() *spyStore {
	return &spyStore{Store: cache.NewMapCache()}
}

func (s *spyStore) Put(ctx context.Context, url string, resp *entity.Response) error {
	s.calls++
	if s.putFail[url] {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, url, resp)
}

func (s *spyStore) Match(ctx context.Context, url string) (*entity.Response, bool, error) {
	s.calls++
	if s.matchErr != nil {
		return nil, false, s.matchErr
	}
	return s.Store.Match(ctx, url)
}

type fakeController struct {
	claimed int
}

func (c *fakeController) Claim(context.Context) error {
	c.claimed++
	return nil
}
