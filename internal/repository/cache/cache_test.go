package cache

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/jaennil/guide_helper/backend/offline/pkg/config"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
)

func configCache(backend string) config.Cache {
	return config.Cache{Version: "v1", Backend: backend}
}

func configRedis() config.Redis {
	return config.Redis{Addr: "localhost:6379"}
}

type storageFactory func(t *testing.T) Storage

func backends() map[string]storageFactory {
	return map[string]storageFactory{
		"map": func(t *testing.T) Storage {
			return NewMapStorage()
		},
		"sqlite": func(t *testing.T) Storage {
			s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "cache.db"), logger.NewNop())
			if err != nil {
				t.Fatalf("NewSQLiteStorage: %v", err)
			}
			return s
		},
		"filesystem": func(t *testing.T) Storage {
			s, err := NewFilesystemStorage(filepath.Join(t.TempDir(), "cache"))
			if err != nil {
				t.Fatalf("NewFilesystemStorage: %v", err)
			}
			return s
		},
		"instrumented": func(t *testing.T) Storage {
			return Instrument(NewMapStorage(), "test")
		},
	}
}

func pngResponse(body string) *entity.Response {
	return &entity.Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"image/png"}},
		Body:   []byte(body),
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Storage)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

func TestPutMatchRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		st, err := s.Open(ctx, "v1")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}

		url := "https://tile.openstreetmap.org/14/13835/7727.png"
		if err := st.Put(ctx, url, pngResponse("tile")); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, ok, err := st.Match(ctx, url)
		if err != nil || !ok {
			t.Fatalf("Match: ok=%v err=%v", ok, err)
		}
		if got.Status != http.StatusOK || string(got.Body) != "tile" {
			t.Fatalf("unexpected response %+v", got)
		}
		if got.ContentType() != "image/png" {
			t.Fatalf("content type lost: %q", got.ContentType())
		}
	})
}

func TestMatchMissIsNotAnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		st, _ := s.Open(ctx, "v1")

		got, ok, err := st.Match(ctx, "https://example.com/missing")
		if err != nil || ok || got != nil {
			t.Fatalf("expected clean miss, got %v %v %v", got, ok, err)
		}
	})
}

func TestMatchIsExactIncludingQuery(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		st, _ := s.Open(ctx, "v1")

		if err := st.Put(ctx, "https://app.local/data.json?v=1", pngResponse("one")); err != nil {
			t.Fatalf("Put: %v", err)
		}

		if _, ok, _ := st.Match(ctx, "https://app.local/data.json?v=2"); ok {
			t.Fatal("different query string must miss")
		}
		if _, ok, _ := st.Match(ctx, "https://app.local/data.json"); ok {
			t.Fatal("missing query string must miss")
		}
	})
}

func TestPutOverwrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		st, _ := s.Open(ctx, "v1")
		url := "https://app.local/index.html"

		st.Put(ctx, url, pngResponse("old"))
		st.Put(ctx, url, pngResponse("new"))

		got, _, _ := st.Match(ctx, url)
		if string(got.Body) != "new" {
			t.Fatalf("expected overwrite, got %q", got.Body)
		}

		keys, err := st.Keys(ctx)
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		if len(keys) != 1 {
			t.Fatalf("expected one entry per url, got %v", keys)
		}
	})
}

func TestDeleteAndKeys(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		st, _ := s.Open(ctx, "v1")

		for _, u := range []string{"https://a/2", "https://a/1", "https://a/3"} {
			if err := st.Put(ctx, u, pngResponse(u)); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}

		deleted, err := st.Delete(ctx, "https://a/2")
		if err != nil || !deleted {
			t.Fatalf("Delete: %v %v", deleted, err)
		}
		deleted, err = st.Delete(ctx, "https://a/2")
		if err != nil || deleted {
			t.Fatalf("second Delete should report false: %v %v", deleted, err)
		}

		keys, _ := st.Keys(ctx)
		if !slices.Equal(keys, []string{"https://a/1", "https://a/3"}) {
			t.Fatalf("unexpected keys %v", keys)
		}
	})
}

func TestOpenIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		first, _ := s.Open(ctx, "v1")
		first.Put(ctx, "https://a/1", pngResponse("x"))

		second, err := s.Open(ctx, "v1")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, ok, _ := second.Match(ctx, "https://a/1"); !ok {
			t.Fatal("reopened store lost entry")
		}

		versions, _ := s.Versions(ctx)
		if !slices.Equal(versions, []string{"v1"}) {
			t.Fatalf("unexpected versions %v", versions)
		}
	})
}

func TestVersionsAreIsolatedAndDeletable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		old, _ := s.Open(ctx, "offline-map-cache-v2")
		cur, _ := s.Open(ctx, "offline-map-cache-v3")

		old.Put(ctx, "https://a/1", pngResponse("old"))
		if _, ok, _ := cur.Match(ctx, "https://a/1"); ok {
			t.Fatal("entry leaked across versions")
		}

		deleted, err := s.DeleteVersion(ctx, "offline-map-cache-v2")
		if err != nil || !deleted {
			t.Fatalf("DeleteVersion: %v %v", deleted, err)
		}

		versions, _ := s.Versions(ctx)
		if !slices.Equal(versions, []string{"offline-map-cache-v3"}) {
			t.Fatalf("unexpected versions %v", versions)
		}

		reopened, _ := s.Open(ctx, "offline-map-cache-v2")
		if _, ok, _ := reopened.Match(ctx, "https://a/1"); ok {
			t.Fatal("deleted version still serves entries")
		}

		deleted, err = s.DeleteVersion(ctx, "never-existed")
		if err != nil || deleted {
			t.Fatalf("deleting unknown version: %v %v", deleted, err)
		}
	})
}

func TestMatchedResponseIsIndependentCopy(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		st, _ := s.Open(ctx, "v1")
		st.Put(ctx, "https://a/1", pngResponse("x"))

		got, _, _ := st.Match(ctx, "https://a/1")
		got.Header.Set("Content-Type", "text/plain")

		again, _, _ := st.Match(ctx, "https://a/1")
		if again.ContentType() != "image/png" {
			t.Fatal("mutating a matched response changed the stored entry")
		}
	})
}

func TestConcurrentPutsSameKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		st, _ := s.Open(ctx, "v1")

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := st.Put(ctx, "https://a/same", pngResponse(fmt.Sprintf("body-%d", i))); err != nil {
					t.Errorf("Put: %v", err)
				}
			}()
		}
		wg.Wait()

		got, ok, err := st.Match(ctx, "https://a/same")
		if err != nil || !ok {
			t.Fatalf("Match: %v %v", ok, err)
		}
		if !bytes.HasPrefix(got.Body, []byte("body-")) {
			t.Fatalf("unexpected body %q", got.Body)
		}
	})
}

func TestFilesystemVersionNamesAreEscaped(t *testing.T) {
	ctx := context.Background()
	s, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStorage: %v", err)
	}

	if _, err := s.Open(ctx, "team/v1"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	versions, _ := s.Versions(ctx)
	if !slices.Equal(versions, []string{"team/v1"}) {
		t.Fatalf("unexpected versions %v", versions)
	}
}

func TestNewStorageRejectsUnknownBackend(t *testing.T) {
	_, err := NewStorage(configCache("memcached"), configRedis(), logger.NewNop())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStorageMap(t *testing.T) {
	s, err := NewStorage(configCache(BackendMap), configRedis(), logger.NewNop())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	defer s.Close()

	if _, err := s.Open(context.Background(), "v1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
}

func TestRedisKeyLayout(t *testing.T) {
	s := newRedisStorage(nil, "")
	if s.versionsKey() != "offline:versions" {
		t.Fatalf("unexpected versions key %q", s.versionsKey())
	}
	if s.entriesKey("offline-map-cache-v3") != "offline:cache:offline-map-cache-v3" {
		t.Fatalf("unexpected entries key %q", s.entriesKey("offline-map-cache-v3"))
	}
}

func TestEntryCodecRoundTrip(t *testing.T) {
	in := &entity.Response{
		Status: http.StatusNotFound,
		Header: http.Header{"X-Test": []string{"a", "b"}},
		Body:   []byte{0x89, 'P', 'N', 'G'},
	}

	b, err := encodeEntry("https://a/1", in)
	if err != nil {
		t.Fatalf("encodeEntry: %v", err)
	}

	url, out, err := decodeEntry(b)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	if url != "https://a/1" || out.Status != in.Status || !bytes.Equal(out.Body, in.Body) {
		t.Fatalf("mismatch: %q %+v", url, out)
	}
	if !slices.Equal(out.Header.Values("X-Test"), []string{"a", "b"}) {
		t.Fatalf("header mismatch: %v", out.Header)
	}
}
