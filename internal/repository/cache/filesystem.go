package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
)

const entryExt = ".entry"

// FilesystemStorage layout: {root}/{escaped version}/{xxhash(url)}.entry
type FilesystemStorage struct {
	root string
}

func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FilesystemStorage{root: root}, nil
}

var _ Storage = (*FilesystemStorage)(nil)

func (s *FilesystemStorage) versionDir(version string) string {
	return filepath.Join(s.root, url.PathEscape(version))
}

func (s *FilesystemStorage) Open(_ context.Context, version string) (Store, error) {
	dir := s.versionDir(version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create version directory: %w", err)
	}

	return &FilesystemCache{dir: dir}, nil
}

func (s *FilesystemStorage) Versions(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}

func (s *FilesystemStorage) DeleteVersion(_ context.Context, version string) (bool, error) {
	dir := s.versionDir(version)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if err := os.RemoveAll(dir); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FilesystemStorage) Close() error {
	return nil
}

type FilesystemCache struct {
	dir string
}

var _ Store = (*FilesystemCache)(nil)

func (c *FilesystemCache) keyToPath(k string) string {
	return filepath.Join(c.dir, strconv.FormatUint(xxhash.Sum64String(k), 16)+entryExt)
}

func (c *FilesystemCache) Put(_ context.Context, url string, resp *entity.Response) error {
	b, err := encodeEntry(url, resp)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, c.keyToPath(url)); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (c *FilesystemCache) Match(_ context.Context, url string) (*entity.Response, bool, error) {
	content, err := os.ReadFile(c.keyToPath(url))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	stored, resp, err := decodeEntry(content)
	if err != nil {
		return nil, false, err
	}
	// hash collision
	if stored != url {
		return nil, false, nil
	}
	return resp, true, nil
}

func (c *FilesystemCache) Delete(ctx context.Context, url string) (bool, error) {
	_, ok, err := c.Match(ctx, url)
	if err != nil || !ok {
		return false, err
	}

	if err := os.Remove(c.keyToPath(url)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *FilesystemCache) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			// removed concurrently
			continue
		}
		u, _, err := decodeEntry(content)
		if err != nil {
			return nil, err
		}
		keys = append(keys, u)
	}
	slices.Sort(keys)
	return keys, nil
}
