package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteStorage struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteStorage(path string, l logger.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// one writer at a time; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStorage{
		db:     db,
		logger: l,
	}

	err = s.runMigrations()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrations: %w", err)
	}

	l.Info("sqlite cache initialized", "path", path)

	return s, nil
}

func (s *SQLiteStorage) runMigrations() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	return goose.Up(s.db, "migrations")
}

var _ Storage = (*SQLiteStorage)(nil)

func (s *SQLiteStorage) Open(ctx context.Context, version string) (Store, error) {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO cache_versions (version) VALUES (?)`, version)
	if err != nil {
		return nil, fmt.Errorf("sqlite open version %q: %w", version, err)
	}

	return &SQLiteCache{db: s.db, version: version, logger: s.logger}, nil
}

func (s *SQLiteStorage) Versions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM cache_versions ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLiteStorage) DeleteVersion(ctx context.Context, version string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE version = ?`, version); err != nil {
		return false, fmt.Errorf("sqlite delete entries of %q: %w", version, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM cache_versions WHERE version = ?`, version)
	if err != nil {
		return false, fmt.Errorf("sqlite delete version %q: %w", version, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, tx.Commit()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type SQLiteCache struct {
	db      *sql.DB
	version string
	logger  logger.Logger
}

var _ Store = (*SQLiteCache)(nil)

func (c *SQLiteCache) Put(ctx context.Context, url string, resp *entity.Response) error {
	c.logger.Debug("sqlite cache put", "version", c.version, "url", url)

	headers, err := encodeHeader(resp.Header)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	query := `INSERT INTO cache_entries (version, url, status, headers, body)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(version, url) DO UPDATE SET
		status = excluded.status,
		headers = excluded.headers,
		body = excluded.body,
		stored_at = CURRENT_TIMESTAMP`

	_, err = c.db.ExecContext(ctx, query, c.version, url, resp.Status, headers, resp.Body)
	if err != nil {
		c.logger.Error("sqlite cache put failed", "version", c.version, "url", url, "error", err)
		return err
	}

	return nil
}

func (c *SQLiteCache) Match(ctx context.Context, url string) (*entity.Response, bool, error) {
	query := `SELECT status, headers, body
	FROM cache_entries
	WHERE version = ? AND url = ?`

	var (
		status  int
		headers []byte
		body    []byte
	)
	err := c.db.QueryRowContext(ctx, query, c.version, url).Scan(&status, &headers, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		c.logger.Error("sqlite cache match failed", "version", c.version, "url", url, "error", err)
		return nil, false, err
	}

	h, err := decodeHeader(headers)
	if err != nil {
		return nil, false, fmt.Errorf("decode headers: %w", err)
	}

	return &entity.Response{Status: status, Header: h, Body: body}, true, nil
}

func (c *SQLiteCache) Delete(ctx context.Context, url string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE version = ? AND url = ?`, c.version, url)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *SQLiteCache) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT url FROM cache_entries WHERE version = ? ORDER BY url`, c.version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
