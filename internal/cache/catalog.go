package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const catalogTable = "cache_entries"

// Catalog records published cache entries in SQLite. It is advisory: a
// missing row never changes hit or miss behaviour.
type Catalog struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Entry is one catalogued artifact.
type Entry struct {
	Kind       Kind
	ID         string
	Path       string
	SizeBytes  int64
	Source     string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// KindStats aggregates entries of one kind.
type KindStats struct {
	Kind      Kind
	Count     int
	SizeBytes int64
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// OpenCatalog opens or creates the catalog database at path.
func OpenCatalog(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	c := &Catalog{db: db, path: path, now: time.Now}
	if err := c.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Path returns the database file location.
func (c *Catalog) Path() string { return c.path }

// Close closes the database.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Catalog) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+catalogTable+` (
        kind TEXT NOT NULL,
        id TEXT NOT NULL,
        path TEXT NOT NULL,
        size_bytes INTEGER NOT NULL DEFAULT 0,
        source TEXT NOT NULL DEFAULT '',
        created_at INTEGER NOT NULL,
        last_used_at INTEGER NOT NULL,
        PRIMARY KEY (kind, id)
    )`)
	if err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

// Record upserts an entry. CreatedAt is kept from the first insert.
func (c *Catalog) Record(ctx context.Context, e Entry) error {
	now := c.now().UTC().UnixNano()
	query, args, err := psql.Insert(catalogTable).
		Columns("kind", "id", "path", "size_bytes", "source", "created_at", "last_used_at").
		Values(string(e.Kind), e.ID, e.Path, e.SizeBytes, e.Source, now, now).
		Suffix("ON CONFLICT(kind, id) DO UPDATE SET path = excluded.path, size_bytes = excluded.size_bytes, last_used_at = excluded.last_used_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record %s %s: %w", e.Kind, e.ID, err)
	}
	return nil
}

// Touch marks an entry as used now, inserting it when the catalog lost track
// of a file that is still on disk.
func (c *Catalog) Touch(ctx context.Context, kind Kind, id, path string) error {
	query, args, err := psql.Update(catalogTable).
		Set("last_used_at", c.now().UTC().UnixNano()).
		Where(sq.Eq{"kind": string(kind), "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("touch %s %s: %w", kind, id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	entry := Entry{Kind: kind, ID: id, Path: path}
	if info, statErr := os.Stat(path); statErr == nil {
		entry.SizeBytes = info.Size()
	}
	return c.Record(ctx, entry)
}

// Label sets the source description of an entry.
func (c *Catalog) Label(ctx context.Context, kind Kind, id, source string) error {
	query, args, err := psql.Update(catalogTable).
		Set("source", source).
		Where(sq.Eq{"kind": string(kind), "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("label %s %s: %w", kind, id, err)
	}
	return nil
}

// List returns entries of kind ordered by kind and id; an empty kind lists all.
func (c *Catalog) List(ctx context.Context, kind Kind) ([]Entry, error) {
	builder := psql.Select("kind", "id", "path", "size_bytes", "source", "created_at", "last_used_at").
		From(catalogTable).
		OrderBy("kind", "id")
	if kind != "" {
		builder = builder.Where(sq.Eq{"kind": string(kind)})
	}
	return c.query(ctx, builder)
}

// Stats returns per-kind counts and sizes.
func (c *Catalog) Stats(ctx context.Context) ([]KindStats, error) {
	query, args, err := psql.Select("kind", "COUNT(*)", "COALESCE(SUM(size_bytes), 0)").
		From(catalogTable).
		GroupBy("kind").
		OrderBy("kind").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []KindStats
	for rows.Next() {
		var (
			kind string
			s    KindStats
		)
		if err := rows.Scan(&kind, &s.Count, &s.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		s.Kind = Kind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune removes entries not used since cutoff, deleting their files. With
// dryRun it only reports what would be removed.
func (c *Catalog) Prune(ctx context.Context, cutoff time.Time, dryRun bool) ([]Entry, error) {
	stale, err := c.query(ctx, psql.Select("kind", "id", "path", "size_bytes", "source", "created_at", "last_used_at").
		From(catalogTable).
		Where(sq.Lt{"last_used_at": cutoff.UTC().UnixNano()}).
		OrderBy("kind", "id"))
	if err != nil {
		return nil, err
	}
	if dryRun {
		return stale, nil
	}

	for _, e := range stale {
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove %s: %w", e.Path, err)
		}
		query, args, err := psql.Delete(catalogTable).
			Where(sq.Eq{"kind": string(e.Kind), "id": e.ID}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build delete: %w", err)
		}
		if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("delete %s %s: %w", e.Kind, e.ID, err)
		}
	}
	return stale, nil
}

func (c *Catalog) query(ctx context.Context, builder sq.SelectBuilder) ([]Entry, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			kind              string
			e                 Entry
			created, lastUsed int64
		)
		if err := rows.Scan(&kind, &e.ID, &e.Path, &e.SizeBytes, &e.Source, &created, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = Kind(kind)
		e.CreatedAt = time.Unix(0, created).UTC()
		e.LastUsedAt = time.Unix(0, lastUsed).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
