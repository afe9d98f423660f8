package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"broadcast/internal/logx"
)

// Kind names a class of cached artifact and fixes its directory and extension.
type Kind string

const (
	KindHeadshot   Kind = "headshot"
	KindClip       Kind = "clip"
	KindRaw        Kind = "raw"
	KindNormalized Kind = "normalized"
)

// Kinds lists every artifact kind in display order.
var Kinds = []Kind{KindHeadshot, KindClip, KindRaw, KindNormalized}

// Dir is the directory beneath the cache root holding this kind.
func (k Kind) Dir() string {
	switch k {
	case KindHeadshot:
		return "headshots"
	case KindClip:
		return "clips"
	case KindRaw:
		return "raw"
	case KindNormalized:
		return "normalized"
	default:
		return sanitizeSegment(string(k))
	}
}

// Ext is the file extension for this kind.
func (k Kind) Ext() string {
	if k == KindHeadshot {
		return ".jpg"
	}
	return ".mp4"
}

// Key returns the store key for id, or an error when id sanitizes to nothing.
func (k Kind) Key(id string) (string, error) {
	name := sanitizeSegment(id)
	if name == "" {
		return "", fmt.Errorf("invalid %s id %q", k, id)
	}
	return k.Dir() + "/" + name + k.Ext(), nil
}

// ParseKind maps a user-supplied kind name to a Kind.
func ParseKind(value string) (Kind, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, k := range Kinds {
		if v == string(k) || v == k.Dir() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown cache kind %q", value)
}

// Fetcher streams an artifact's bytes to w.
type Fetcher func(ctx context.Context, w io.Writer) error

// ErrFetchFailed matches every FetchFailedError via errors.Is.
var ErrFetchFailed = errors.New("fetch failed")

// FetchFailedError reports that an artifact could not be fetched or produced.
type FetchFailedError struct {
	Kind Kind
	ID   string
	Err  error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

func (e *FetchFailedError) Is(target error) bool { return target == ErrFetchFailed }

// Cache is an idempotent fetch-or-get layer over a Store.
type Cache struct {
	Store   Store
	Catalog *Catalog
	// LockDir holds per-key advisory locks shared with other processes.
	// Empty disables cross-process locking.
	LockDir string
	Logger  logx.Logger

	group singleflight.Group
}

// New wraps store without a catalog or cross-process locks.
func New(store Store, logger logx.Logger) *Cache {
	return &Cache{Store: store, Logger: logx.OrDiscard(logger)}
}

// Open builds a filesystem cache rooted at root with a SQLite catalog.
func Open(root string, logger logx.Logger) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache root: %w", err)
	}
	catalog, err := OpenCatalog(filepath.Join(root, "catalog.db"))
	if err != nil {
		return nil, err
	}
	return &Cache{
		Store:   NewFSStore(root),
		Catalog: catalog,
		LockDir: filepath.Join(root, ".locks"),
		Logger:  logx.OrDiscard(logger),
	}, nil
}

// Close releases the catalog.
func (c *Cache) Close() error {
	if c == nil || c.Catalog == nil {
		return nil
	}
	return c.Catalog.Close()
}

// Root returns the filesystem root when the cache is disk backed.
func (c *Cache) Root() string {
	if fs, ok := c.Store.(*FSStore); ok {
		return fs.Root
	}
	return ""
}

// Lookup returns the path of a published artifact without fetching it.
func (c *Cache) Lookup(kind Kind, id string) (string, bool) {
	key, err := kind.Key(id)
	if err != nil || !c.Store.Exists(key) {
		return "", false
	}
	path, err := c.Store.Get(key)
	if err != nil {
		return "", false
	}
	return path, true
}

// FetchOrGet returns the cached path for (kind, id), calling fetcher only on a
// miss. Concurrent callers for the same key share one fetch.
func (c *Cache) FetchOrGet(ctx context.Context, kind Kind, id string, fetcher Fetcher) (string, error) {
	return c.FetchOrTransform(ctx, kind, id, func(ctx context.Context, dest string) error {
		f, err := os.OpenFile(dest, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("open temp file: %w", err)
		}
		if err := fetcher(ctx, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// FetchOrTransform is FetchOrGet for artifacts produced by writing a file,
// typically an external tool deriving one cache entry from another.
func (c *Cache) FetchOrTransform(ctx context.Context, kind Kind, id string, produce Producer) (string, error) {
	key, err := kind.Key(id)
	if err != nil {
		return "", &FetchFailedError{Kind: kind, ID: id, Err: err}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, kind, id, key, produce)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) fetch(ctx context.Context, kind Kind, id, key string, produce Producer) (string, error) {
	if path, ok := c.hit(ctx, kind, id, key); ok {
		return path, nil
	}

	if c.LockDir != "" {
		unlock, err := c.lock(ctx, key)
		if err != nil {
			return "", &FetchFailedError{Kind: kind, ID: id, Err: err}
		}
		defer unlock()
		// Another process may have published while we waited.
		if path, ok := c.hit(ctx, kind, id, key); ok {
			return path, nil
		}
	}

	c.logf("cache miss kind=%s id=%s", kind, id)
	path, err := c.Store.Put(ctx, key, produce)
	if err != nil {
		c.logf("cache fetch failed kind=%s id=%s err=%v", kind, id, err)
		return "", &FetchFailedError{Kind: kind, ID: id, Err: err}
	}

	if c.Catalog != nil {
		entry := Entry{Kind: kind, ID: id, Path: path}
		if info, statErr := os.Stat(path); statErr == nil {
			entry.SizeBytes = info.Size()
		}
		if err := c.Catalog.Record(ctx, entry); err != nil {
			c.logf("catalog record kind=%s id=%s err=%v", kind, id, err)
		}
	}
	return path, nil
}

func (c *Cache) hit(ctx context.Context, kind Kind, id, key string) (string, bool) {
	if !c.Store.Exists(key) {
		return "", false
	}
	path, err := c.Store.Get(key)
	if err != nil {
		return "", false
	}
	if c.Catalog != nil {
		if err := c.Catalog.Touch(ctx, kind, id, path); err != nil {
			c.logf("catalog touch kind=%s id=%s err=%v", kind, id, err)
		}
	}
	return path, true
}

func (c *Cache) lock(ctx context.Context, key string) (func(), error) {
	if err := os.MkdirAll(c.LockDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}
	name := strings.ReplaceAll(key, "/", "_") + ".lock"
	lock := flock.New(filepath.Join(c.LockDir, name))
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", key)
	}
	return func() { _ = lock.Unlock() }, nil
}

// Label attaches a human-readable source description to a catalog entry.
func (c *Cache) Label(ctx context.Context, kind Kind, id, source string) {
	if c.Catalog == nil {
		return
	}
	if err := c.Catalog.Label(ctx, kind, id, source); err != nil {
		c.logf("catalog label kind=%s id=%s err=%v", kind, id, err)
	}
}

func (c *Cache) logf(format string, v ...any) {
	if c == nil || c.Logger == nil {
		return
	}
	c.Logger.Printf(format, v...)
}

func sanitizeSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var builder strings.Builder
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '.':
			builder.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				builder.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	result := strings.Trim(builder.String(), "_.-")
	if len(result) > 150 {
		result = result[:150]
	}
	return result
}
