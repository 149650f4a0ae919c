// Package assetcache resolves remote photo URLs to local files. Each
// distinct identity is downloaded at most once per session; concurrent
// requests for the same uncached identity share a single fetch.
package assetcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// Common errors for cache operations.
var (
	// ErrInvalidIdentity is returned when the asset identity does not
	// parse as a URL.
	ErrInvalidIdentity = errors.New("asset identity is not a valid URL")

	// ErrDownloadFailed is returned on network or storage errors while
	// fetching an asset.
	ErrDownloadFailed = errors.New("asset download failed")
)

// Stats holds cache performance counters.
type Stats struct {
	Hits      int64 // resolved without touching disk or network
	Misses    int64 // required a stat or download
	Downloads int64 // actual network fetches performed
}

// inflight tracks a fetch in progress so concurrent callers for the
// same identity block on it instead of downloading again.
type inflight struct {
	done chan struct{}
	path string
	err  error
}

// Cache is the content-addressable local store for question photos.
// Entries are append-only for the process lifetime; with at most seven
// assets per session there is nothing to evict.
type Cache struct {
	dir  string
	http *http.Client

	mu       sync.Mutex
	resolved map[string]string
	fetches  map[string]*inflight
	stats    Stats
}

// New creates a cache rooted at dir, creating it if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}
	return &Cache{
		dir:      dir,
		http:     http.DefaultClient,
		resolved: make(map[string]string),
		fetches:  make(map[string]*inflight),
	}, nil
}

// Ensure resolves identity to a local file path, downloading on first
// access. Repeated calls return the same path without re-downloading;
// if the backing file has been removed out from under us it is fetched
// again transparently.
func (c *Cache) Ensure(ctx context.Context, identity string) (string, error) {
	c.mu.Lock()
	if p, ok := c.resolved[identity]; ok {
		if fi, err := os.Stat(p); err == nil && fi.Size() > 0 {
			c.stats.Hits++
			c.mu.Unlock()
			return p, nil
		}
		// Backing file vanished or was truncated; drop the memo.
		delete(c.resolved, identity)
	}
	if f, ok := c.fetches[identity]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.path, f.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f := &inflight{done: make(chan struct{})}
	c.fetches[identity] = f
	c.stats.Misses++
	c.mu.Unlock()

	f.path, f.err = c.fetch(ctx, identity)

	c.mu.Lock()
	delete(c.fetches, identity)
	if f.err == nil {
		c.resolved[identity] = f.path
	}
	c.mu.Unlock()
	close(f.done)

	return f.path, f.err
}

// Stats returns a copy of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Cache) fetch(ctx context.Context, identity string) (string, error) {
	u, err := url.Parse(identity)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}

	dest := filepath.Join(c.dir, localName(u))

	// A non-empty existing file is reused as-is. This is a heuristic
	// against partial prior writes, not an integrity check; the asset
	// source is closed and well-formed.
	if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
		log.Debug("asset already cached", "path", dest, "size", fi.Size())
		return dest, nil
	}

	if err := c.download(ctx, u.String(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// download writes to a temp file first, then renames over any stale
// file at the destination.
func (c *Cache) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP status %d", ErrDownloadFailed, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	n, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	c.mu.Lock()
	c.stats.Downloads++
	c.mu.Unlock()

	log.Debug("asset downloaded", "url", rawURL, "path", dest, "bytes", n)
	return nil
}

// localName derives the cache filename from the URL's final path
// segment, or a digest-based name when the URL has none. ".." falls
// back to the digest too so dest can never escape the cache dir.
func localName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == ".." || name == "/" {
		sum := sha256.Sum256([]byte(u.String()))
		name = hex.EncodeToString(sum[:8]) + ".asset"
	}
	return name
}
