// Package cache stores raw upstream responses on disk, one file per request.
//
// An entry lives at {dir}/{partition}-{md5(url)}.json and holds the response
// body verbatim. Entries never expire: existence is the only freshness check.
package cache

import (
	"context"
	"crypto/md5" //nolint:gosec // content address, not a security boundary
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/tftscrape/pkg/logger"
	"github.com/okian/tftscrape/pkg/metrics"
)

const fileExt = ".json"

// entryMode is the permission of written entries.
const entryMode fs.FileMode = 0o644

// Result is what a FetchFunc produced. NoStore marks a body that is returned
// to the caller but must not be persisted.
type Result struct {
	Body    json.RawMessage
	NoStore bool
}

// FetchFunc produces the response for a cache miss.
type FetchFunc func(ctx context.Context) (Result, error)

// Store is a directory of cached responses. It is meant for a single process.
type Store struct {
	dir    string
	logger logger.Logger
}

// New returns a store rooted at dir. The directory is created on first write.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string { return s.dir }

// Key returns the md5 hex digest of url.
func Key(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// Path returns the file an entry for (partition, url) lives at.
func (s *Store) Path(partition, url string) string {
	return filepath.Join(s.dir, partition+"-"+Key(url)+fileExt)
}

// GetOrFetch returns the cached body for (partition, url), calling fetch on a
// miss and persisting its result. When skipIfPresent is set and the entry
// exists, it returns (nil, nil) without reading the file. Errors from fetch
// are returned unchanged.
func (s *Store) GetOrFetch(ctx context.Context, partition, url string, fetch FetchFunc, skipIfPresent bool) (json.RawMessage, error) {
	path := s.Path(partition, url)

	if skipIfPresent {
		switch _, err := os.Stat(path); {
		case err == nil:
			metrics.RecordCacheLookup(partition, metrics.CacheSkip)
			return nil, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: stat %s: %v", ErrCacheIO, path, err)
		}
	} else {
		body, err := os.ReadFile(path)
		switch {
		case err == nil:
			metrics.RecordCacheLookup(partition, metrics.CacheHit)
			return body, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: read %s: %v", ErrCacheIO, path, err)
		}
	}

	metrics.RecordCacheLookup(partition, metrics.CacheMiss)
	res, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if res.NoStore {
		s.logger.Debug(ctx, "response not cached", logger.String("partition", partition), logger.String("url", url))
		return res.Body, nil
	}
	if err := s.write(path, res.Body); err != nil {
		return nil, err
	}
	metrics.RecordCacheWrite(partition)
	return res.Body, nil
}

// write stores body through a temp file and a rename so a reader never sees
// a partial entry.
func (s *Store) write(path string, body []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrCacheIO, s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %v", ErrCacheIO, s.dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %v", ErrCacheIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %v", ErrCacheIO, path, err)
	}
	if err := os.Chmod(tmpName, entryMode); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %v", ErrCacheIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename %s: %v", ErrCacheIO, path, err)
	}
	return nil
}

// Files lists the entries of partition in lexical order.
func (s *Store) Files(partition string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, partition+"-*"+fileExt))
	if err != nil {
		return nil, fmt.Errorf("%w: glob %s: %v", ErrCacheIO, partition, err)
	}
	sort.Strings(files)
	return files, nil
}

// Purge removes every entry whose partition matches the glob pattern and
// returns how many were removed. An empty pattern matches nothing.
func (s *Store) Purge(ctx context.Context, partitionGlob string) (int, error) {
	partitionGlob = strings.TrimSpace(partitionGlob)
	if partitionGlob == "" {
		return 0, nil
	}
	files, err := s.Files(partitionGlob)
	if err != nil {
		return 0, err
	}

	removed := 0
	defer func() { metrics.RecordCachePurged(removed) }()
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("%w: remove %s: %v", ErrCacheIO, f, err)
		}
		removed++
	}
	s.logger.Info(ctx, "cache purged", logger.String("partition", partitionGlob), logger.Int("removed", removed))
	return removed, nil
}
