// Package cache provides the durable query-result cache.
//
// The store is a keyed file store: one JSON file per cache key under a
// cache directory shared by every CLI invocation. Writes go through a
// temporary file plus atomic rename, so concurrent processes never observe
// a partial entry; concurrent writers to the same key resolve last-write-
// wins, and writers to different keys never interfere.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/maxgreco/duckgs/internal/result"
)

const entryExt = ".json"

var errInvalidKey = errors.New("key is not a 64-character hex digest")

// validKey reports whether key looks like a Keyer output. Entry paths are
// built from keys, so anything else (path separators in particular) must
// never reach the filesystem.
func validKey(key string) bool {
	if len(key) != 64 {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// IOError wraps a failure to read or write the on-disk store. Callers
// treat it as a cache miss rather than a query failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// EntryInfo summarizes a stored entry for listings.
type EntryInfo struct {
	Key       string
	CreatedAt time.Time
	ExpiresAt *time.Time
	Rows      int
	SizeBytes int64
}

// Store is a handle to the on-disk cache. Open it at process start and
// Close it at process end; it holds no open files between operations.
type Store struct {
	dir string

	// now is swapped in tests to control expiry.
	now func() time.Time
}

// Open creates the cache directory if needed and returns a store handle.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, &IOError{Op: "open", Path: dir, Err: err}
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// Close releases the store handle. All writes are already durable at this
// point, so there is nothing to flush.
func (s *Store) Close() error { return nil }

// Get returns the cached result for key, or absent (nil, false) when the
// key was never written or its entry has expired. Expired entries are
// removed on the way out.
func (s *Store) Get(key string) (*result.Result, bool, error) {
	if !validKey(key) {
		return nil, false, &IOError{Op: "key", Path: key, Err: errInvalidKey}
	}
	path := s.entryPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &IOError{Op: "read", Path: path, Err: err}
	}

	e, err := decodeEntry(data)
	if err != nil {
		return nil, false, &IOError{Op: "decode", Path: path, Err: err}
	}

	if e.expired(s.now()) {
		// Lazy purge. A concurrent writer may have replaced the file
		// already; ignore the race and report absent either way.
		_ = os.Remove(path)
		return nil, false, nil
	}

	return &result.Result{Columns: e.Columns, Rows: e.Rows}, true, nil
}

// Put stores a result under key with no expiry, overwriting any existing
// entry for that key.
func (s *Store) Put(key string, res *result.Result) error {
	return s.put(key, res, nil)
}

// PutTTL stores a result that expires ttl from now. A zero or negative ttl
// stores an already-expired entry, which the next Get treats as absent.
func (s *Store) PutTTL(key string, res *result.Result, ttl time.Duration) error {
	expires := s.now().Add(ttl)
	return s.put(key, res, &expires)
}

func (s *Store) put(key string, res *result.Result, expiresAt *time.Time) error {
	if !validKey(key) {
		return &IOError{Op: "key", Path: key, Err: errInvalidKey}
	}
	e := &entry{
		Key:       key,
		Columns:   res.Columns,
		Rows:      res.Rows,
		CreatedAt: s.now().UTC(),
		ExpiresAt: expiresAt,
	}

	data, err := encodeEntry(e)
	if err != nil {
		return &IOError{Op: "encode", Path: s.entryPath(key), Err: err}
	}

	// Write to a temp file in the same directory, then rename into place.
	// Rename is atomic on the same filesystem, which gives last-write-wins
	// across concurrent CLI invocations.
	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return &IOError{Op: "write", Path: s.dir, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, s.entryPath(key)); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "rename", Path: s.entryPath(key), Err: err}
	}
	return nil
}

// Invalidate removes the entry for key. Removing an absent key is not an
// error.
func (s *Store) Invalidate(key string) error {
	if !validKey(key) {
		return &IOError{Op: "key", Path: key, Err: errInvalidKey}
	}
	path := s.entryPath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &IOError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Clear removes every entry in the store.
func (s *Store) Clear() error {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+entryExt))
	if err != nil {
		return &IOError{Op: "list", Path: s.dir, Err: err}
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return &IOError{Op: "remove", Path: path, Err: err}
		}
	}
	return nil
}

// Entries lists the stored entries, most recent first. Unreadable files are
// skipped rather than failing the whole listing.
func (s *Store) Entries() ([]EntryInfo, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+entryExt))
	if err != nil {
		return nil, &IOError{Op: "list", Path: s.dir, Err: err}
	}

	var infos []EntryInfo
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		e, err := decodeEntry(data)
		if err != nil {
			continue
		}
		infos = append(infos, EntryInfo{
			Key:       e.Key,
			CreatedAt: e.CreatedAt,
			ExpiresAt: e.ExpiresAt,
			Rows:      len(e.Rows),
			SizeBytes: fi.Size(),
		})
	}

	// Newest first.
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, key+entryExt)
}
