// Package store is the single artifact store every pipeline component goes
// through. It keys week-scoped artifacts by (kind, entity, week), keeps the
// on-disk layout stable for downstream tooling, and separates three
// questions callers tend to conflate: does an artifact exist, is it fresh,
// and is it structurally valid.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Store manages artifact IO rooted at the data directory.
type Store struct {
	root string
	now  func() time.Time
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithClock overrides the clock used for freshness decisions.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.now = clock
	}
}

// New builds a store rooted at dataDir.
func New(dataDir string, opts ...Option) *Store {
	s := &Store{root: dataDir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the data directory the store is rooted at.
func (s *Store) Root() string {
	return s.root
}

// Exists reports whether any file is present for the key, valid or not.
func (s *Store) Exists(kind Kind, key Key) bool {
	path := s.Path(kind, key)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Age returns how long ago the artifact was written.
func (s *Store) Age(kind Kind, key Key) (time.Duration, error) {
	path := s.Path(kind, key)
	if path == "" {
		return 0, fmt.Errorf("store: no path for %s %s", kind, key)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("store: stat %s: %w", path, err)
	}
	return s.now().Sub(info.ModTime()), nil
}

// IsFresh reports whether the artifact exists and is younger than maxAge.
// Absent artifacts are never fresh.
func (s *Store) IsFresh(kind Kind, key Key, maxAge time.Duration) bool {
	age, err := s.Age(kind, key)
	if err != nil {
		return false
	}
	return age < maxAge
}

// Check inspects the artifact on disk and classifies it. Validity is
// independent of freshness: a file written seconds ago that fails structural
// checks comes back StateInvalid and must be treated as absent.
func (s *Store) Check(kind Kind, key Key) CheckResult {
	path := s.Path(kind, key)
	if path == "" {
		err := fmt.Errorf("store: no path for %s %s", kind, key)
		return CheckResult{Kind: kind, Key: key, State: StateError, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CheckResult{Kind: kind, Key: key, Path: path, State: StateMissing}
		}
		return CheckResult{Kind: kind, Key: key, Path: path, State: StateError, Err: err}
	}
	if err := validate(kind, key, data); err != nil {
		return CheckResult{Kind: kind, Key: key, Path: path, State: StateInvalid, Err: err}
	}
	return CheckResult{Kind: kind, Key: key, Path: path, State: StateReady}
}

// IsValid reports whether the artifact exists and passes structural
// validation.
func (s *Store) IsValid(kind Kind, key Key) bool {
	return s.Check(kind, key).State == StateReady
}

// Read returns the raw artifact contents.
func (s *Store) Read(kind Kind, key Key) ([]byte, error) {
	path := s.Path(kind, key)
	if path == "" {
		return nil, fmt.Errorf("store: no path for %s %s", kind, key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return data, nil
}

// Write persists an artifact atomically: the data lands in a temp file in
// the target directory and is renamed into place, so a concurrent reader
// never observes a partial artifact.
func (s *Store) Write(kind Kind, key Key, data []byte) error {
	path := s.Path(kind, key)
	if path == "" {
		return fmt.Errorf("store: no path for %s %s", kind, key)
	}
	return atomicWrite(path, data)
}

// WriteLog persists one generation attempt's session log and returns its
// path. Logs are write-once per attempt; nothing ever overwrites them.
func (s *Store) WriteLog(key Key, stamp string, attempt int, data []byte) (string, error) {
	path := s.LogPath(key, stamp, attempt)
	if err := atomicWrite(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile persists arbitrary bytes at a store-resolved path, used for the
// user profile cache and weekly metadata sidecars.
func (s *Store) WriteFile(path string, data []byte) error {
	return atomicWrite(path, data)
}

// Invalidate deletes the artifact so the next pipeline run regenerates it.
// Deleting an absent artifact is not an error.
func (s *Store) Invalidate(kind Kind, key Key) error {
	path := s.Path(kind, key)
	if path == "" {
		return fmt.Errorf("store: no path for %s %s", kind, key)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: remove %s: %w", path, err)
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: ensure %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename into %s: %w", path, err)
	}
	return nil
}
