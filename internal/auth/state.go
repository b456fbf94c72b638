// Package auth keeps the device authorization on disk and revalidates it
// against the licensing backend, at most once per cache period.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/binbin1213/GAGA-Client/internal/platform"
)

const (
	StateFileName = "auth_state.json"
	CacheFileName = "auth_cache.json"

	// CacheTTL is how long a backend validation result is trusted
	CacheTTL = 5 * time.Minute
)

// State is the persisted authorization of this device
type State struct {
	DeviceID     string    `json:"deviceId"`
	LicenseCode  string    `json:"licenseCode"`
	AuthorizedAt time.Time `json:"authorizedAt"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"` // zero means no expiry
	IsValid      bool      `json:"isValid"`
}

// Usable reports whether the state is valid and not expired at now
func (s *State) Usable(now time.Time) bool {
	if s == nil || !s.IsValid || s.DeviceID == "" || s.LicenseCode == "" {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(s.ExpiresAt)
}

// Cache is the result of the last backend validation
type Cache struct {
	LastValidation time.Time `json:"lastValidation"`
	IsValid        bool      `json:"isValid"`
	ExpiresAt      time.Time `json:"expiresAt,omitempty"`
}

// Fresh reports whether the cache may be trusted at now
func (c *Cache) Fresh(now time.Time) bool {
	return c != nil && now.Sub(c.LastValidation) <= CacheTTL
}

// Store reads and writes the state and cache files in one directory
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a store rooted at dir on the OS filesystem
func NewStore(dir string) *Store {
	return NewStoreWithFS(afero.NewOsFs(), dir)
}

// NewStoreWithFS returns a store using a custom filesystem
func NewStoreWithFS(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, dir: dir}
}

// LoadState returns nil when no state was saved yet
func (s *Store) LoadState() (*State, error) {
	var st State
	ok, err := s.read(StateFileName, &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SaveState(st State) error {
	return s.write(StateFileName, st)
}

// ClearState overwrites the state with an empty invalid one
func (s *Store) ClearState() error {
	return s.write(StateFileName, State{})
}

// LoadCache returns nil when no cache was saved yet
func (s *Store) LoadCache() (*Cache, error) {
	var c Cache
	ok, err := s.read(CacheFileName, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveCache(c Cache) error {
	return s.write(CacheFileName, c)
}

// ClearCache stores an invalid cache dated at the epoch
func (s *Store) ClearCache() error {
	return s.write(CacheFileName, Cache{LastValidation: time.Unix(0, 0).UTC()})
}

func (s *Store) read(name string, v any) (bool, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) write(name string, v any) error {
	if err := s.fs.MkdirAll(s.dir, platform.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, name), data, platform.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
