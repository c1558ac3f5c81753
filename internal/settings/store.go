package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// LoadWarning reports that persisted settings could not be fully applied.
// Load still returns usable settings alongside it.
type LoadWarning struct {
	Path string
	Err  error
}

func (w *LoadWarning) Error() string {
	return fmt.Sprintf("settings %s: %v (using defaults)", w.Path, w.Err)
}

func (w *LoadWarning) Unwrap() error {
	return w.Err
}

// Load reads the settings file at path over Defaults. A missing file yields
// the defaults and no error. An unreadable or malformed file yields the
// defaults and a *LoadWarning; a file with some wrongly typed keys yields the
// remaining keys applied and a *LoadWarning.
func Load(path string) (Settings, error) {
	s := Defaults()

	//nolint:gosec // settings path comes from local config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}

		return s, &LoadWarning{Path: path, Err: err}
	}

	return decode(data, path)
}

func decode(data []byte, path string) (Settings, error) {
	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		var keyErr *KeyTypeError
		if errors.As(err, &keyErr) {
			// partially applied, keep what decoded
			return s, &LoadWarning{Path: path, Err: err}
		}

		return Defaults(), &LoadWarning{Path: path, Err: err}
	}

	return s, nil
}

// Save writes s to path as indented JSON, creating parent directories. The
// file is replaced atomically so a crash never leaves half a file behind.
func Save(path string, s Settings) error {
	data, err := encode(s)
	if err != nil {
		return err
	}

	return writeFile(path, data)
}

func encode(s Settings) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}

	return append(data, '\n'), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", path, err)
	}

	return nil
}

// Store owns the in-memory settings and writes them back on every change.
// It is safe for concurrent use; a save never interleaves with a reload.
type Store struct {
	mu        sync.Mutex
	path      string
	current   Settings
	lastWrite []byte
	logger    *slog.Logger
}

// Open loads the settings at path. Problems with the file are logged and
// never fail the caller.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := Load(path)
	if err != nil {
		logger.Warn("failed to load settings, using defaults", "path", path, "error", err)
	}

	return &Store{
		path:    path,
		current: s,
		logger:  logger,
	}
}

// Path returns the backing file path.
func (st *Store) Path() string {
	return st.path
}

// Snapshot returns a deep copy of the current settings.
func (st *Store) Snapshot() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.current.Clone()
}

// Update applies fn to the settings and persists the result. If saving
// fails the change stays in memory and the error is returned for reporting.
func (st *Store) Update(fn func(*Settings)) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	fn(&st.current)

	return st.saveLocked()
}

// Set assigns a string-typed value to key and persists it.
func (st *Store) Set(key, value string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.current.Set(key, value); err != nil {
		return err
	}

	return st.saveLocked()
}

// Get renders the current value of key.
func (st *Store) Get(key string) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.current.Get(key)
}

// SetGeometry stores a capture region; nil selects full screen.
func (st *Store) SetGeometry(geometry *string) error {
	return st.Update(func(s *Settings) {
		s.Geometry = geometry
	})
}

// RestoreDefaults replaces every value, unknown keys included, with the
// defaults and persists them.
func (st *Store) RestoreDefaults() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.current = Defaults()

	return st.saveLocked()
}

func (st *Store) saveLocked() error {
	data, err := encode(st.current)
	if err != nil {
		return err
	}

	if err := writeFile(st.path, data); err != nil {
		st.logger.Error("failed to save settings", "path", st.path, "error", err)
		return err
	}

	st.lastWrite = data

	return nil
}

// reload re-reads the file. It reports whether the in-memory settings
// changed; a file identical to our own last write is ignored.
func (st *Store) reload() (Settings, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	//nolint:gosec // settings path comes from local config
	data, err := os.ReadFile(st.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			st.logger.Warn("failed to read changed settings", "path", st.path, "error", err)
		}

		return Settings{}, false
	}

	if bytes.Equal(data, st.lastWrite) {
		return Settings{}, false
	}

	s, err := decode(data, st.path)
	if err != nil {
		var keyErr *KeyTypeError
		if !errors.As(err, &keyErr) {
			st.logger.Warn("ignoring malformed settings edit", "path", st.path, "error", err)
			return Settings{}, false
		}

		st.logger.Warn("settings edit partially applied", "path", st.path, "error", err)
	}

	st.current = s
	st.lastWrite = data

	return s.Clone(), true
}
