package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
)

// AppName names the config directory.
const AppName = "gitlink"

// DefaultPath returns $XDG_CONFIG_HOME/gitlink/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// FileStore keeps values in a flat YAML mapping. The file
// is read on every access so concurrent processes see
// each other's writes.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path; empty
// path means DefaultPath. The file is created on first
// write.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}

	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(key string) (string, error) {
	const errCtx = "reading setting"

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%s: %q: %w", errCtx, key, ErrNotFound)
	}

	return v, nil
}

// Set implements Store.
func (s *FileStore) Set(key, value string) error {
	const errCtx = "writing setting"

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	values[key] = value

	if err := s.save(values); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	const errCtx = "deleting setting"

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, ok := values[key]; !ok {
		return nil
	}

	delete(values, key)

	if err := s.save(values); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Keys returns every key in the file, sorted.
func (s *FileStore) Keys() ([]string, error) {
	const errCtx = "listing settings"

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys, nil
}

func (s *FileStore) load() (map[string]string, error) {
	values := map[string]string{}

	by, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}

	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(by, &values); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}

	if values == nil {
		values = map[string]string{}
	}

	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	by, err := yaml.Marshal(values)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	tmp := s.path + ".tmp"

	if err := os.WriteFile(tmp, by, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}
