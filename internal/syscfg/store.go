// Package syscfg persists the singleton system configuration document that
// records install state and license status.
package syscfg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bclabs/school-portal-api/internal/models"
)

// Store reads and mutates the system configuration. Update applies the
// mutation under the store's writer lock so concurrent administrative
// writes cannot lose updates.
type Store interface {
	Load(ctx context.Context) (models.SystemConfig, error)
	Update(ctx context.Context, mutate func(*models.SystemConfig) error) (models.SystemConfig, error)
}

// FileStore keeps the document as pretty-printed JSON on disk.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore opens the store at path, creating the default document when
// none exists yet.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat system config: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("prepare system config directory: %w", err)
		}
		initial := models.SystemConfig{LicenseStatus: models.LicenseInactive}
		if err := s.write(initial); err != nil {
			return nil, err
		}
	}

	if _, err := s.read(); err != nil {
		return nil, err
	}

	return s, nil
}

// Load returns the current document.
func (s *FileStore) Load(ctx context.Context) (models.SystemConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

// Update performs a read-modify-write of the document under the writer lock.
func (s *FileStore) Update(ctx context.Context, mutate func(*models.SystemConfig) error) (models.SystemConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.read()
	if err != nil {
		return models.SystemConfig{}, err
	}

	if err := mutate(&cfg); err != nil {
		return models.SystemConfig{}, err
	}

	if err := s.write(cfg); err != nil {
		return models.SystemConfig{}, err
	}

	return cfg, nil
}

func (s *FileStore) read() (models.SystemConfig, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return models.SystemConfig{}, fmt.Errorf("read system config: %w", err)
	}

	var cfg models.SystemConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return models.SystemConfig{}, fmt.Errorf("decode system config: %w", err)
	}

	return cfg, nil
}

func (s *FileStore) write(cfg models.SystemConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode system config: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write system config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace system config: %w", err)
	}

	return nil
}

// MemStore is an in-memory Store used by tests.
type MemStore struct {
	mu  sync.Mutex
	cfg models.SystemConfig
}

// NewMemStore seeds an in-memory store with the given document.
func NewMemStore(cfg models.SystemConfig) *MemStore {
	if cfg.LicenseStatus == "" {
		cfg.LicenseStatus = models.LicenseInactive
	}
	return &MemStore{cfg: cfg}
}

// Load returns the current document.
func (s *MemStore) Load(ctx context.Context) (models.SystemConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, nil
}

// Update mutates the document under the store lock.
func (s *MemStore) Update(ctx context.Context, mutate func(*models.SystemConfig) error) (models.SystemConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	if err := mutate(&cfg); err != nil {
		return models.SystemConfig{}, err
	}
	s.cfg = cfg

	return cfg, nil
}
