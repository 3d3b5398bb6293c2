// Package modelsconfig implements the durable, validated per-provider model
// list described by domain.ModelsConfig: a JSON file on disk, atomically
// replaced on every write, with a short-lived read snapshot cache.
package modelsconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aicarousel/gateway/internal/domain"
)

// snapshotTTL bounds how long a cached read snapshot is served before the
// store re-reads the file, per the ≤1s ceiling.
const snapshotTTL = 1 * time.Second

// Store is a file-backed domain.ModelsConfig.
type Store struct {
	path string

	mu       sync.RWMutex
	cached   domain.ModelsConfigSnapshot
	cachedAt time.Time
}

// New creates a Store reading from and writing to path. The file is created
// with an empty mapping if it does not exist yet.
func New(path string) (*Store, error) {
	s := &Store{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if writeErr := writeJSONAtomic(path, domain.ModelsConfigSnapshot{}); writeErr != nil {
			return nil, fmt.Errorf("modelsconfig: initializing %s: %w", path, writeErr)
		}
	}

	return s, nil
}

// Read returns the current snapshot, served from cache when fresh.
func (s *Store) Read(_ context.Context) (domain.ModelsConfigSnapshot, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.cachedAt) < snapshotTTL {
		snap := s.cached.Clone()
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	return s.reload()
}

func (s *Store) reload() (domain.ModelsConfigSnapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("modelsconfig: reading %s: %w", s.path, err)
	}

	snap := make(domain.ModelsConfigSnapshot)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("modelsconfig: parsing %s: %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.cached = snap.Clone()
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return snap.Clone(), nil
}

// Save validates snapshot and atomically replaces the on-disk file.
func (s *Store) Save(_ context.Context, snapshot domain.ModelsConfigSnapshot) error {
	if err := validate(snapshot); err != nil {
		return err
	}

	if err := writeJSONAtomic(s.path, snapshot); err != nil {
		return fmt.Errorf("modelsconfig: writing %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.cached = snapshot.Clone()
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return nil
}

// AddModel appends model to providerKey's list; fails on duplicate or an
// unknown provider.
func (s *Store) AddModel(ctx context.Context, providerKey, model string) error {
	snap, err := s.reload()
	if err != nil {
		return err
	}

	cfg, ok := snap[providerKey]
	if !ok {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "unknown provider"}
	}

	for _, m := range cfg.Models {
		if m == model {
			return &domain.ConfigError{ProviderKey: providerKey, Reason: "model already configured: " + model}
		}
	}

	cfg.Models = append(cfg.Models, model)
	if cfg.Default == "" {
		cfg.Default = model
	}
	snap[providerKey] = cfg

	return s.Save(ctx, snap)
}

// RemoveModel removes model from providerKey's list; fails if it is the
// default, the sole model, or not configured.
func (s *Store) RemoveModel(ctx context.Context, providerKey, model string) error {
	snap, err := s.reload()
	if err != nil {
		return err
	}

	cfg, ok := snap[providerKey]
	if !ok {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "unknown provider"}
	}

	if cfg.Default == model {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "cannot remove the default model"}
	}
	if len(cfg.Models) <= 1 {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "cannot remove the sole model"}
	}

	idx := indexOf(cfg.Models, model)
	if idx < 0 {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "model not configured: " + model}
	}

	cfg.Models = append(cfg.Models[:idx], cfg.Models[idx+1:]...)
	snap[providerKey] = cfg

	return s.Save(ctx, snap)
}

// SetDefault fails if model is not already in providerKey's list.
func (s *Store) SetDefault(ctx context.Context, providerKey, model string) error {
	snap, err := s.reload()
	if err != nil {
		return err
	}

	cfg, ok := snap[providerKey]
	if !ok {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "unknown provider"}
	}
	if indexOf(cfg.Models, model) < 0 {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "model not configured: " + model}
	}

	cfg.Default = model
	snap[providerKey] = cfg

	return s.Save(ctx, snap)
}

// ToggleFallback flips enableFallback, or sets it to desired when non-nil,
// and returns the resulting value.
func (s *Store) ToggleFallback(ctx context.Context, providerKey string, desired *bool) (bool, error) {
	snap, err := s.reload()
	if err != nil {
		return false, err
	}

	cfg, ok := snap[providerKey]
	if !ok {
		return false, &domain.ConfigError{ProviderKey: providerKey, Reason: "unknown provider"}
	}

	if desired != nil {
		cfg.EnableFallback = *desired
	} else {
		cfg.EnableFallback = !cfg.EnableFallback
	}
	snap[providerKey] = cfg

	if err := s.Save(ctx, snap); err != nil {
		return false, err
	}
	return cfg.EnableFallback, nil
}

// ReorderModels replaces providerKey's model order; newOrder must be a
// permutation of the current models.
func (s *Store) ReorderModels(ctx context.Context, providerKey string, newOrder []string) error {
	snap, err := s.reload()
	if err != nil {
		return err
	}

	cfg, ok := snap[providerKey]
	if !ok {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "unknown provider"}
	}
	if !isPermutation(cfg.Models, newOrder) {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "newOrder is not a permutation of the current models"}
	}

	cfg.Models = append([]string(nil), newOrder...)
	snap[providerKey] = cfg

	return s.Save(ctx, snap)
}

// UpdateModel renames a model in place, preserving position, and updates
// default if it pointed at the old name.
func (s *Store) UpdateModel(ctx context.Context, providerKey, oldName, newName string) error {
	snap, err := s.reload()
	if err != nil {
		return err
	}

	cfg, ok := snap[providerKey]
	if !ok {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "unknown provider"}
	}

	idx := indexOf(cfg.Models, oldName)
	if idx < 0 {
		return &domain.ConfigError{ProviderKey: providerKey, Reason: "model not configured: " + oldName}
	}

	cfg.Models[idx] = newName
	if cfg.Default == oldName {
		cfg.Default = newName
	}
	snap[providerKey] = cfg

	return s.Save(ctx, snap)
}

func validate(snap domain.ModelsConfigSnapshot) error {
	if len(snap) == 0 {
		return &domain.ConfigError{Reason: "models config must be a non-empty mapping"}
	}

	for key, cfg := range snap {
		if cfg.Default == "" {
			return &domain.ConfigError{ProviderKey: key, Reason: "default must be a non-empty string"}
		}
		if len(cfg.Models) == 0 {
			return &domain.ConfigError{ProviderKey: key, Reason: "models must be a non-empty list"}
		}
		for _, m := range cfg.Models {
			if m == "" {
				return &domain.ConfigError{ProviderKey: key, Reason: "model names must be non-empty"}
			}
		}
		if indexOf(cfg.Models, cfg.Default) < 0 {
			return &domain.ConfigError{ProviderKey: key, Reason: "default must be one of models"}
		}
	}

	return nil
}

func indexOf(list []string, target string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}

func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// writeJSONAtomic marshals v and replaces path via write-to-temp,
// fsync, rename so a crash mid-write never leaves a truncated file.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".modelsconfig-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

var _ domain.ModelsConfig = (*Store)(nil)
