// Package registry implements domain.ProviderRegistry: it composes the
// static set of known provider descriptors with the API-key environment,
// the persisted enable/priority settings, and the persisted model lists to
// produce, on every call, the ordered set of providers eligible to serve a
// request right now.
package registry

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aicarousel/gateway/internal/domain"
)

// Registry is a domain.ProviderRegistry. It holds no request-scoped
// caching: every ListActive call re-reads the settings store, the models
// store, and the process environment.
type Registry struct {
	descriptors []domain.ProviderDescriptor
	settings    domain.ProviderSettingsStore
	models      domain.ModelsConfig
	envLookup   func(string) string
}

// New creates a Registry over the fixed set of known provider descriptors.
func New(descriptors []domain.ProviderDescriptor, settings domain.ProviderSettingsStore, models domain.ModelsConfig) *Registry {
	return &Registry{
		descriptors: descriptors,
		settings:    settings,
		models:      models,
		envLookup:   os.Getenv,
	}
}

// ListActive implements the §4.1 algorithm: filter known providers by
// API-key presence, enablement, and having at least one configured model,
// then sort ascending by priority (settings-less providers sort last).
func (r *Registry) ListActive(ctx context.Context) ([]domain.ActiveProvider, error) {
	settingsByKey, err := r.settingsByKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: loading provider settings: %w", err)
	}

	modelsSnapshot, err := r.models.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: loading models config: %w", err)
	}

	type candidate struct {
		active    domain.ActiveProvider
		priority  int
		hasEntry  bool
		settingID int64
		seq       int
	}

	candidates := make([]candidate, 0, len(r.descriptors))

	for i, desc := range r.descriptors {
		// Every provider, of any adapter kind, needs a non-empty API key in
		// the environment to be active.
		if strings.TrimSpace(r.envLookup(desc.APIKeyEnvName)) == "" {
			continue
		}

		cfg, ok := modelsSnapshot[desc.Key]
		if !ok || len(cfg.Models) == 0 {
			continue
		}

		setting, hasSetting := settingsByKey[desc.Key]
		isEnabled := true
		priority := 0
		if hasSetting {
			isEnabled = setting.IsEnabled
			priority = setting.Priority
		}
		if !isEnabled {
			continue
		}

		candidates = append(candidates, candidate{
			active: domain.ActiveProvider{
				Key:            desc.Key,
				Name:           desc.Name,
				Models:         cfg.Models,
				DefaultModel:   cfg.Default,
				EnableFallback: cfg.EnableFallback,
				Priority:       priority,
			},
			priority:  priority,
			hasEntry:  hasSetting,
			settingID: setting.ID,
			seq:       i,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].hasEntry != candidates[j].hasEntry {
			// Providers with an explicit setting sort before those
			// without one, regardless of priority value.
			return candidates[i].hasEntry
		}
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		if candidates[i].hasEntry {
			// Both have a persisted setting: ties resolve by insertion
			// order, i.e. which row was created first.
			return candidates[i].settingID < candidates[j].settingID
		}
		// Neither has a persisted setting; there's no insertion order to
		// break the tie on, so fall back to descriptor position.
		return candidates[i].seq < candidates[j].seq
	})

	actives := make([]domain.ActiveProvider, 0, len(candidates))
	for _, c := range candidates {
		actives = append(actives, c.active)
	}

	return actives, nil
}

func (r *Registry) settingsByKey(ctx context.Context) (map[string]domain.ProviderSetting, error) {
	settings, err := r.settings.List(ctx)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]domain.ProviderSetting, len(settings))
	for _, s := range settings {
		byKey[s.ProviderKey] = s
	}
	return byKey, nil
}

var _ domain.ProviderRegistry = (*Registry)(nil)
