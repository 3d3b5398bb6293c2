package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aicarousel/gateway/internal/domain"
)

// ProviderSettingsStore is a domain.ProviderSettingsStore backed by the
// provider_settings table.
type ProviderSettingsStore struct {
	db *sql.DB
}

// NewProviderSettingsStore wraps an already-migrated database handle.
func NewProviderSettingsStore(db *sql.DB) *ProviderSettingsStore {
	return &ProviderSettingsStore{db: db}
}

// List returns every stored per-provider setting, ordered by priority with
// ties broken by id (insertion order). A provider with no row is not
// represented here; ProviderRegistry treats that as enabled by default.
func (s *ProviderSettingsStore) List(ctx context.Context) ([]domain.ProviderSetting, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, provider_key, is_enabled, priority, created_at, updated_at
FROM provider_settings ORDER BY priority ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing provider settings: %w", err)
	}
	defer rows.Close()

	var settings []domain.ProviderSetting
	for rows.Next() {
		var setting domain.ProviderSetting
		if err := rows.Scan(&setting.ID, &setting.ProviderKey, &setting.IsEnabled, &setting.Priority, &setting.CreatedAt, &setting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning provider setting: %w", err)
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing provider settings: %w", err)
	}

	return settings, nil
}

// Upsert inserts or replaces the row for setting.ProviderKey. A first insert
// gets a fresh id recording its place in insertion order; an update leaves
// id and created_at untouched and bumps updated_at.
func (s *ProviderSettingsStore) Upsert(ctx context.Context, setting domain.ProviderSetting) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO provider_settings (provider_key, is_enabled, priority)
VALUES (?, ?, ?)
ON CONFLICT(provider_key) DO UPDATE SET
    is_enabled = excluded.is_enabled,
    priority = excluded.priority,
    updated_at = CURRENT_TIMESTAMP`,
		setting.ProviderKey, setting.IsEnabled, setting.Priority,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting provider setting %s: %w", setting.ProviderKey, err)
	}
	return nil
}

var _ domain.ProviderSettingsStore = (*ProviderSettingsStore)(nil)
