package domain

import (
	"context"
	"time"
)

// ApiKeyRecord is a persisted caller credential. The plaintext key is never
// stored; only its SHA-256 hash and a display prefix survive.
type ApiKeyRecord struct {
	ID         int64
	KeyHash    string `json:"-"`
	KeyPrefix  string
	Name       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	IsActive   bool
	UsageCount int64
}

// CredentialStore persists and validates caller API keys.
type CredentialStore interface {
	Create(ctx context.Context, name string) (plaintext string, record *ApiKeyRecord, err error)
	Validate(ctx context.Context, presented string) (*ApiKeyRecord, error)
	List(ctx context.Context) ([]*ApiKeyRecord, error)
	Revoke(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// ProviderSettingsStore persists per-provider enable flag and priority.
type ProviderSettingsStore interface {
	List(ctx context.Context) ([]ProviderSetting, error)
	Upsert(ctx context.Context, setting ProviderSetting) error
}
