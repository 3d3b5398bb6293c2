package sqlite

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/aicarousel/gateway/internal/domain"
)

const (
	keyPrefix        = "sk-"
	keySecretBytes   = 32 // 64 hex characters
	displayPrefixLen = 7
)

// CredentialStore is a domain.CredentialStore backed by the api_keys table.
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore wraps an already-migrated database handle.
func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Create mints a new key, stores only its hash, and returns the plaintext
// exactly once.
func (s *CredentialStore) Create(ctx context.Context, name string) (string, *domain.ApiKeyRecord, error) {
	secret := make([]byte, keySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, fmt.Errorf("sqlite: generating key material: %w", err)
	}

	plaintext := keyPrefix + hex.EncodeToString(secret)
	hash := hashKey(plaintext)
	displayPrefix := plaintext[:displayPrefixLen] + "..."

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, key_prefix, name, is_active) VALUES (?, ?, ?, 1)`,
		hash, displayPrefix, name,
	)
	if err != nil {
		return "", nil, fmt.Errorf("sqlite: creating api key: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("sqlite: reading new api key id: %w", err)
	}

	record, err := s.get(ctx, id)
	if err != nil {
		return "", nil, err
	}

	return plaintext, record, nil
}

// Validate rejects keys without the "sk-" prefix before hashing, looks up
// presented by its hash and, if active, bumps its usage counter and
// last-used timestamp and returns the updated record.
func (s *CredentialStore) Validate(ctx context.Context, presented string) (*domain.ApiKeyRecord, error) {
	if !strings.HasPrefix(presented, keyPrefix) {
		return nil, domain.ErrAuthentication
	}

	hash := hashKey(presented)

	row := s.db.QueryRowContext(ctx, `
SELECT id, key_hash, key_prefix, name, created_at, last_used_at, is_active, usage_count
FROM api_keys WHERE key_hash = ?`, hash)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAuthentication
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: validating api key: %w", err)
	}

	if !record.IsActive {
		return nil, domain.ErrAuthentication
	}

	// The row was selected by this hash, so this constant-time comparison
	// only re-confirms the match; the lookup itself is an ordinary indexed
	// query.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(record.KeyHash)) != 1 {
		return nil, domain.ErrAuthentication
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = CURRENT_TIMESTAMP, usage_count = usage_count + 1 WHERE id = ?`,
		record.ID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: recording api key usage: %w", err)
	}

	updated, err := s.get(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading validated api key: %w", err)
	}

	return updated, nil
}

// List returns every credential, most recently created first.
func (s *CredentialStore) List(ctx context.Context) ([]*domain.ApiKeyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, key_hash, key_prefix, name, created_at, last_used_at, is_active, usage_count
FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing api keys: %w", err)
	}
	defer rows.Close()

	var records []*domain.ApiKeyRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning api key: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing api keys: %w", err)
	}

	return records, nil
}

// Revoke marks a key inactive without deleting its row.
func (s *CredentialStore) Revoke(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: revoking api key %d: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// Delete permanently removes a key row.
func (s *CredentialStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting api key %d: %w", id, err)
	}
	return requireRowAffected(res, id)
}

func (s *CredentialStore) get(ctx context.Context, id int64) (*domain.ApiKeyRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, key_hash, key_prefix, name, created_at, last_used_at, is_active, usage_count
FROM api_keys WHERE id = ?`, id)
	return scanRecord(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.ApiKeyRecord, error) {
	var (
		record     domain.ApiKeyRecord
		lastUsedAt sql.NullTime
	)

	if err := row.Scan(
		&record.ID, &record.KeyHash, &record.KeyPrefix, &record.Name,
		&record.CreatedAt, &lastUsedAt, &record.IsActive, &record.UsageCount,
	); err != nil {
		return nil, err
	}

	if lastUsedAt.Valid {
		record.LastUsedAt = &lastUsedAt.Time
	}

	return &record, nil
}

func requireRowAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected for api key %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: api key %d not found", id)
	}
	return nil
}

func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

var _ domain.CredentialStore = (*CredentialStore)(nil)
