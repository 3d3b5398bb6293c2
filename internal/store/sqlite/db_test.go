package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aicarousel/gateway/internal/store/sqlite"
)

func TestOpen_MigrationsAreIdempotentAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.db")

	db, err := sqlite.Open(path)
	require.NoError(t, err)

	store := sqlite.NewCredentialStore(db)
	_, _, err = store.Create(context.Background(), "persisted key")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := sqlite.NewCredentialStore(reopened).List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "persisted key", records[0].Name)
}
