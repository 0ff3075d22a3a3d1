package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/storetest"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store { return newRepo(t) })
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fintrack.db")
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	created, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      "u1",
		CategoryID:  storage.DefaultCategories[0].ID,
		Kind:        core.Income,
		Amount:      core.Money{Cents: 123456},
		Description: "salary",
		OccurredOn:  core.NewDate(2025, 8, 25),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Migrations and seeding are idempotent on an existing file.
	repo, err = storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(ctx))
	got, err := repo.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "salary", got.Description)
	assert.Equal(t, int64(123456), got.Amount.Cents)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(storage.DefaultCategories))
}
