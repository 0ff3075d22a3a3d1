package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	sheetmem "fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:         "sqlite",
		SQLiteDBPath:        "/tmp/x.db",
		GoogleSpreadsheetID: "sheet",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.True(t, cfg.SheetsEnabled())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "postgres"}, true},
		{"sheets without credentials", Config{Type: MemoryBackend, GoogleSpreadsheetID: "id"}, true},
		{"sheets with inline credentials", Config{Type: MemoryBackend, GoogleSpreadsheetID: "id", GoogleServiceAccountJSON: "{}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	res, err := f.CreateStore(ctx, Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Store)
	assert.Nil(t, res.Cleanup)

	res, err = f.CreateStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db")})
	require.NoError(t, err)
	require.NotNil(t, res.Cleanup)
	t.Cleanup(func() { _ = res.Cleanup() })
	assert.IsType(t, &storage.SQLiteRepository{}, res.Store)

	cats, err := res.Store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(storage.DefaultCategories))

	_, err = f.CreateStore(ctx, Config{Type: "postgres"})
	assert.Error(t, err)
}

func TestCreateLedger(t *testing.T) {
	f := NewFactory(nil)

	ledger, err := f.CreateLedger(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.IsType(t, &sheetmem.Store{}, ledger)

	_, err = f.CreateLedger(context.Background(), Config{
		Type:                     MemoryBackend,
		GoogleSpreadsheetID:      "id",
		GoogleServiceAccountJSON: "not json",
	})
	assert.Error(t, err)
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}
