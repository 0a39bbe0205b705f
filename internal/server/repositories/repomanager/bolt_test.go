package repomanager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltRepositoryManager_EndToEnd(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "filevault.db")

	m, err := NewBoltRepositoryManager(path)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.RunMigrations(ctx), "migrations are idempotent")

	require.NoError(t, m.Files().Create(ctx, &models.FileRecord{FileID: "f1", FileName: "a", UploadedAt: time.Now()}))
	require.NoError(t, m.ActivityLogs().Create(ctx, &models.ActivityLogEntry{LogID: "l1", Action: models.ActionFileUpload}))
	require.NoError(t, m.Close())

	// Data survives a reopen.
	m, err = NewBoltRepositoryManager(path)
	require.NoError(t, err)
	defer m.Close()

	rec, err := m.Files().GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "a", rec.FileName)

	logs, err := m.ActivityLogs().List(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestMemoryRepositoryManager(t *testing.T) {
	m := NewMemoryRepositoryManager()
	require.NoError(t, m.RunMigrations(context.Background()))
	assert.Same(t, m.Files(), m.Files(), "memory manager returns one shared repository")
	assert.NoError(t, m.Close())
}
