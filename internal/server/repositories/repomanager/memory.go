package repomanager

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
)

// MemoryRepositoryManager holds process-local repositories; data is lost on
// exit.
type MemoryRepositoryManager struct {
	files        *files.MemoryRepository
	activityLogs *activitylogs.MemoryRepository
}

var _ RepositoryManager = (*MemoryRepositoryManager)(nil)

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		files:        files.NewMemoryRepository(),
		activityLogs: activitylogs.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Files() files.Repository               { return m.files }
func (m *MemoryRepositoryManager) ActivityLogs() activitylogs.Repository { return m.activityLogs }
func (m *MemoryRepositoryManager) RunMigrations(context.Context) error   { return nil }
func (m *MemoryRepositoryManager) Close() error                          { return nil }
