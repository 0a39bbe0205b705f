package activitylogs

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// MemoryRepository keeps entries in insertion order.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []models.ActivityLogEntry
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, e *models.ActivityLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.ActivityLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*models.ActivityLogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, &e)
	}
	return result, nil
}
