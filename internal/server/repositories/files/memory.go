package files

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// MemoryRepository keeps records in a map. List returns them oldest first.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]models.FileRecord
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]models.FileRecord)}
}

func (r *MemoryRepository) Create(_ context.Context, rec *models.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rec.FileID] = *rec
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, fileID string) (*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", common.ErrNotFound, fileID)
	}
	return &rec, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.FileRecord, error) {
	r.mu.RLock()
	result := make([]*models.FileRecord, 0, len(r.items))
	for _, rec := range r.items {
		result = append(result, &rec)
	}
	r.mu.RUnlock()

	slices.SortFunc(result, func(a, b *models.FileRecord) int {
		return a.UploadedAt.Compare(b.UploadedAt)
	})
	return result, nil
}

func (r *MemoryRepository) Delete(_ context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[fileID]; !ok {
		return fmt.Errorf("%w: file %s", common.ErrNotFound, fileID)
	}
	delete(r.items, fileID)
	return nil
}
