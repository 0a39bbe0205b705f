// Package files stores FileRecord metadata. Every backend returns
// common.ErrNotFound (wrapped) for a missing fileId.
package files

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, rec *models.FileRecord) error
	GetByID(ctx context.Context, fileID string) (*models.FileRecord, error)
	List(ctx context.Context) ([]*models.FileRecord, error)
	Delete(ctx context.Context, fileID string) error
}
