// Package activitylogs is the append-only store for audit entries. Entries
// are never updated or deleted.
package activitylogs

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.ActivityLogEntry) error
	List(ctx context.Context) ([]*models.ActivityLogEntry, error)
}
