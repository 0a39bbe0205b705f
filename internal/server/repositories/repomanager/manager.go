// Package repomanager vends the metadata repositories for one storage
// backend and owns the backend's connection and schema.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
)

type RepositoryManager interface {
	// RunMigrations brings the schema (tables, buckets) up to date.
	RunMigrations(ctx context.Context) error
	Files() files.Repository
	ActivityLogs() activitylogs.Repository
	Close() error
}
