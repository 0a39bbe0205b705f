package repomanager

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"go.etcd.io/bbolt"
)

// Bucket names mirror the DynamoDB table names.
const (
	BoltFilesBucket    = "FileMetadata"
	BoltActivityBucket = "ActivityLogs"
)

// BoltRepositoryManager keeps both collections in one embedded bbolt file.
type BoltRepositoryManager struct {
	db *bbolt.DB
}

var _ RepositoryManager = (*BoltRepositoryManager)(nil)

// NewBoltRepositoryManager opens (or creates) the database at path, creating
// its parent directory when needed.
func NewBoltRepositoryManager(path string) (*BoltRepositoryManager, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, err
	}
	db, err := bbolt.Open(abs, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	return &BoltRepositoryManager{db: db}, nil
}

func (m *BoltRepositoryManager) Files() files.Repository {
	return files.NewBoltRepository(m.db, BoltFilesBucket)
}

func (m *BoltRepositoryManager) ActivityLogs() activitylogs.Repository {
	return activitylogs.NewBoltRepository(m.db, BoltActivityBucket)
}

// RunMigrations creates the buckets.
func (m *BoltRepositoryManager) RunMigrations(context.Context) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{BoltFilesBucket, BoltActivityBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
}

func (m *BoltRepositoryManager) Close() error {
	return m.db.Close()
}
