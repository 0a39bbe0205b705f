package activitylogs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/server/models"
	"go.etcd.io/bbolt"
)

// BoltRepository appends JSON-encoded entries to a bbolt bucket keyed by
// logId. The bucket must already exist.
type BoltRepository struct {
	db     *bbolt.DB
	bucket []byte
}

var _ Repository = (*BoltRepository)(nil)

func NewBoltRepository(db *bbolt.DB, bucket string) *BoltRepository {
	return &BoltRepository{db: db, bucket: []byte(bucket)}
}

func (r *BoltRepository) Create(_ context.Context, e *models.ActivityLogEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal activity entry: %w", err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", r.bucket)
		}
		return b.Put([]byte(e.LogID), data)
	})
}

func (r *BoltRepository) List(_ context.Context) ([]*models.ActivityLogEntry, error) {
	var result []*models.ActivityLogEntry
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", r.bucket)
		}
		return b.ForEach(func(_, v []byte) error {
			var e models.ActivityLogEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			result = append(result, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
