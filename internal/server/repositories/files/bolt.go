package files

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"go.etcd.io/bbolt"
)

// BoltRepository stores records as JSON values in a bbolt bucket keyed by
// fileId. The bucket must already exist.
type BoltRepository struct {
	db     *bbolt.DB
	bucket []byte
}

var _ Repository = (*BoltRepository)(nil)

func NewBoltRepository(db *bbolt.DB, bucket string) *BoltRepository {
	return &BoltRepository{db: db, bucket: []byte(bucket)}
}

func (r *BoltRepository) Create(_ context.Context, rec *models.FileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal file record: %w", err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", r.bucket)
		}
		return b.Put([]byte(rec.FileID), data)
	})
}

func (r *BoltRepository) GetByID(_ context.Context, fileID string) (*models.FileRecord, error) {
	var rec *models.FileRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", r.bucket)
		}
		data := b.Get([]byte(fileID))
		if data == nil {
			return fmt.Errorf("%w: file %s", common.ErrNotFound, fileID)
		}
		rec = &models.FileRecord{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *BoltRepository) List(_ context.Context) ([]*models.FileRecord, error) {
	var result []*models.FileRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", r.bucket)
		}
		return b.ForEach(func(_, v []byte) error {
			var rec models.FileRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			result = append(result, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *BoltRepository) Delete(_ context.Context, fileID string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", r.bucket)
		}
		if b.Get([]byte(fileID)) == nil {
			return fmt.Errorf("%w: file %s", common.ErrNotFound, fileID)
		}
		return b.Delete([]byte(fileID))
	})
}
