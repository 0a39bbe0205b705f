package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts rec. fileId is the primary key.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.FileRecord) error {
	query := `
		INSERT INTO file_metadata (file_id, file_name, content_type, size, uploaded_at, encrypted)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.FileID, rec.FileName, rec.ContentType, rec.Size, rec.UploadedAt, rec.Encrypted)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the record for fileID.
func (r *PostgresRepository) GetByID(ctx context.Context, fileID string) (*models.FileRecord, error) {
	query := `SELECT file_id, file_name, content_type, size, uploaded_at, encrypted
		FROM file_metadata WHERE file_id=$1`

	rec := &models.FileRecord{}
	err := r.db.QueryRowContext(ctx, query, fileID).
		Scan(&rec.FileID, &rec.FileName, &rec.ContentType, &rec.Size, &rec.UploadedAt, &rec.Encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: file %s", common.ErrNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return rec, nil
}

// List returns every record, oldest upload first.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.FileRecord, error) {
	query := `SELECT file_id, file_name, content_type, size, uploaded_at, encrypted
		FROM file_metadata ORDER BY uploaded_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.FileRecord
	for rows.Next() {
		var item models.FileRecord
		if err := rows.Scan(&item.FileID, &item.FileName, &item.ContentType, &item.Size, &item.UploadedAt, &item.Encrypted); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the record for fileID. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, fileID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM file_metadata WHERE file_id=$1`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: file %s", common.ErrNotFound, fileID)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
