package activitylogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.ActivityLogEntry) error {
	query := `INSERT INTO activity_logs (log_id, logged_at, action, details) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, e.LogID, e.Timestamp, string(e.Action), e.Details); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// List returns every entry, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.ActivityLogEntry, error) {
	query := `SELECT log_id, logged_at, action, details FROM activity_logs ORDER BY logged_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select activity logs: %w", err)
	}
	defer rows.Close()

	var result []*models.ActivityLogEntry
	for rows.Next() {
		var (
			item   models.ActivityLogEntry
			action string
		)
		if err := rows.Scan(&item.LogID, &item.Timestamp, &action, &item.Details); err != nil {
			return nil, err
		}
		item.Action = models.Action(action)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
