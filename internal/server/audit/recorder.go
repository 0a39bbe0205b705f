// Package audit writes the activity trail. Recording is best-effort: the
// entry goes to a log sink and to the activity log repository independently,
// and a failure in either is logged and dropped.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/logsink"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/activitylogs"
	"github.com/google/uuid"
)

// Recorder records audit entries.
type Recorder struct {
	sink   logsink.Sink
	repo   activitylogs.Repository
	stream string
	logger logging.Logger

	now   func() time.Time
	newID func() string
}

func NewRecorder(sink logsink.Sink, repo activitylogs.Repository, stream string, logger logging.Logger) *Recorder {
	return &Recorder{
		sink:   sink,
		repo:   repo,
		stream: stream,
		logger: logger.With("module", "audit"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Record writes one entry for action. It never fails and never blocks on the
// caller's cancellation: the writes run on a context detached from ctx.
func (r *Recorder) Record(ctx context.Context, action models.Action, details map[string]any) {
	ctx = context.WithoutCancel(ctx)

	entry := &models.ActivityLogEntry{
		LogID:     r.newID(),
		Timestamp: r.now(),
		Action:    action,
		Details:   r.encodeDetails(ctx, details),
	}

	if err := r.writeSink(ctx, entry); err != nil {
		r.logger.Warn(ctx, "audit sink write failed", "action", action, "log_id", entry.LogID, "error", err)
	}
	if err := r.writeRepo(ctx, entry); err != nil {
		r.logger.Error(ctx, "audit store write failed", "action", action, "log_id", entry.LogID, "error", err)
	}
}

func (r *Recorder) encodeDetails(ctx context.Context, details map[string]any) string {
	if details == nil {
		return "{}"
	}
	b, err := json.Marshal(details)
	if err != nil {
		r.logger.Warn(ctx, "audit details not serialisable", "error", err)
		return "{}"
	}
	return string(b)
}

func (r *Recorder) writeSink(ctx context.Context, entry *models.ActivityLogEntry) error {
	msg, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrAuditWrite, err)
	}
	ev := []logsink.Event{{Timestamp: entry.Timestamp, Message: string(msg)}}
	if err := r.sink.PutEvents(ctx, r.stream, ev); err != nil {
		return fmt.Errorf("%w: %w", common.ErrAuditWrite, err)
	}
	return nil
}

func (r *Recorder) writeRepo(ctx context.Context, entry *models.ActivityLogEntry) error {
	if err := r.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("%w: %w", common.ErrAuditWrite, err)
	}
	return nil
}
