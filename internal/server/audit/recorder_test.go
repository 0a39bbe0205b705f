package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/logsink"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/activitylogs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logLine struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (c *captureLogger) add(level, msg string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, logLine{level: level, msg: msg, args: args})
}

func (c *captureLogger) Debug(_ context.Context, msg string, args ...any) { c.add("debug", msg, args) }
func (c *captureLogger) Info(_ context.Context, msg string, args ...any)  { c.add("info", msg, args) }
func (c *captureLogger) Warn(_ context.Context, msg string, args ...any)  { c.add("warn", msg, args) }
func (c *captureLogger) Error(_ context.Context, msg string, args ...any) { c.add("error", msg, args) }
func (c *captureLogger) With(...any) logging.Logger                       { return c }

type fakeSink struct {
	stream string
	events []logsink.Event
	ctxErr error
	err    error
}

func (f *fakeSink) PutEvents(ctx context.Context, stream string, events []logsink.Event) error {
	f.ctxErr = ctx.Err()
	f.stream = stream
	f.events = append(f.events, events...)
	return f.err
}

type failingRepo struct{ err error }

func (f failingRepo) Create(context.Context, *models.ActivityLogEntry) error { return f.err }
func (f failingRepo) List(context.Context) ([]*models.ActivityLogEntry, error) {
	return nil, f.err
}

func newTestRecorder(sink logsink.Sink, repo activitylogs.Repository, log logging.Logger) *Recorder {
	r := NewRecorder(sink, repo, "activity", log)
	r.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	r.newID = func() string { return "log-1" }
	return r
}

func TestRecord_WritesBothDestinations(t *testing.T) {
	sink := &fakeSink{}
	repo := activitylogs.NewMemoryRepository()
	log := &captureLogger{}

	newTestRecorder(sink, repo, log).Record(context.Background(), models.ActionFileUpload,
		map[string]any{"fileId": "f1", "fileName": "a.txt", "size": 3})

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "log-1", e.LogID)
	assert.Equal(t, models.ActionFileUpload, e.Action)
	assert.Equal(t, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC), e.Timestamp)

	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.Details), &details))
	assert.Equal(t, "f1", details["fileId"])
	assert.Equal(t, "a.txt", details["fileName"])
	assert.EqualValues(t, 3, details["size"])

	require.Len(t, sink.events, 1)
	assert.Equal(t, "activity", sink.stream)

	var shipped models.ActivityLogEntry
	require.NoError(t, json.Unmarshal([]byte(sink.events[0].Message), &shipped))
	assert.Equal(t, "log-1", shipped.LogID)
	assert.Equal(t, models.ActionFileUpload, shipped.Action)

	assert.Empty(t, log.lines)
}

func TestRecord_SinkFailureStillWritesRepo(t *testing.T) {
	sink := &fakeSink{err: errors.New("sink down")}
	repo := activitylogs.NewMemoryRepository()
	log := &captureLogger{}

	newTestRecorder(sink, repo, log).Record(context.Background(), models.ActionFileDelete, map[string]any{"fileId": "f1"})

	entries, _ := repo.List(context.Background())
	assert.Len(t, entries, 1)

	require.Len(t, log.lines, 1)
	assert.Equal(t, "warn", log.lines[0].level)
	assertLoggedAuditError(t, log.lines[0])
}

func TestRecord_RepoFailureStillWritesSink(t *testing.T) {
	sink := &fakeSink{}
	log := &captureLogger{}

	newTestRecorder(sink, failingRepo{err: errors.New("table gone")}, log).
		Record(context.Background(), models.ActionFileDownload, map[string]any{"fileId": "f1"})

	assert.Len(t, sink.events, 1)
	require.Len(t, log.lines, 1)
	assert.Equal(t, "error", log.lines[0].level)
	assertLoggedAuditError(t, log.lines[0])
}

func TestRecord_BothFail(t *testing.T) {
	log := &captureLogger{}

	assert.NotPanics(t, func() {
		newTestRecorder(&fakeSink{err: errors.New("a")}, failingRepo{err: errors.New("b")}, log).
			Record(context.Background(), models.ActionListFiles, map[string]any{"count": 0})
	})
	assert.Len(t, log.lines, 2)
}

func TestRecord_DetachedFromCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &fakeSink{}
	repo := activitylogs.NewMemoryRepository()
	newTestRecorder(sink, repo, &captureLogger{}).Record(ctx, models.ActionFileUpload, nil)

	assert.NoError(t, sink.ctxErr, "writes must not see the caller's cancellation")
	entries, _ := repo.List(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "{}", entries[0].Details)
}

func TestRecord_UnserialisableDetails(t *testing.T) {
	repo := activitylogs.NewMemoryRepository()
	log := &captureLogger{}

	newTestRecorder(&fakeSink{}, repo, log).Record(context.Background(), models.ActionFileUpload,
		map[string]any{"bad": make(chan int)})

	entries, _ := repo.List(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "{}", entries[0].Details)
	assert.Len(t, log.lines, 1)
}

func assertLoggedAuditError(t *testing.T, l logLine) {
	t.Helper()
	for i := 0; i+1 < len(l.args); i += 2 {
		if l.args[i] == "error" {
			err, ok := l.args[i+1].(error)
			require.True(t, ok)
			assert.ErrorIs(t, err, common.ErrAuditWrite)
			return
		}
	}
	t.Fatalf("no error attribute in %v", l.args)
}
