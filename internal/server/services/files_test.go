package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/audit"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/logsink"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

// countingBlobs counts every call and can fail selected operations.
type countingBlobs struct {
	blobstore.Store
	calls  int
	putErr error
	getErr error
	delErr error
}

func (c *countingBlobs) Put(ctx context.Context, key string, data []byte, ct string, tags map[string]string) error {
	c.calls++
	if c.putErr != nil {
		return c.putErr
	}
	return c.Store.Put(ctx, key, data, ct, tags)
}

func (c *countingBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	c.calls++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.Store.Get(ctx, key)
}

func (c *countingBlobs) Delete(ctx context.Context, key string) error {
	c.calls++
	if c.delErr != nil {
		return c.delErr
	}
	return c.Store.Delete(ctx, key)
}

// countingFiles counts every call and can fail selected operations.
type countingFiles struct {
	files.Repository
	calls     int
	createErr error
	getErr    error
	listErr   error
	deleteErr error
}

func (c *countingFiles) Create(ctx context.Context, rec *models.FileRecord) error {
	c.calls++
	if c.createErr != nil {
		return c.createErr
	}
	return c.Repository.Create(ctx, rec)
}

func (c *countingFiles) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	c.calls++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.Repository.GetByID(ctx, id)
}

func (c *countingFiles) List(ctx context.Context) ([]*models.FileRecord, error) {
	c.calls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.Repository.List(ctx)
}

func (c *countingFiles) Delete(ctx context.Context, id string) error {
	c.calls++
	if c.deleteErr != nil {
		return c.deleteErr
	}
	return c.Repository.Delete(ctx, id)
}

type failingLogs struct{ err error }

func (f failingLogs) Create(context.Context, *models.ActivityLogEntry) error { return f.err }
func (f failingLogs) List(context.Context) ([]*models.ActivityLogEntry, error) {
	return nil, f.err
}

type failingSink struct{}

func (failingSink) PutEvents(context.Context, string, []logsink.Event) error {
	return errors.New("sink unavailable")
}

// stubRepoManager vends fixed repositories.
type stubRepoManager struct {
	files files.Repository
	logs  activitylogs.Repository
}

func (m *stubRepoManager) Files() files.Repository               { return m.files }
func (m *stubRepoManager) ActivityLogs() activitylogs.Repository { return m.logs }
func (m *stubRepoManager) RunMigrations(context.Context) error   { return nil }
func (m *stubRepoManager) Close() error                          { return nil }

// --- harness ---

type harness struct {
	svc   *FileService
	blobs *countingBlobs
	files *countingFiles
	logs  *activitylogs.MemoryRepository
}

func testConfig() *config.Config {
	return &config.Config{DefaultEncryptionKey: "default-key", MaxUploadBytes: 1 << 20}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		blobs: &countingBlobs{Store: blobstore.NewMemoryStore()},
		files: &countingFiles{Repository: files.NewMemoryRepository()},
		logs:  activitylogs.NewMemoryRepository(),
	}
	rm := &stubRepoManager{files: h.files, logs: h.logs}
	rec := audit.NewRecorder(logsink.Nop{}, h.logs, "activity", logging.Nop{})
	h.svc = NewFileService(h.blobs, rm, rec, testConfig(), logging.Nop{})

	n := 0
	h.svc.newID = func() string {
		n++
		return fmt.Sprintf("file-%d", n)
	}
	return h
}

func (h *harness) storeCalls() int { return h.blobs.calls + h.files.calls }

func (h *harness) entries(t *testing.T) []*models.ActivityLogEntry {
	t.Helper()
	es, err := h.logs.List(context.Background())
	require.NoError(t, err)
	return es
}

func detailsOf(t *testing.T, e *models.ActivityLogEntry) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.Details), &m))
	return m
}

// --- tests ---

func TestUpload_ThenList_ReportsPlaintextSize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	payload := bytes.Repeat([]byte{0xAB}, 1024)
	rec, err := h.svc.Upload(ctx, "report.pdf", "application/pdf", payload, "k")
	require.NoError(t, err)
	assert.True(t, rec.Encrypted)

	list, err := h.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "report.pdf", list[0].FileName)
	assert.Equal(t, int64(1024), list[0].Size)

	stored, err := h.blobs.Store.Get(ctx, models.BlobKey(rec.FileID))
	require.NoError(t, err)
	assert.Len(t, stored, 1024+cryptox.IVSize, "blob is IV || ciphertext")
}

func TestUpload_ThenDownload_RoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.bin", "application/octet-stream", []byte{0x01, 0x02, 0x03}, "secret")
	require.NoError(t, err)

	res, err := h.svc.Download(ctx, rec.FileID, "secret")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, res.Data)
	assert.Equal(t, "application/octet-stream", res.ContentType)
	assert.Equal(t, "a.bin", res.FileName)
}

func TestUpload_StoresCiphertextAndProvenanceTag(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	plain := []byte("attack at dawn")
	rec, err := h.svc.Upload(ctx, "plan.txt", "text/plain", plain, "k")
	require.NoError(t, err)

	key := models.BlobKey(rec.FileID)
	assert.Equal(t, "files/"+rec.FileID, key)

	stored, err := h.blobs.Store.Get(ctx, key)
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "attack at dawn")

	mem := h.blobs.Store.(*blobstore.MemoryStore)
	assert.Equal(t, "plan.txt", mem.Tags(key)[common.OriginalNameTag])
}

func TestUpload_EmptyPassphraseUsesDefault(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("hello"), "")
	require.NoError(t, err)

	res, err := h.svc.Download(ctx, rec.FileID, "default-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), res.Data)
}

func TestUpload_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Upload(ctx, "", "text/plain", []byte("x"), "k")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = h.svc.Upload(ctx, "big.bin", "", make([]byte, (1<<20)+1), "k")
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.Zero(t, h.storeCalls(), "validation happens before any store access")
	assert.Empty(t, h.entries(t))
}

func TestUpload_BlobFailureLeavesNoMetadata(t *testing.T) {
	h := newHarness(t)
	h.blobs.putErr = errors.New("s3 down")

	_, err := h.svc.Upload(context.Background(), "a.txt", "text/plain", []byte("x"), "k")
	require.ErrorIs(t, err, common.ErrUpload)

	list, err := h.files.Repository.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, h.entries(t), "failed operations are not audited")
}

func TestUpload_MetadataFailureLeavesOrphanBlob(t *testing.T) {
	h := newHarness(t)
	h.files.createErr = errors.New("table missing")

	_, err := h.svc.Upload(context.Background(), "a.txt", "text/plain", []byte("x"), "k")
	require.ErrorIs(t, err, common.ErrUpload)

	mem := h.blobs.Store.(*blobstore.MemoryStore)
	assert.Equal(t, 1, mem.Len(), "no compensation is attempted")
	assert.Empty(t, h.entries(t))
}

func TestDownload_MissingPassphraseFailsBeforeStoreAccess(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Download(context.Background(), "anything", "")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Zero(t, h.storeCalls())
}

func TestDownloadAndDelete_UnknownFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Download(ctx, "nope", "k")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = h.svc.Delete(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Empty(t, h.entries(t))
}

func TestDownload_MissingBlobIsNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("x"), "k")
	require.NoError(t, err)
	require.NoError(t, h.blobs.Store.Delete(ctx, models.BlobKey(rec.FileID)))

	_, err = h.svc.Download(ctx, rec.FileID, "k")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDownload_StoreErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("x"), "k")
	require.NoError(t, err)

	h.blobs.getErr = errors.New("timeout")
	_, err = h.svc.Download(ctx, rec.FileID, "k")
	assert.ErrorIs(t, err, common.ErrDownload)
	assert.NotErrorIs(t, err, common.ErrNotFound)

	h.blobs.getErr = nil
	h.files.getErr = errors.New("throttled")
	_, err = h.svc.Download(ctx, rec.FileID, "k")
	assert.ErrorIs(t, err, common.ErrDownload)
}

func TestDownload_TruncatedBlobIsDecryptionError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("x"), "k")
	require.NoError(t, err)
	require.NoError(t, h.blobs.Store.Put(ctx, models.BlobKey(rec.FileID), []byte{1, 2, 3}, "", nil))

	_, err = h.svc.Download(ctx, rec.FileID, "k")
	assert.ErrorIs(t, err, common.ErrDecryption)
	assert.ErrorIs(t, err, common.ErrDownload)
}

func TestDownload_WrongPassphraseDegradesSilently(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	plain := []byte("the quick brown fox jumps over the lazy dog")
	rec, err := h.svc.Upload(ctx, "fox.txt", "text/plain", plain, "right")
	require.NoError(t, err)

	res, err := h.svc.Download(ctx, rec.FileID, "wrong")
	require.NoError(t, err)
	assert.Len(t, res.Data, len(plain))
	assert.NotEqual(t, plain, res.Data)
}

func TestDelete_RemovesFromDownloadAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("x"), "k")
	require.NoError(t, err)
	keep, err := h.svc.Upload(ctx, "b.txt", "text/plain", []byte("y"), "k")
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, rec.FileID))

	_, err = h.svc.Download(ctx, rec.FileID, "k")
	assert.ErrorIs(t, err, common.ErrNotFound)

	list, err := h.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.FileID, list[0].FileID)

	_, err = h.blobs.Store.Get(ctx, models.BlobKey(rec.FileID))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_BlobFailureKeepsRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("x"), "k")
	require.NoError(t, err)

	h.blobs.delErr = errors.New("denied")
	err = h.svc.Delete(ctx, rec.FileID)
	require.ErrorIs(t, err, common.ErrDelete)

	_, err = h.files.Repository.GetByID(ctx, rec.FileID)
	assert.NoError(t, err)
}

func TestDelete_MetadataFailureLeavesDanglingRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("x"), "k")
	require.NoError(t, err)

	h.files.deleteErr = errors.New("conditional check failed")
	err = h.svc.Delete(ctx, rec.FileID)
	require.ErrorIs(t, err, common.ErrDelete)

	_, err = h.files.Repository.GetByID(ctx, rec.FileID)
	assert.NoError(t, err, "record survives")
	_, err = h.blobs.Store.Get(ctx, models.BlobKey(rec.FileID))
	assert.ErrorIs(t, err, common.ErrNotFound, "blob is gone")
}

func TestList_Empty(t *testing.T) {
	h := newHarness(t)

	list, err := h.svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestList_StoreError(t *testing.T) {
	h := newHarness(t)
	h.files.listErr = errors.New("scan failed")

	_, err := h.svc.List(context.Background())
	assert.ErrorIs(t, err, common.ErrList)
	assert.Empty(t, h.entries(t))
}

func TestEverySuccessfulOperationIsAuditedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("abc"), "k")
	require.NoError(t, err)
	require.Len(t, h.entries(t), 1)

	_, err = h.svc.Download(ctx, rec.FileID, "k")
	require.NoError(t, err)
	require.Len(t, h.entries(t), 2)

	_, err = h.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, h.entries(t), 3)

	require.NoError(t, h.svc.Delete(ctx, rec.FileID))
	entries := h.entries(t)
	require.Len(t, entries, 4)

	want := []models.Action{models.ActionFileUpload, models.ActionFileDownload, models.ActionListFiles, models.ActionFileDelete}
	for i, e := range entries {
		assert.Equal(t, want[i], e.Action)
		d := detailsOf(t, e)
		if e.Action == models.ActionListFiles {
			assert.EqualValues(t, 1, d["count"])
			continue
		}
		assert.Equal(t, rec.FileID, d["fileId"])
		assert.Equal(t, "a.txt", d["fileName"])
	}
	assert.EqualValues(t, 3, detailsOf(t, entries[0])["size"])
}

func TestAuditOutageDoesNotAffectResults(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	fileRepo := files.NewMemoryRepository()
	rm := &stubRepoManager{files: fileRepo, logs: failingLogs{err: errors.New("table gone")}}
	rec := audit.NewRecorder(failingSink{}, rm.logs, "activity", logging.Nop{})
	svc := NewFileService(blobs, rm, rec, testConfig(), logging.Nop{})
	ctx := context.Background()

	up, err := svc.Upload(ctx, "a.bin", "application/octet-stream", []byte{0x01, 0x02, 0x03}, "secret")
	require.NoError(t, err)

	res, err := svc.Download(ctx, up.FileID, "secret")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, res.Data)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, up.FileID))
}

func TestLogs_NewestFirstAndNotAudited(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, a := range []models.Action{models.ActionFileUpload, models.ActionFileDownload, models.ActionFileDelete} {
		require.NoError(t, h.logs.Create(ctx, &models.ActivityLogEntry{
			LogID:     fmt.Sprintf("l%d", i),
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Action:    a,
			Details:   "{}",
		}))
	}

	got, err := h.svc.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "l2", got[0].LogID)
	assert.Equal(t, "l1", got[1].LogID)
	assert.Equal(t, "l0", got[2].LogID)

	assert.Len(t, h.entries(t), 3, "reading the trail adds nothing to it")
}

func TestLogs_StoreError(t *testing.T) {
	rm := &stubRepoManager{files: files.NewMemoryRepository(), logs: failingLogs{err: errors.New("down")}}
	svc := NewFileService(blobstore.NewMemoryStore(), rm, audit.NewRecorder(logsink.Nop{}, rm.logs, "s", logging.Nop{}), testConfig(), logging.Nop{})

	_, err := svc.Logs(context.Background())
	assert.ErrorIs(t, err, common.ErrList)
}
