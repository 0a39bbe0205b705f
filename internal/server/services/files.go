// Package services contains server-side business logic. This file implements
// FileService, the gateway that encrypts, stores, lists, returns and deletes
// files across the blob store and the metadata repositories.
package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Auditor records a completed operation. Implementations must not fail the
// caller; see audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, action models.Action, details map[string]any)
}

// FileService orchestrates the codec, both stores and the audit trail.
//
// Upload writes the blob before the metadata, and Delete removes the blob
// before the metadata. There is no cross-store transaction: a failure between
// the two steps leaves an orphan blob or a dangling record, which is logged.
type FileService struct {
	blobs       blobstore.Store
	repomanager repomanager.RepositoryManager
	auditor     Auditor
	logger      logging.Logger

	defaultKey     string
	maxUploadBytes int64

	now   func() time.Time
	newID func() string
}

// NewFileService constructs a FileService using the stores and server config.
func NewFileService(blobs blobstore.Store, m repomanager.RepositoryManager, auditor Auditor, cfg *config.Config, logger logging.Logger) *FileService {
	return &FileService{
		blobs:          blobs,
		repomanager:    m,
		auditor:        auditor,
		logger:         logger.With("module", "files"),
		defaultKey:     cfg.DefaultEncryptionKey,
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
}

// Upload encrypts plaintext and stores it under a new fileId. An empty
// passphrase selects the configured default key.
func (s *FileService) Upload(ctx context.Context, fileName, contentType string, plaintext []byte, passphrase string) (*models.FileRecord, error) {
	if fileName == "" {
		return nil, fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if s.maxUploadBytes > 0 && int64(len(plaintext)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: file is %d bytes, limit is %d", common.ErrValidation, len(plaintext), s.maxUploadBytes)
	}
	if passphrase == "" {
		passphrase = s.defaultKey
	}

	fileID := s.newID()

	blob, err := cryptox.Encrypt(plaintext, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUpload, err)
	}

	key := models.BlobKey(fileID)
	tags := map[string]string{common.OriginalNameTag: fileName}
	if err := s.blobs.Put(ctx, key, blob, contentType, tags); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUpload, err)
	}

	rec := &models.FileRecord{
		FileID:      fileID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(plaintext)),
		UploadedAt:  s.now(),
		Encrypted:   true,
	}
	if err := s.repomanager.Files().Create(ctx, rec); err != nil {
		s.logger.Error(ctx, "metadata write failed, blob left orphaned", "file_id", fileID, "blob_key", key, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrUpload, err)
	}

	s.auditor.Record(ctx, models.ActionFileUpload, map[string]any{
		"fileId":   fileID,
		"fileName": fileName,
		"size":     rec.Size,
	})

	return rec, nil
}

// Download returns the decrypted payload of fileID. A wrong passphrase is not
// detected: the result is then garbage of the right length.
func (s *FileService) Download(ctx context.Context, fileID, passphrase string) (*models.DownloadResult, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: %s is required", common.ErrValidation, common.EncryptionKeyField)
	}

	rec, err := s.repomanager.Files().GetByID(ctx, fileID)
	if err != nil {
		return nil, wrapUnlessNotFound(common.ErrDownload, err)
	}

	blob, err := s.blobs.Get(ctx, models.BlobKey(fileID))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "metadata without blob", "file_id", fileID)
		}
		return nil, wrapUnlessNotFound(common.ErrDownload, err)
	}

	plaintext, err := cryptox.Decrypt(blob, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDownload, err)
	}

	s.auditor.Record(ctx, models.ActionFileDownload, map[string]any{
		"fileId":   fileID,
		"fileName": rec.FileName,
	})

	return &models.DownloadResult{
		Data:        plaintext,
		ContentType: rec.ContentType,
		FileName:    rec.FileName,
	}, nil
}

// List returns every stored record.
func (s *FileService) List(ctx context.Context) ([]*models.FileRecord, error) {
	recs, err := s.repomanager.Files().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrList, err)
	}
	if recs == nil {
		recs = []*models.FileRecord{}
	}

	s.auditor.Record(ctx, models.ActionListFiles, map[string]any{"count": len(recs)})

	return recs, nil
}

// Delete removes the blob and then the record for fileID.
func (s *FileService) Delete(ctx context.Context, fileID string) error {
	files := s.repomanager.Files()

	rec, err := files.GetByID(ctx, fileID)
	if err != nil {
		return wrapUnlessNotFound(common.ErrDelete, err)
	}

	if err := s.blobs.Delete(ctx, models.BlobKey(fileID)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrDelete, err)
	}

	if err := files.Delete(ctx, fileID); err != nil {
		s.logger.Error(ctx, "blob deleted but metadata remains", "file_id", fileID, "error", err)
		return wrapUnlessNotFound(common.ErrDelete, err)
	}

	s.auditor.Record(ctx, models.ActionFileDelete, map[string]any{
		"fileId":   fileID,
		"fileName": rec.FileName,
	})

	return nil
}

// Logs returns the activity trail, newest first. Reading it is not audited.
func (s *FileService) Logs(ctx context.Context) ([]*models.ActivityLogEntry, error) {
	entries, err := s.repomanager.ActivityLogs().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrList, err)
	}
	if entries == nil {
		entries = []*models.ActivityLogEntry{}
	}

	slices.SortStableFunc(entries, func(a, b *models.ActivityLogEntry) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})
	return entries, nil
}

// wrapUnlessNotFound keeps ErrNotFound as the outermost meaning and wraps
// anything else in op.
func wrapUnlessNotFound(op, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", op, err)
}
