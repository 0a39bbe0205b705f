// Package rest exposes FileService over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// FileGateway is the subset of services.FileService the handlers call.
type FileGateway interface {
	Upload(ctx context.Context, fileName, contentType string, plaintext []byte, passphrase string) (*models.FileRecord, error)
	Download(ctx context.Context, fileID, passphrase string) (*models.DownloadResult, error)
	List(ctx context.Context) ([]*models.FileRecord, error)
	Delete(ctx context.Context, fileID string) error
	Logs(ctx context.Context) ([]*models.ActivityLogEntry, error)
}

// Server is the HTTP front end.
type Server struct {
	addr            string
	files           FileGateway
	logger          logging.Logger
	maxUploadBytes  int64
	shutdownTimeout time.Duration

	server *http.Server
	once   sync.Once
}

func NewServer(addr string, files FileGateway, maxUploadBytes int64, shutdownTimeout time.Duration, logger logging.Logger) *Server {
	return &Server{
		addr:            addr,
		files:           files,
		logger:          logger.With("module", "rest"),
		maxUploadBytes:  maxUploadBytes,
		shutdownTimeout: shutdownTimeout,
	}
}

// Handler returns the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/download/{fileId}", s.handleDownload)
	mux.HandleFunc("GET /api/files", s.handleList)
	mux.HandleFunc("DELETE /api/files/{fileId}", s.handleDelete)
	mux.HandleFunc("GET /api/logs", s.handleLogs)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.addr,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
