// Package server wires configuration to storage backends, the file gateway
// and the HTTP surface, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/audit"
	"github.com/dmitrijs2005/filevault/internal/server/awsx"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/logsink"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/rest"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       repomanager.RepositoryManager
	fileService *services.FileService
}

func credentials(c *config.Config) awsx.Credentials {
	return awsx.Credentials{
		Region:          c.AWSRegion,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case config.BackendS3:
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Credentials:  credentials(c),
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
			UsePathStyle: c.S3UsePathStyle,
		})
	case config.BackendMemory:
		return blobstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.MetadataBackend {
	case config.BackendDynamoDB:
		return repomanager.NewDynamoRepositoryManager(ctx, repomanager.DynamoConfig{
			Credentials:   credentials(c),
			Endpoint:      c.DynamoDBEndpoint,
			FileTable:     c.FileTable,
			ActivityTable: c.ActivityTable,
		})
	case config.BackendPostgres:
		return repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	case config.BackendBolt:
		return repomanager.NewBoltRepositoryManager(c.BoltPath)
	case config.BackendMemory:
		return repomanager.NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", c.MetadataBackend)
	}
}

func newLogSink(ctx context.Context, c *config.Config, logger logging.Logger) (logsink.Sink, error) {
	switch c.LogSinkBackend {
	case config.BackendCloudWatch:
		return logsink.NewCloudWatchSink(ctx, logsink.CloudWatchConfig{
			Credentials: credentials(c),
			Endpoint:    c.CloudWatchEndpoint,
			LogGroup:    c.LogGroup,
		})
	case config.BackendSlog:
		return logsink.NewSlogSink(logger), nil
	case config.BackendNop:
		return logsink.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown log sink backend %q", c.LogSinkBackend)
	}
}

// NewApp builds every backend named in c, creates missing buckets and tables,
// and assembles the file gateway.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	repos, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	sink, err := newLogSink(ctx, c, logger)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("log sink init error: %w", err)
	}

	recorder := audit.NewRecorder(sink, repos.ActivityLogs(), c.LogStream, logger)
	fs := services.NewFileService(blobs, repos, recorder, c, logger)

	return &App{config: c, logger: logger, repos: repos, fileService: fs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewServer(app.config.HTTPAddress, app.fileService, app.config.MaxUploadBytes, app.config.ShutdownTimeout, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the metadata backend.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"blob_backend", app.config.BlobBackend,
		"metadata_backend", app.config.MetadataBackend,
		"log_sink_backend", app.config.LogSinkBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(context.WithoutCancel(ctx), "close metadata backend", "error", err)
	}
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}
