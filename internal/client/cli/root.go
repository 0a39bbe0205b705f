package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/client/client"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/spf13/cobra"
)

// ServerEnvVar overrides the default server address.
const ServerEnvVar = "FILEVAULT_SERVER"

const defaultServer = "http://localhost:8080"

// API is the part of client.HTTPClient the commands use.
type API interface {
	Upload(ctx context.Context, fileName, contentType string, data []byte, passphrase string) (string, error)
	Download(ctx context.Context, fileID, passphrase string) (*client.File, error)
	List(ctx context.Context) ([]*models.FileRecord, error)
	Delete(ctx context.Context, fileID string) error
	Logs(ctx context.Context) ([]*models.ActivityLogEntry, error)
}

var _ API = (*client.HTTPClient)(nil)

type options struct {
	server  string
	timeout time.Duration
	// newAPI is swapped in tests.
	newAPI func(server string, timeout time.Duration) API
}

func defaultNewAPI(server string, timeout time.Duration) API {
	return client.NewHTTPClient(server, timeout)
}

// NewRootCommand builds the filevault command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{newAPI: defaultNewAPI})
}

func newRootCommand(o *options) *cobra.Command {
	server := os.Getenv(ServerEnvVar)
	if server == "" {
		server = defaultServer
	}

	cmd := &cobra.Command{
		Use:   "filevault",
		Short: "filevault encrypted file storage client",
		Long: `filevault uploads files to a filevault server, which encrypts them with a
passphrase before storing them. Files are fetched back with the same passphrase.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&o.server, "server", "s", server, "filevault server base URL")
	cmd.PersistentFlags().DurationVar(&o.timeout, "timeout", 60*time.Second, "HTTP request timeout")

	cmd.AddCommand(
		newUploadCmd(o),
		newDownloadCmd(o),
		newListCmd(o),
		newDeleteCmd(o),
		newLogsCmd(o),
	)
	return cmd
}

func (o *options) api() API {
	return o.newAPI(o.server, o.timeout)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
