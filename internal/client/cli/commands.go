package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/spf13/cobra"
)

func newUploadCmd(o *options) *cobra.Command {
	var key, contentType string
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Encrypt and store a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(path))
			}

			id, err := o.api().Upload(cmd.Context(), filepath.Base(path), contentType, data, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Uploaded %s (%d bytes)\nFile ID: %s\n", filepath.Base(path), len(data), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "encryption passphrase (server default when empty)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (guessed from the extension when empty)")
	return cmd
}

func newDownloadCmd(o *options) *cobra.Command {
	var key, outPath string
	cmd := &cobra.Command{
		Use:   "download <fileId>",
		Short: "Fetch and decrypt a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				k, err := promptKey(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				key = k
			}

			f, err := o.api().Download(cmd.Context(), args[0], key)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = filepath.Base(f.Name)
			}
			abs, err := filex.EnsureParentDir(outPath)
			if err != nil {
				return err
			}
			if err := os.WriteFile(abs, f.Data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Saved %s (%d bytes)\n", outPath, len(f.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "encryption passphrase (prompted when empty)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (stored file name when empty)")
	return cmd
}

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := o.api().List(cmd.Context())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(out(cmd), "No files.")
				return nil
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSIZE\tTYPE\tUPLOADED")
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", f.FileID, f.FileName, f.Size, f.ContentType, f.UploadedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <fileId>",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.api().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newLogsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show the activity log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := o.api().Logs(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTION\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Action, e.Details)
			}
			return tw.Flush()
		},
	}
}
