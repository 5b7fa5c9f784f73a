package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/edinet"
	"github.com/sells-group/edinet-screener/internal/fetcher"
)

var (
	fetchDir     string
	fetchExtract bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <doc-id>...",
	Short: "Download filing archives by document ID",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		if err := os.MkdirAll(fetchDir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", fetchDir)
		}

		client := newEDINETClient(nil)
		for _, docID := range args {
			if err := downloadFiling(cmd.Context(), client, docID, fetchDir, fetchExtract); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "downloads", "destination directory")
	fetchCmd.Flags().BoolVar(&fetchExtract, "extract", false, "unpack each archive into <dir>/<doc-id>")
	rootCmd.AddCommand(fetchCmd)
}

// downloadFiling saves the archive of docID as <dir>/<docID>.zip and
// optionally unpacks it.
func downloadFiling(ctx context.Context, client *edinet.Client, docID, dir string, unpack bool) error {
	path := filepath.Join(dir, docID+".zip")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	n, err := client.SaveArchive(ctx, docID, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	zap.L().Info("archive saved", zap.String("doc_id", docID), zap.String("path", path), zap.Int64("bytes", n))

	if !unpack {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	files, err := fetcher.ExtractZIPBytes(data, filepath.Join(dir, docID))
	if err != nil {
		return eris.Wrapf(err, "extract %s", docID)
	}
	zap.L().Info("archive extracted", zap.String("doc_id", docID), zap.Int("files", len(files)))
	return nil
}
