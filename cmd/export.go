package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/export"
	"github.com/sells-group/edinet-screener/internal/model"
	"github.com/sells-group/edinet-screener/internal/store"
)

var (
	exportOutput     string
	exportFormat     string
	exportNetNetOnly bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the comparison report as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		format := strings.ToLower(exportFormat)
		path := exportOutput
		if path == "" {
			path = cfg.Export.CSVPath
			if format == export.FormatXLSX {
				path = cfg.Export.XLSXPath
			}
		}

		ctx := cmd.Context()
		st, err := initStore(ctx, false)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return exportReport(ctx, st, path, format, model.ReportFilter{NetNetOnly: exportNetNetOnly})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatCSV, "output format: csv or xlsx")
	exportCmd.Flags().BoolVar(&exportNetNetOnly, "netnet-only", false, "only companies with positive NCAV")
	rootCmd.AddCommand(exportCmd)
}

func exportReport(ctx context.Context, st store.Store, path, format string, filter model.ReportFilter) error {
	rows, err := st.ListReport(ctx, filter)
	if err != nil {
		return err
	}
	if err := export.WriteFile(path, format, rows); err != nil {
		return err
	}
	zap.L().Info("report exported",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("rows", len(rows)),
	)
	return nil
}
