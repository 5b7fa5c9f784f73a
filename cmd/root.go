package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/config"
)

// cfg is loaded before any subcommand runs; flags may override it.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "edinet-screener",
	Short: "Net-net screening of EDINET annual reports",
	Long: `edinet-screener builds the EDINET document index, extracts financial facts
from annual report XBRL, computes net current asset value signals per company
and stores them for export and the read-only API.

Settings come from config.yaml and EDINET_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "edinet-screener: config")
		}
		if err := config.InitLogger(loaded.Log); err != nil {
			return eris.Wrap(err, "edinet-screener: logger")
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
