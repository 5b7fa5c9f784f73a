package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateRebuild bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		st, err := initStore(cmd.Context(), migrateRebuild)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("schema up to date", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateRebuild, "rebuild", false, "remove the SQLite database first")
	rootCmd.AddCommand(migrateCmd)
}
