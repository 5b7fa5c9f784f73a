package main

import (
	"bytes"
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/company"
	"github.com/sells-group/edinet-screener/internal/store"
)

var masterDownload bool

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Load the EDINET code list into the companies table",
	Long:  "Loads EdinetcodeDlInfo.csv from company.master_path, or downloads it from edinet.code_list_url with --download, and upserts every company.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("master"); err != nil {
			return err
		}
		ctx := cmd.Context()

		master, err := loadMaster(ctx)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, false)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return saveMaster(ctx, st, master)
	},
}

func init() {
	masterCmd.Flags().BoolVar(&masterDownload, "download", false, "download the code list instead of reading company.master_path")
	rootCmd.AddCommand(masterCmd)
}

func loadMaster(ctx context.Context) (company.Master, error) {
	if !masterDownload {
		return company.LoadMasterFile(ctx, cfg.Company.MasterPath)
	}

	body, err := newEDINETClient(nil).FetchCodeList(ctx, cfg.EDINET.CodeListURL)
	if err != nil {
		return nil, err
	}
	if cfg.Company.MasterPath != "" {
		if err := ensureParentDir(cfg.Company.MasterPath); err != nil {
			return nil, err
		}
		if err := os.WriteFile(cfg.Company.MasterPath, body, 0o644); err != nil {
			return nil, eris.Wrapf(err, "write %s", cfg.Company.MasterPath)
		}
		zap.L().Info("code list saved", zap.String("path", cfg.Company.MasterPath))
	}
	return company.LoadMaster(ctx, bytes.NewReader(body))
}

func saveMaster(ctx context.Context, st store.Store, master company.Master) error {
	companies := make([]company.Company, 0, len(master))
	for _, c := range master {
		companies = append(companies, c)
	}
	n, err := st.SaveCompanies(ctx, companies)
	if err != nil {
		return err
	}
	zap.L().Info("companies saved", zap.Int("master", len(master)), zap.Int64("upserted", n))
	return nil
}
