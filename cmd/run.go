package main

import (
	"context"
	"errors"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/edinet-screener/internal/company"
	"github.com/sells-group/edinet-screener/internal/export"
	"github.com/sells-group/edinet-screener/internal/model"
	"github.com/sells-group/edinet-screener/internal/screening"
)

var (
	runNumFiles  int
	runDaysBack  int
	runRebuildDB bool
	runPolicy    string
	runWorkers   int
	runNoExport  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen the companies in the next target lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("num-files") {
			cfg.Batch.NumFiles = runNumFiles
		}
		if cmd.Flags().Changed("days-back") {
			cfg.EDINET.DaysBack = runDaysBack
		}
		if cmd.Flags().Changed("workers") {
			cfg.Batch.MaxWorkers = runWorkers
		}
		if runPolicy != "" {
			cfg.Filings.Policy = runPolicy
		}
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runScreening(ctx)
	},
}

func init() {
	runCmd.Flags().IntVar(&runNumFiles, "num-files", 1, "number of target list files to process")
	runCmd.Flags().IntVar(&runDaysBack, "days-back", 365, "days of document index to build")
	runCmd.Flags().BoolVar(&runRebuildDB, "rebuild-db", false, "remove the SQLite database before running")
	runCmd.Flags().StringVar(&runPolicy, "policy", "", "filing policy: latest_two or latest_only (default from config)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 4, "concurrent companies")
	runCmd.Flags().BoolVar(&runNoExport, "no-export", false, "skip the CSV export after the run")
	rootCmd.AddCommand(runCmd)
}

func runScreening(ctx context.Context) error {
	log := zap.L()

	extractor, err := newExtractor()
	if err != nil {
		return err
	}
	selector, err := newSelector("")
	if err != nil {
		return err
	}

	st, err := initStore(ctx, runRebuildDB)
	if err != nil {
		return err
	}
	defer st.Close()

	paths, err := company.TargetFiles(cfg.Company.TargetDir, cfg.Batch.NumFiles)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Info("no target lists found", zap.String("dir", cfg.Company.TargetDir))
		return nil
	}

	run, err := st.CreateRun(ctx, model.RunOptions{
		TargetFiles: paths,
		DaysBack:    cfg.EDINET.DaysBack,
		Policy:      cfg.Filings.Policy,
		Workers:     cfg.Batch.MaxWorkers,
	})
	if err != nil {
		return err
	}
	log = log.With(zap.String("run_id", run.ID))

	var stats model.RunStats
	runErr := func() error {
		master, err := company.LoadMasterFile(ctx, cfg.Company.MasterPath)
		if err != nil {
			return err
		}
		codes, err := company.ReadTargets(ctx, paths, master)
		if err != nil {
			return err
		}
		companies := make([]company.Company, 0, len(codes))
		for _, code := range codes {
			companies = append(companies, master[code])
		}
		log.Info("targets loaded", zap.Int("files", len(paths)), zap.Int("companies", len(companies)))

		client := newEDINETClient(st)
		index, err := client.BuildIndex(ctx, cfg.EDINET.DaysBack, time.Now())
		if err != nil {
			return err
		}
		stats.Documents = len(index)

		analyzer := screening.NewAnalyzer(index, selector, client, extractor)
		stats, err = processCompanies(ctx, companies, cfg.Batch.MaxWorkers, cfg.Batch.ProgressEvery, analyzer.Analyze, st.SaveResult, stats)
		if err != nil {
			return err
		}

		moved, err := company.MoveToDone(cfg.Company.TargetDir, paths)
		if err != nil {
			return err
		}
		log.Info("target lists archived", zap.Int("moved", moved))
		return nil
	}()
	if runErr != nil {
		stats.Error = runErr.Error()
	}

	// The run record outlives a cancelled context.
	if err := st.CompleteRun(context.WithoutCancel(ctx), run.ID, stats); err != nil {
		log.Warn("failed to record run result", zap.Error(err))
	}
	if checker := newChecker(st); checker != nil {
		checker.Check(context.WithoutCancel(ctx))
	}
	if runErr != nil {
		return runErr
	}

	if !runNoExport {
		if err := exportReport(ctx, st, cfg.Export.CSVPath, export.FormatCSV, model.ReportFilter{}); err != nil {
			return err
		}
	}

	log.Info("run complete",
		zap.Int("companies", stats.Companies),
		zap.Int("saved", stats.Saved),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return nil
}

type analyzeFunc func(ctx context.Context, c company.Company) (*screening.Result, error)

type saveFunc func(ctx context.Context, res *screening.Result) error

// processCompanies analyzes and saves companies concurrently. A failing
// company is logged and counted; only cancellation of ctx stops the batch.
func processCompanies(ctx context.Context, companies []company.Company, concurrency, progressEvery int, analyze analyzeFunc, save saveFunc, stats model.RunStats) (model.RunStats, error) {
	stats.Companies = len(companies)
	if len(companies) == 0 {
		zap.L().Info("no companies to process")
		return stats, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if progressEvery < 1 {
		progressEvery = 10
	}

	zap.L().Info("processing companies",
		zap.Int("companies", len(companies)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var saved, skipped, failed, done atomic.Int64

	for _, c := range companies {
		g.Go(func() error {
			log := zap.L().With(zap.String("edinet_code", c.EDINETCode))
			defer func() {
				if n := done.Add(1); n%int64(progressEvery) == 0 || n == int64(len(companies)) {
					zap.L().Info("progress", zap.Int64("done", n), zap.Int("total", len(companies)))
				}
			}()

			if gctx.Err() != nil {
				return nil
			}

			res, err := analyze(gctx, c)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				failed.Add(1)
				log.Error("analysis failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			if res == nil {
				skipped.Add(1)
				log.Debug("no eligible annual report")
				return nil
			}

			if err := save(gctx, res); err != nil {
				failed.Add(1)
				log.Error("save failed", zap.Error(err))
				return nil
			}

			saved.Add(1)
			log.Info("company screened",
				zap.Int("filings", len(res.Filings)),
				zap.String("alerts", res.Screening.Alerts()),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, eris.Wrap(err, "batch processing")
	}

	stats.Saved = int(saved.Load())
	stats.Skipped = int(skipped.Load())
	stats.Failed = int(failed.Load())

	return stats, ctx.Err()
}
