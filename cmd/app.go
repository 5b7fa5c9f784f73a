package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/edinet"
	"github.com/sells-group/edinet-screener/internal/fetcher"
	"github.com/sells-group/edinet-screener/internal/filing"
	"github.com/sells-group/edinet-screener/internal/monitoring"
	"github.com/sells-group/edinet-screener/internal/resilience"
	"github.com/sells-group/edinet-screener/internal/store"
	"github.com/sells-group/edinet-screener/internal/xbrl"
)

// initStore opens and migrates the configured store. rebuild removes an
// existing SQLite file first. Callers should defer st.Close().
func initStore(ctx context.Context, rebuild bool) (store.Store, error) {
	if rebuild && cfg.Store.Driver != store.DriverPostgres {
		if err := os.Remove(cfg.Store.SQLitePath); err != nil && !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "remove %s", cfg.Store.SQLitePath)
		}
		zap.L().Info("removed existing database", zap.String("path", cfg.Store.SQLitePath))
	}
	if cfg.Store.Driver != store.DriverPostgres {
		if err := ensureParentDir(cfg.Store.SQLitePath); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN(), &cfg.Store.Pool)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newEDINETClient builds the rate-limited API client. cache may be nil.
func newEDINETClient(cache edinet.IndexCache) *edinet.Client {
	retry := resilience.FromSettings(cfg.EDINET.Retry.MaxAttempts, cfg.EDINET.Retry.InitialBackoff, cfg.EDINET.Retry.MaxBackoff)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.EDINET.UserAgent,
		Timeout:      cfg.EDINET.Timeout,
		MaxBodyBytes: cfg.EDINET.MaxBodyBytes,
		Retry:        retry,
		Limiters:     fetcher.EDINETLimiters(cfg.EDINET.MinInterval),
	})
	return edinet.NewClient(f, cfg.EDINET.BaseURL, cfg.EDINET.APIKey, cache)
}

// newExtractor loads the concept dictionary and scope strategy.
func newExtractor() (*xbrl.Extractor, error) {
	strategy, err := xbrl.ParseScopeStrategy(cfg.XBRL.ScopeStrategy)
	if err != nil {
		return nil, err
	}
	concepts := xbrl.DefaultConcepts()
	if cfg.XBRL.ConceptsPath != "" {
		concepts, err = xbrl.LoadConcepts(cfg.XBRL.ConceptsPath)
		if err != nil {
			return nil, err
		}
		zap.L().Info("loaded concept dictionary",
			zap.String("path", cfg.XBRL.ConceptsPath),
			zap.Int("concepts", len(concepts)),
		)
	}
	return xbrl.NewExtractor(xbrl.Options{
		Currency: cfg.XBRL.Currency,
		Strategy: strategy,
		Logger:   zap.L().Named("xbrl"),
	}, concepts), nil
}

func newSelector(policyFlag string) (*filing.Selector, error) {
	name := cfg.Filings.Policy
	if policyFlag != "" {
		name = policyFlag
	}
	policy, err := filing.ParsePolicy(name)
	if err != nil {
		return nil, err
	}
	return filing.NewSelector(cfg.Filings.Rules, policy), nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return eris.Wrapf(os.MkdirAll(dir, 0o755), "create %s", dir)
}

// newChecker returns the run alert checker, or nil when no webhook is set.
func newChecker(runs monitoring.RunLister) *monitoring.Checker {
	if cfg.Monitoring.WebhookURL == "" {
		return nil
	}
	return monitoring.NewChecker(monitoring.NewCollector(runs), monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
}
