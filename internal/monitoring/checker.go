package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker looks at recent screening runs and posts alerts to the webhook.
// The run command calls Check once after recording its stats; serve keeps
// Run going so batches started elsewhere are watched too.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
	log       *zap.Logger
}

// NewChecker wires a collector and alerter with the monitoring config.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		log:       zap.L().With(zap.String("component", "monitoring")),
	}
}

// interval is monitoring.check_interval_secs, five minutes when unset.
func (c *Checker) interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return defaultCheckInterval
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}

// Run checks the run history on every tick until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	every := c.interval()
	c.log.Info("watching screening runs",
		zap.Duration("every", every),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Check(ctx)
		case <-ctx.Done():
			c.log.Info("run watcher stopped")
			return
		}
	}
}

// Check summarizes the lookback window and posts any triggered alert. It
// returns how many alerts fired, whether or not delivery succeeded.
func (c *Checker) Check(ctx context.Context) int {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		c.log.Error("run history unavailable", zap.Error(err))
		return 0
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		c.log.Debug("runs healthy",
			zap.Int("runs", snap.RunsTotal),
			zap.Int("companies", snap.Companies),
		)
		return 0
	}

	for _, a := range alerts {
		c.log.Warn("run alert", zap.String("type", string(a.Type)), zap.String("message", a.Message))
	}
	delivered := c.alerter.SendAlerts(ctx, alerts)
	if delivered < len(alerts) {
		c.log.Warn("some run alerts were not delivered",
			zap.Int("fired", len(alerts)),
			zap.Int("delivered", delivered),
		)
	}
	return len(alerts)
}
