package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/futures/backend/internal/collector"
	"github.com/wonny/futures/backend/pkg/config"
	"github.com/wonny/futures/backend/pkg/logger"
)

// Runner is the part of collector.Collector the job drives
type Runner interface {
	Run(ctx context.Context, from, to time.Time, opts collector.Options) (*collector.Report, error)
}

// MainSeriesJob collects the last few exchange-local days after the close
// and advances every product's main contract.
// ⭐ SSOT: 일일 수집 스케줄은 이 Job에서만
type MainSeriesJob struct {
	runner   Runner
	schedule string
	lookback int
	workers  int
	loc      *time.Location
	logger   *logger.Logger
	now      func() time.Time
}

// NewMainSeriesJob creates the daily post-close job
func NewMainSeriesJob(runner Runner, cfg *config.Config, log *logger.Logger) *MainSeriesJob {
	lookback := cfg.Collector.LookbackDays
	if lookback < 0 {
		lookback = 0
	}
	return &MainSeriesJob{
		runner:   runner,
		schedule: cfg.Collector.Schedule,
		lookback: lookback,
		workers:  cfg.Collector.SelectWorkers,
		loc:      cfg.Location(),
		logger:   log.WithField("job", "main_series"),
		now:      time.Now,
	}
}

// Name returns the job name
func (j *MainSeriesJob) Name() string {
	return "main_series"
}

// Schedule returns the cron schedule (with seconds, exchange-local)
func (j *MainSeriesJob) Schedule() string {
	return j.schedule
}

// Window returns the exchange-local day range the next run covers.
func (j *MainSeriesJob) Window() (from, to time.Time) {
	local := j.now().In(j.loc)
	to = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	from = to.AddDate(0, 0, -j.lookback)
	return from, to
}

// Run executes the collection. Fetch failures are returned as an error so
// the scheduler retries; a rerun only re-stores bars idempotently.
func (j *MainSeriesJob) Run(ctx context.Context) error {
	from, to := j.Window()
	j.logger.WithFields(map[string]interface{}{
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
	}).Info("Starting scheduled collection")

	report, err := j.runner.Run(ctx, from, to, collector.Options{Workers: j.workers})
	if err != nil {
		return fmt.Errorf("collect %s..%s: %w", from.Format("2006-01-02"), to.Format("2006-01-02"), err)
	}

	if n := report.FetchFailures(); n > 0 {
		return fmt.Errorf("collect %s..%s: %d bulletin fetches failed", from.Format("2006-01-02"), to.Format("2006-01-02"), n)
	}

	j.logger.WithFields(map[string]interface{}{
		"trading_days": len(report.TradingDays),
		"stored":       report.Stored(),
		"switches":     report.Selection.Switched,
	}).Info("Scheduled collection completed")

	return nil
}
