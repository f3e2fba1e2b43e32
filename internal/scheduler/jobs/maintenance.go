package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/futures/backend/pkg/database"
	"github.com/wonny/futures/backend/pkg/logger"
)

// HealthChecker is satisfied by *database.DB
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// Pinger is satisfied by *redis.Client
type Pinger interface {
	Ping(ctx context.Context) error
}

// DBHealthJob pings the database so a broken connection shows up in the
// job history before the nightly collection runs. The calendar cache is
// checked too, but only warns: collection works without it.
type DBHealthJob struct {
	db     HealthChecker
	cache  Pinger
	logger *logger.Logger
}

// NewDBHealthJob creates a new database health job
func NewDBHealthJob(db HealthChecker, log *logger.Logger) *DBHealthJob {
	return &DBHealthJob{
		db:     db,
		logger: log,
	}
}

// WithCache adds the calendar cache to the check
func (j *DBHealthJob) WithCache(cache Pinger) *DBHealthJob {
	j.cache = cache
	return j
}

// Name returns the job name
func (j *DBHealthJob) Name() string {
	return "db_health"
}

// Schedule returns the cron schedule (every 15 minutes)
func (j *DBHealthJob) Schedule() string {
	return "0 */15 * * * *"
}

// Run executes the health check
func (j *DBHealthJob) Run(ctx context.Context) error {
	status, err := j.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"response_time": status.ResponseTime,
		"total_conns":   status.TotalConns,
		"idle_conns":    status.IdleConns,
	}).Debug("Database healthy")

	if j.cache != nil {
		if err := j.cache.Ping(ctx); err != nil {
			j.logger.WithError(err).Warn("Calendar cache unreachable")
		}
	}
	return nil
}
