package calendar

import (
	"context"
	"time"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/pkg/logger"
	"github.com/wonny/futures/backend/pkg/redis"
)

// Prober answers the trading-day question from an exchange endpoint
type Prober interface {
	IsTradingDay(ctx context.Context, day time.Time) (bool, error)
}

// Cache stores settled answers; *redis.Cache satisfies it
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Calendar implements contracts.TradingCalendar.
// Weekends are closed without probing. Answers for days before the
// exchange-local today are cached; same-day probes can redirect before
// the bulletin is published, so today is always asked again.
// ⭐ SSOT: 거래일 판정은 여기서만
type Calendar struct {
	prober Prober
	cache  Cache
	loc    *time.Location
	logger *logger.Logger
	now    func() time.Time
}

// New creates a calendar. cache may be nil.
func New(prober Prober, cache Cache, loc *time.Location, log *logger.Logger) *Calendar {
	return &Calendar{
		prober: prober,
		cache:  cache,
		loc:    loc,
		logger: log,
		now:    time.Now,
	}
}

// IsTradingDay reports whether the exchanges held a session on day
func (c *Calendar) IsTradingDay(ctx context.Context, day time.Time) (bool, error) {
	day = contracts.Day(day)
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false, nil
	}

	settled := day.Before(contracts.Day(c.now().In(c.loc)))
	key := redis.TradingDayKey(day)

	if settled && c.cache != nil {
		var open bool
		found, err := c.cache.Get(ctx, key, &open)
		if err != nil {
			c.logger.WithDay(day).WithError(err).Warn("Calendar cache read failed")
		} else if found {
			return open, nil
		}
	}

	open, err := c.prober.IsTradingDay(ctx, day)
	if err != nil {
		return false, err
	}

	if settled && c.cache != nil {
		if err := c.cache.Set(ctx, key, open, redis.TTLCalendar); err != nil {
			c.logger.WithDay(day).WithError(err).Warn("Calendar cache write failed")
		}
	}
	return open, nil
}

var _ contracts.TradingCalendar = (*Calendar)(nil)
