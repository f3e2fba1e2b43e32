package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/futures/backend/internal/bars"
	"github.com/wonny/futures/backend/internal/calendar"
	"github.com/wonny/futures/backend/internal/collector"
	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/external/cffex"
	"github.com/wonny/futures/backend/internal/external/czce"
	"github.com/wonny/futures/backend/internal/external/dce"
	"github.com/wonny/futures/backend/internal/external/gate"
	"github.com/wonny/futures/backend/internal/external/shfe"
	"github.com/wonny/futures/backend/internal/mainseries"
	"github.com/wonny/futures/backend/internal/store/memory"
	"github.com/wonny/futures/backend/pkg/config"
	"github.com/wonny/futures/backend/pkg/database"
	"github.com/wonny/futures/backend/pkg/httputil"
	"github.com/wonny/futures/backend/pkg/logger"
	"github.com/wonny/futures/backend/pkg/redis"
)

const dayLayout = "2006-01-02"

// app holds the wired dependencies of one command invocation
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	bars      contracts.DailyBarStore
	series    contracts.MainSeriesStore
	calendar  *calendar.Calendar
	collector *collector.Collector
}

type appOptions struct {
	dryRun    bool                 // in-memory stores, no database
	exchanges []contracts.Exchange // empty means all
}

// loadConfig loads config and builds the logger
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// newApp wires config, stores, sources, calendar and collector
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	if opts.dryRun {
		store := memory.New()
		a.bars, a.series = store, store
		log.Warn("Dry run: bars and series are kept in memory only")
	} else {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.bars = bars.NewRepository(db.Pool)
		a.series = mainseries.NewRepository(db.Pool)
		log.Info("Connected to database")
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		// the calendar cache is optional
		log.WithError(err).Warn("Redis unavailable, probing without cache")
		rc = redis.Disabled()
	}
	a.redis = rc

	sources, prober := newSources(cfg, log)
	if len(opts.exchanges) > 0 {
		sources = filterSources(sources, opts.exchanges)
	}
	a.calendar = calendar.New(prober, redis.NewCache(rc, "futures"), cfg.Location(), log.WithField("module", "calendar"))
	nightTrade, err := contracts.ParseProductList(cfg.Collector.NightTrade)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("NIGHT_TRADE_PRODUCTS: %w", err)
	}
	a.collector = collector.NewCollector(sources, a.calendar, a.bars, a.series, log).WithNightTrade(nightTrade)

	return a, nil
}

// newSources builds one client per exchange, each with its own gate.
// The CFFEX client doubles as the trading-day prober.
func newSources(cfg *config.Config, log *logger.Logger) ([]contracts.Source, *cffex.Client) {
	client := func(ec config.ExchangeConfig) *httputil.Client {
		return httputil.NewWithTimeout(log, ec.Timeout)
	}

	shfeClient := shfe.NewClient(client(cfg.SHFE), gate.FromConfig("SHFE", cfg.SHFE), log, cfg.SHFE.BaseURL)
	dceClient := dce.NewClient(client(cfg.DCE), gate.FromConfig("DCE", cfg.DCE), log, cfg.DCE.BaseURL)
	czceClient := czce.NewClient(client(cfg.CZCE), gate.FromConfig("CZCE", cfg.CZCE), log, cfg.CZCE.BaseURL)
	cffexClient := cffex.NewClient(client(cfg.CFFEX), gate.FromConfig("CFFEX", cfg.CFFEX), log, cfg.CFFEX.BaseURL)

	return []contracts.Source{shfeClient, dceClient, czceClient, cffexClient}, cffexClient
}

func filterSources(sources []contracts.Source, keep []contracts.Exchange) []contracts.Source {
	var out []contracts.Source
	for _, src := range sources {
		for _, ex := range keep {
			if src.Exchange() == ex {
				out = append(out, src)
				break
			}
		}
	}
	return out
}

// Close releases database and redis connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// today returns the exchange-local calendar day
func (a *app) today() time.Time {
	return contracts.Day(time.Now().In(a.cfg.Location()))
}

// parseRange reads --from/--to; an empty --to means today and an empty
// --from means --to.
func (a *app) parseRange(from, to string) (time.Time, time.Time, error) {
	end := a.today()
	if to != "" {
		t, err := time.Parse(dayLayout, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q (expected YYYY-MM-DD)", to)
		}
		end = t
	}

	start := end
	if from != "" {
		t, err := time.Parse(dayLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q (expected YYYY-MM-DD)", from)
		}
		start = t
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", end.Format(dayLayout), start.Format(dayLayout))
	}
	return start, end, nil
}

// parseExchanges accepts a comma-separated list; empty means all
func parseExchanges(s string) ([]contracts.Exchange, error) {
	if strings.TrimSpace(s) == "" {
		return contracts.Exchanges, nil
	}
	var out []contracts.Exchange
	for _, part := range strings.Split(s, ",") {
		ex, err := contracts.ParseExchange(part)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}
