package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/futures/backend/internal/bars"
	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/mainseries"
	"github.com/wonny/futures/backend/pkg/logger"
)

// Collector runs the batch: probe days, fetch and store bulletins, then
// advance every product's main contract day by day.
// ⭐ SSOT: 수집 배치 오케스트레이션은 이 패키지에서만
type Collector struct {
	sources  []contracts.Source
	calendar contracts.TradingCalendar
	bars     contracts.DailyBarStore
	series   contracts.MainSeriesStore
	selector *mainseries.Selector
	logger   *logger.Logger

	// nightTrade, when set, is the source of truth for Instrument.NightTrade
	nightTrade map[contracts.Exchange]map[string]bool
}

// Options controls one run
type Options struct {
	Workers    int  // concurrent selector workers
	SkipSelect bool // fetch and store only
}

// NewCollector creates a new Collector instance
func NewCollector(
	sources []contracts.Source,
	calendar contracts.TradingCalendar,
	barStore contracts.DailyBarStore,
	series contracts.MainSeriesStore,
	log *logger.Logger,
) *Collector {
	log = log.WithField("module", "collector")
	return &Collector{
		sources:  sources,
		calendar: calendar,
		bars:     barStore,
		series:   series,
		selector: mainseries.NewSelector(barStore, series, log),
		logger:   log,
	}
}

// WithNightTrade sets the products that open with the night session
func (c *Collector) WithNightTrade(set map[contracts.Exchange]map[string]bool) *Collector {
	c.nightTrade = set
	return c
}

// Days lists every calendar day in [from, to]
func Days(from, to time.Time) []time.Time {
	var days []time.Time
	for d := contracts.Day(from); !d.After(contracts.Day(to)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

type probeResult struct {
	day  time.Time
	open bool
	err  error
}

type fetchResult struct {
	exchange   contracts.Exchange
	day        time.Time
	stored     int
	dropped    int
	misordered int
	err        error
}

// Run collects [from, to]. Failures of one day or exchange are recorded in
// the report and never stop the rest of the batch.
func (c *Collector) Run(ctx context.Context, from, to time.Time, opts Options) (*Report, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s after %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	report := newReport(from, to)
	days := Days(from, to)

	c.logger.WithFields(map[string]interface{}{
		"from":    report.From.Format("2006-01-02"),
		"to":      report.To.Format("2006-01-02"),
		"days":    len(days),
		"sources": len(c.sources),
	}).Info("Starting collection")

	tradingDays := c.probe(ctx, days, report)
	c.fetch(ctx, tradingDays, report)

	if !opts.SkipSelect {
		stats, err := c.SelectRange(ctx, tradingDays, opts.Workers, nil)
		report.Selection = stats
		if err != nil {
			return report, err
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"trading_days": len(report.TradingDays),
		"stored":       report.Stored(),
		"dropped":      report.Dropped(),
		"failed":       report.FetchFailures(),
		"switches":     report.Selection.Switched,
	}).Info("Collection completed")

	return report, ctx.Err()
}

// probe asks the calendar about every day concurrently
func (c *Collector) probe(ctx context.Context, days []time.Time, report *Report) []time.Time {
	resultCh := make(chan probeResult, len(days))

	var wg sync.WaitGroup
	for _, day := range days {
		wg.Add(1)
		go func(day time.Time) {
			defer wg.Done()
			open, err := c.calendar.IsTradingDay(ctx, day)
			resultCh <- probeResult{day: day, open: open, err: err}
		}(day)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var trading []time.Time
	for res := range resultCh {
		report.DaysProbed++
		if res.err != nil {
			report.ProbeFailures++
			c.logger.WithDay(res.day).WithError(res.err).Warn("Trading day probe failed, day skipped")
			continue
		}
		if res.open {
			trading = append(trading, res.day)
		}
	}

	sort.Slice(trading, func(i, j int) bool { return trading[i].Before(trading[j]) })
	report.TradingDays = trading
	return trading
}

// fetch runs every (day, source) pair concurrently; each source's gate
// bounds its own in-flight requests
func (c *Collector) fetch(ctx context.Context, days []time.Time, report *Report) {
	resultCh := make(chan fetchResult, len(days)*len(c.sources))

	var wg sync.WaitGroup
	for _, day := range days {
		for _, src := range c.sources {
			wg.Add(1)
			go func(src contracts.Source, day time.Time) {
				defer wg.Done()
				resultCh <- c.fetchOne(ctx, src, day)
			}(src, day)
		}
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		report.addFetch(res)
	}
}

func (c *Collector) fetchOne(ctx context.Context, src contracts.Source, day time.Time) fetchResult {
	res := fetchResult{exchange: src.Exchange(), day: day}
	log := c.logger.WithExchange(string(res.exchange)).WithDay(day)

	records, err := src.Fetch(ctx, day)
	if err != nil {
		log.WithError(err).Warn("Bulletin unavailable")
		res.err = err
		return res
	}

	normalized := bars.NormalizeAll(records, day)
	for _, dropErr := range normalized.Dropped {
		log.WithError(dropErr).Debug("Record dropped")
	}
	if len(normalized.Dropped) > 0 {
		log.WithField("dropped", len(normalized.Dropped)).Warn("Malformed records dropped")
	}
	if len(normalized.Misordered) > 0 {
		log.WithField("codes", normalized.Misordered).Warn("Contract codes do not sort by delivery month")
	}
	res.dropped = len(normalized.Dropped)
	res.misordered = len(normalized.Misordered)

	if err := c.bars.UpsertBars(ctx, normalized.Bars); err != nil {
		log.WithError(err).Error("Failed to store daily bars")
		res.err = fmt.Errorf("store bars: %w", err)
		return res
	}
	res.stored = len(normalized.Bars)

	log.WithField("count", res.stored).Debug("Stored daily bars")
	return res
}

// SelectDays advances main contracts over the stored trading days in [from, to]
func (c *Collector) SelectDays(ctx context.Context, from, to time.Time, workers int) (SelectStats, error) {
	days, err := c.bars.TradingDays(ctx, from, to)
	if err != nil {
		return SelectStats{}, fmt.Errorf("list trading days: %w", err)
	}
	return c.SelectRange(ctx, days, workers, nil)
}

// SelectRange runs the selector for every instrument on each day in
// ascending order. Days on or before an instrument's latest continuous row
// are skipped so repeated runs never shift the series twice. keep, when
// set, restricts which instruments are processed.
func (c *Collector) SelectRange(ctx context.Context, days []time.Time, workers int, keep func(contracts.Instrument) bool) (SelectStats, error) {
	var stats SelectStats
	if workers <= 0 {
		workers = 1
	}

	sorted := append([]time.Time(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for _, day := range sorted {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := c.registerProducts(ctx, day); err != nil {
			return stats, err
		}

		instruments, err := c.series.ListInstruments(ctx)
		if err != nil {
			return stats, fmt.Errorf("list instruments: %w", err)
		}
		if err := c.syncNightTrade(ctx, instruments); err != nil {
			return stats, err
		}
		if keep != nil {
			filtered := instruments[:0]
			for _, inst := range instruments {
				if keep(inst) {
					filtered = append(filtered, inst)
				}
			}
			instruments = filtered
		}

		stats.merge(c.selectDay(ctx, day, instruments, workers))
		stats.Days++
	}

	return stats, nil
}

// registerProducts creates instruments for products first seen on day
func (c *Collector) registerProducts(ctx context.Context, day time.Time) error {
	for _, ex := range contracts.Exchanges {
		products, err := c.bars.Products(ctx, ex, day)
		if err != nil {
			return fmt.Errorf("list %s products: %w", ex, err)
		}
		created, err := c.series.EnsureInstruments(ctx, ex, products)
		if err != nil {
			return fmt.Errorf("register %s products: %w", ex, err)
		}
		if created > 0 {
			c.logger.WithExchange(string(ex)).WithDay(day).WithField("count", created).Info("Registered new products")
		}
	}
	return nil
}

// syncNightTrade saves the configured session flag on instruments that
// disagree with it
func (c *Collector) syncNightTrade(ctx context.Context, instruments []contracts.Instrument) error {
	if c.nightTrade == nil {
		return nil
	}

	for i := range instruments {
		inst := &instruments[i]
		want := c.nightTrade[inst.Exchange][inst.ProductCode]
		if inst.NightTrade == want {
			continue
		}

		inst.NightTrade = want
		if err := c.series.SaveInstrument(ctx, inst); err != nil {
			return fmt.Errorf("save %s %s session flag: %w", inst.Exchange, inst.ProductCode, err)
		}
		c.logger.WithExchange(string(inst.Exchange)).WithFields(map[string]interface{}{
			"product":     inst.ProductCode,
			"night_trade": want,
		}).Info("Updated night session flag")
	}
	return nil
}

type selectResult struct {
	decision mainseries.Decision
	skipped  bool
	err      error
}

func (c *Collector) selectDay(ctx context.Context, day time.Time, instruments []contracts.Instrument, workers int) SelectStats {
	instCh := make(chan contracts.Instrument, len(instruments))
	resultCh := make(chan selectResult, len(instruments))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range instCh {
				resultCh <- c.selectOne(ctx, inst, day)
			}
		}()
	}

	for _, inst := range instruments {
		instCh <- inst
	}
	close(instCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var stats SelectStats
	for res := range resultCh {
		stats.add(res)
	}
	return stats
}

func (c *Collector) selectOne(ctx context.Context, inst contracts.Instrument, day time.Time) selectResult {
	if err := ctx.Err(); err != nil {
		return selectResult{err: err}
	}

	latest, err := c.series.LatestMainDay(ctx, inst.Exchange, inst.ProductCode)
	if err != nil {
		return selectResult{err: fmt.Errorf("latest main day: %w", err)}
	}
	if !latest.IsZero() && !day.After(latest) {
		return selectResult{skipped: true}
	}

	d, err := c.selector.Run(ctx, inst.Exchange, inst.ProductCode, day)
	if errors.Is(err, contracts.ErrNoCandidate) {
		return selectResult{decision: d, skipped: true}
	}
	if err != nil {
		c.logger.WithExchange(string(inst.Exchange)).WithDay(day).WithError(err).
			WithField("product", inst.ProductCode).Error("Main contract selection failed")
		return selectResult{decision: d, err: err}
	}
	return selectResult{decision: d}
}

// Rebuild clears the continuous series of matching instruments and
// replays every stored trading day. Empty exchange or product match all.
func (c *Collector) Rebuild(ctx context.Context, exchange contracts.Exchange, product string, workers int) (SelectStats, error) {
	keep := func(inst contracts.Instrument) bool {
		return (exchange == "" || inst.Exchange == exchange) && (product == "" || inst.ProductCode == product)
	}

	instruments, err := c.series.ListInstruments(ctx)
	if err != nil {
		return SelectStats{}, fmt.Errorf("list instruments: %w", err)
	}

	reset := 0
	for _, inst := range instruments {
		if !keep(inst) {
			continue
		}
		if err := c.series.ResetInstrument(ctx, inst.Exchange, inst.ProductCode); err != nil {
			return SelectStats{}, fmt.Errorf("reset %s %s: %w", inst.Exchange, inst.ProductCode, err)
		}
		reset++
	}

	days, err := c.bars.TradingDays(ctx, time.Time{}, time.Now().AddDate(0, 0, 1))
	if err != nil {
		return SelectStats{}, fmt.Errorf("list trading days: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"exchange":    string(exchange),
		"product":     product,
		"instruments": reset,
		"days":        len(days),
	}).Info("Rebuilding continuous series")

	return c.SelectRange(ctx, days, workers, keep)
}
