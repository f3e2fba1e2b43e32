package mainseries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/expiry"
	"github.com/wonny/futures/backend/pkg/logger"
)

const (
	// MinVolume and MinOpenInterest are the liquidity floor for a main
	// contract candidate on commodity exchanges
	MinVolume       = 10000
	MinOpenInterest = 10000

	// ConsensusDays is how many trailing days must share a leader before
	// it is adopted without meeting the floor
	ConsensusDays = 3
)

// Decision is the outcome of one selector run
type Decision struct {
	Exchange contracts.Exchange `json:"exchange"`
	Product  string             `json:"product"`
	Day      time.Time          `json:"day"`
	MainCode string             `json:"main_code"`
	PrevCode string             `json:"prev_code,omitempty"`
	Seeded   bool               `json:"seeded"` // first main contract for the product
	Switched bool               `json:"switched"`
	Forced   bool               `json:"forced"` // switched away from a dead contract
	Basis    decimal.Decimal    `json:"basis"`
}

// Selector decides the main contract of each product, one day at a time
// ⭐ SSOT: 주력계약 선정 규칙은 여기서만
type Selector struct {
	bars     contracts.DailyBarStore
	series   contracts.MainSeriesStore
	rollover *Rollover
	logger   *logger.Logger
}

// NewSelector creates a new main contract selector
func NewSelector(bars contracts.DailyBarStore, series contracts.MainSeriesStore, log *logger.Logger) *Selector {
	return &Selector{
		bars:     bars,
		series:   series,
		rollover: NewRollover(bars, series, log),
		logger:   log,
	}
}

// Run loads the product's state and selects for day
func (s *Selector) Run(ctx context.Context, exchange contracts.Exchange, product string, day time.Time) (Decision, error) {
	inst, err := s.series.GetInstrument(ctx, exchange, product)
	if errors.Is(err, contracts.ErrNotFound) {
		inst = &contracts.Instrument{Exchange: exchange, ProductCode: product}
	} else if err != nil {
		return Decision{}, fmt.Errorf("load instrument %s %s: %w", exchange, product, err)
	}
	return s.Select(ctx, inst, day)
}

// Select decides inst's main contract for day, persists the day's
// continuous row and the new state, and back-adjusts on a switch.
// It returns contracts.ErrNoCandidate when an unseeded product has no bars
// on day; a seeded product without a candidate keeps its main contract.
func (s *Selector) Select(ctx context.Context, inst *contracts.Instrument, day time.Time) (Decision, error) {
	day = contracts.Day(day)
	d := Decision{
		Exchange: inst.Exchange,
		Product:  inst.ProductCode,
		Day:      day,
		MainCode: inst.MainCode,
	}

	threshold := expiry.Month(day)
	if inst.Seeded() {
		code, err := expiry.Resolve(inst.MainCode, day)
		if err != nil {
			return d, fmt.Errorf("resolve main contract expiry: %w", err)
		}
		threshold = code
	}

	candidate, err := s.liquidCandidate(ctx, inst, day, threshold)
	if err != nil {
		return d, err
	}
	if candidate == nil {
		if candidate, err = s.consensusCandidate(ctx, inst, day); err != nil {
			return d, err
		}
	}

	if !inst.Seeded() {
		if candidate == nil {
			if candidate, err = s.topBar(ctx, inst, day, threshold); err != nil {
				return d, err
			}
		}
		if candidate == nil {
			return d, contracts.ErrNoCandidate
		}
		return s.seed(ctx, inst, candidate, d)
	}

	// forward switch only; codes sort in delivery order
	if candidate != nil && candidate.Code > inst.MainCode {
		return s.switchTo(ctx, inst, candidate, d, false)
	}

	current, err := s.bars.GetBar(ctx, inst.Exchange, inst.MainCode, day)
	if err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return d, fmt.Errorf("load main contract bar: %w", err)
	}
	if current != nil && current.Volume > 0 && current.OpenInterest > 0 {
		return d, s.storeRow(ctx, current)
	}

	// dead contract: take the day's top bar whatever its code
	top, err := s.topBar(ctx, inst, day, threshold)
	if err != nil {
		return d, err
	}
	if top != nil && (current == nil || top.Code != current.Code) {
		return s.switchTo(ctx, inst, top, d, true)
	}
	if current != nil {
		return d, s.storeRow(ctx, current)
	}
	return d, nil
}

// liquidCandidate is the day's most liquid bar at or after threshold,
// subject to the floor on commodity exchanges
func (s *Selector) liquidCandidate(ctx context.Context, inst *contracts.Instrument, day time.Time, threshold int) (*contracts.DailyBar, error) {
	q := contracts.BarQuery{
		Exchange:  inst.Exchange,
		Product:   inst.ProductCode,
		From:      day,
		To:        day,
		MinExpiry: threshold,
		Limit:     1,
	}
	if !inst.Exchange.IsIndexFutures() {
		q.MinVolume = MinVolume
		q.MinOpenInterest = MinOpenInterest
	}
	return s.first(ctx, q)
}

// consensusCandidate adopts a contract that led each of the trailing
// ConsensusDays days, returning its bar for day
func (s *Selector) consensusCandidate(ctx context.Context, inst *contracts.Instrument, day time.Time) (*contracts.DailyBar, error) {
	leaders, err := s.bars.DailyLeaders(ctx, inst.Exchange, inst.ProductCode, day, ConsensusDays)
	if err != nil {
		return nil, fmt.Errorf("load daily leaders: %w", err)
	}
	if len(leaders) < ConsensusDays {
		return nil, nil
	}
	for _, l := range leaders[1:] {
		if l.Code != leaders[0].Code {
			return nil, nil
		}
	}
	if !leaders[0].Day.Equal(day) {
		return nil, nil
	}
	bar := leaders[0]
	return &bar, nil
}

// topBar is the day's most liquid bar at or after threshold, with no floor
func (s *Selector) topBar(ctx context.Context, inst *contracts.Instrument, day time.Time, threshold int) (*contracts.DailyBar, error) {
	return s.first(ctx, contracts.BarQuery{
		Exchange:  inst.Exchange,
		Product:   inst.ProductCode,
		From:      day,
		To:        day,
		MinExpiry: threshold,
		Limit:     1,
	})
}

func (s *Selector) first(ctx context.Context, q contracts.BarQuery) (*contracts.DailyBar, error) {
	bars, err := s.bars.QueryBars(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return &bars[0], nil
}

func (s *Selector) storeRow(ctx context.Context, bar *contracts.DailyBar) error {
	if err := s.series.UpsertMainBar(ctx, contracts.MainBarFrom(bar)); err != nil {
		return fmt.Errorf("store main bar: %w", err)
	}
	return nil
}

func (s *Selector) seed(ctx context.Context, inst *contracts.Instrument, bar *contracts.DailyBar, d Decision) (Decision, error) {
	inst.MainCode = bar.Code
	inst.ChangeTime = d.Day

	if err := s.storeRow(ctx, bar); err != nil {
		return d, err
	}
	if err := s.series.SaveInstrument(ctx, inst); err != nil {
		return d, fmt.Errorf("save instrument: %w", err)
	}

	d.MainCode = bar.Code
	d.Seeded = true
	s.logger.WithExchange(string(inst.Exchange)).WithDay(d.Day).WithFields(map[string]interface{}{
		"product": inst.ProductCode,
		"main":    bar.Code,
	}).Info("Seeded main contract")
	return d, nil
}

// switchTo moves inst onto bar. The rollover writes the switch day's row in
// the same step as the shift, so that row carries the basis too.
func (s *Selector) switchTo(ctx context.Context, inst *contracts.Instrument, bar *contracts.DailyBar, d Decision, forced bool) (Decision, error) {
	old := inst.MainCode

	basis, err := s.rollover.Apply(ctx, old, bar)
	if err != nil {
		return d, err
	}

	inst.LastMain = old
	inst.MainCode = bar.Code
	inst.ChangeTime = d.Day
	if err := s.series.SaveInstrument(ctx, inst); err != nil {
		return d, fmt.Errorf("save instrument: %w", err)
	}

	d.PrevCode = old
	d.MainCode = bar.Code
	d.Switched = true
	d.Forced = forced
	d.Basis = basis
	return d, nil
}
