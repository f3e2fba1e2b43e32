// Package memory keeps daily bars and the continuous series in process.
// It backs dry runs and tests and follows the PostgreSQL repositories'
// ordering and filtering rules exactly.
package memory

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/futures/backend/internal/contracts"
)

type barKey struct {
	exchange contracts.Exchange
	code     string
	day      time.Time
}

type productKey struct {
	exchange contracts.Exchange
	product  string
}

// Store implements contracts.DailyBarStore and contracts.MainSeriesStore
type Store struct {
	mu          sync.RWMutex
	bars        map[barKey]contracts.DailyBar
	mainBars    map[productKey]map[time.Time]contracts.MainBar
	instruments map[productKey]contracts.Instrument
}

// New creates an empty store
func New() *Store {
	return &Store{
		bars:        make(map[barKey]contracts.DailyBar),
		mainBars:    make(map[productKey]map[time.Time]contracts.MainBar),
		instruments: make(map[productKey]contracts.Instrument),
	}
}

func productPattern(product string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(product) + "[0-9]+$")
}

func byLiquidity(bars []contracts.DailyBar) {
	sort.Slice(bars, func(i, j int) bool {
		a, b := bars[i], bars[j]
		if a.Volume != b.Volume {
			return a.Volume > b.Volume
		}
		if a.OpenInterest != b.OpenInterest {
			return a.OpenInterest > b.OpenInterest
		}
		return a.Code < b.Code
	})
}

// UpsertBars replaces whole rows under the write lock
func (s *Store) UpsertBars(ctx context.Context, bars []contracts.DailyBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		b.Day = contracts.Day(b.Day)
		s.bars[barKey{b.Exchange, b.Code, b.Day}] = b
	}
	return nil
}

// GetBar returns one contract's bar or contracts.ErrNotFound
func (s *Store) GetBar(ctx context.Context, exchange contracts.Exchange, code string, day time.Time) (*contracts.DailyBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bars[barKey{exchange, code, contracts.Day(day)}]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return &b, nil
}

// QueryBars filters and orders like the SQL repository
func (s *Store) QueryBars(ctx context.Context, q contracts.BarQuery) ([]contracts.DailyBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var re *regexp.Regexp
	if q.Product != "" {
		re = productPattern(q.Product)
	}

	var out []contracts.DailyBar
	for _, b := range s.bars {
		switch {
		case q.Exchange != "" && b.Exchange != q.Exchange:
		case re != nil && !re.MatchString(b.Code):
		case !q.From.IsZero() && b.Day.Before(contracts.Day(q.From)):
		case !q.To.IsZero() && b.Day.After(contracts.Day(q.To)):
		case q.MinExpiry > 0 && b.ExpiryCode < q.MinExpiry:
		case q.MinVolume > 0 && b.Volume < q.MinVolume:
		case q.MinOpenInterest > 0 && b.OpenInterest < q.MinOpenInterest:
		default:
			out = append(out, b)
		}
	}

	if q.OrderBy == contracts.OrderByDay {
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Day.Equal(out[j].Day) {
				return out[i].Day.Before(out[j].Day)
			}
			return out[i].Code < out[j].Code
		})
	} else {
		byLiquidity(out)
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// DailyLeaders returns each day's top bar for the latest n days <= upTo
func (s *Store) DailyLeaders(ctx context.Context, exchange contracts.Exchange, product string, upTo time.Time, n int) ([]contracts.DailyBar, error) {
	all, err := s.QueryBars(ctx, contracts.BarQuery{Exchange: exchange, Product: product, To: upTo})
	if err != nil {
		return nil, err
	}

	// all is in liquidity order, so the first bar seen per day wins
	leaders := make(map[time.Time]contracts.DailyBar)
	for _, b := range all {
		if _, ok := leaders[b.Day]; !ok {
			leaders[b.Day] = b
		}
	}

	out := make([]contracts.DailyBar, 0, len(leaders))
	for _, b := range leaders {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// TradingDays lists distinct stored days in [from, to], ascending
func (s *Store) TradingDays(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = contracts.Day(from), contracts.Day(to)
	seen := make(map[time.Time]bool)
	var days []time.Time
	for k := range s.bars {
		if k.day.Before(from) || k.day.After(to) || seen[k.day] {
			continue
		}
		seen[k.day] = true
		days = append(days, k.day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// Products lists product codes with at least one bar on day
func (s *Store) Products(ctx context.Context, exchange contracts.Exchange, day time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day = contracts.Day(day)
	seen := make(map[string]bool)
	var products []string
	for k := range s.bars {
		if k.exchange != exchange || !k.day.Equal(day) {
			continue
		}
		p := contracts.ProductOf(k.code)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		products = append(products, p)
	}
	sort.Strings(products)
	return products, nil
}

// UpsertMainBar writes one continuous-series row
func (s *Store) UpsertMainBar(ctx context.Context, bar contracts.MainBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putMainBar(bar)
	return nil
}

// ShiftRange writes row and applies delta to every row <= row.Day under one write lock
func (s *Store) ShiftRange(ctx context.Context, row contracts.MainBar, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	upTo := s.putMainBar(row)
	rows := s.mainBars[productKey{row.Exchange, row.ProductCode}]
	for day, r := range rows {
		if day.After(upTo) {
			continue
		}
		if day.Equal(upTo) {
			r.Basis = delta
		}
		r.Open = r.Open.Add(delta)
		r.High = r.High.Add(delta)
		r.Low = r.Low.Add(delta)
		r.Close = r.Close.Add(delta)
		r.Settlement = r.Settlement.Add(delta)
		rows[day] = r
	}
	return nil
}

// putMainBar stores bar under its normalized day; the caller holds mu
func (s *Store) putMainBar(bar contracts.MainBar) time.Time {
	key := productKey{bar.Exchange, bar.ProductCode}
	rows, ok := s.mainBars[key]
	if !ok {
		rows = make(map[time.Time]contracts.MainBar)
		s.mainBars[key] = rows
	}

	bar.Day = contracts.Day(bar.Day)
	rows[bar.Day] = bar
	return bar.Day
}

// MainBars returns rows in [from, to] ascending; zero bounds are open
func (s *Store) MainBars(ctx context.Context, exchange contracts.Exchange, product string, from, to time.Time) ([]contracts.MainBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.MainBar
	for day, row := range s.mainBars[productKey{exchange, product}] {
		if !from.IsZero() && day.Before(contracts.Day(from)) {
			continue
		}
		if !to.IsZero() && day.After(contracts.Day(to)) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// LatestMainDay returns the newest row's day, or the zero time
func (s *Store) LatestMainDay(ctx context.Context, exchange contracts.Exchange, product string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for day := range s.mainBars[productKey{exchange, product}] {
		if day.After(latest) {
			latest = day
		}
	}
	return latest, nil
}

// GetInstrument returns a copy of the stored state or contracts.ErrNotFound
func (s *Store) GetInstrument(ctx context.Context, exchange contracts.Exchange, product string) (*contracts.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instruments[productKey{exchange, product}]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return &inst, nil
}

// SaveInstrument stores inst
func (s *Store) SaveInstrument(ctx context.Context, inst *contracts.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instruments[productKey{inst.Exchange, inst.ProductCode}] = *inst
	return nil
}

// ListInstruments returns every instrument ordered by exchange and product
func (s *Store) ListInstruments(ctx context.Context) ([]contracts.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.Instrument, 0, len(s.instruments))
	for _, inst := range s.instruments {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Exchange != out[j].Exchange {
			return out[i].Exchange < out[j].Exchange
		}
		return out[i].ProductCode < out[j].ProductCode
	})
	return out, nil
}

// EnsureInstruments creates unseeded instruments for unknown products
func (s *Store) EnsureInstruments(ctx context.Context, exchange contracts.Exchange, products []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	for _, p := range products {
		key := productKey{exchange, p}
		if _, ok := s.instruments[key]; ok {
			continue
		}
		s.instruments[key] = contracts.Instrument{Exchange: exchange, ProductCode: p}
		created++
	}
	return created, nil
}

// ResetInstrument clears main-contract state and the continuous series
func (s *Store) ResetInstrument(ctx context.Context, exchange contracts.Exchange, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := productKey{exchange, product}
	delete(s.mainBars, key)
	if inst, ok := s.instruments[key]; ok {
		s.instruments[key] = contracts.Instrument{
			Exchange:    inst.Exchange,
			ProductCode: inst.ProductCode,
			NightTrade:  inst.NightTrade,
		}
	}
	return nil
}

var (
	_ contracts.DailyBarStore   = (*Store)(nil)
	_ contracts.MainSeriesStore = (*Store)(nil)
)
