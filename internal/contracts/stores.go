package contracts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ⭐ SSOT: 선물 데이터 저장소/소스 인터페이스 정의는 여기서만

// Source fetches one exchange's daily bulletin
type Source interface {
	Exchange() Exchange
	Fetch(ctx context.Context, day time.Time) ([]RawRecord, error)
}

// TradingCalendar answers whether exchanges traded on a day
type TradingCalendar interface {
	IsTradingDay(ctx context.Context, day time.Time) (bool, error)
}

// BarOrder selects the ordering of QueryBars results
type BarOrder int

const (
	// OrderByLiquidity sorts by volume desc, open interest desc, code asc
	OrderByLiquidity BarOrder = iota
	// OrderByDay sorts by day asc, code asc
	OrderByDay
)

// BarQuery filters daily bars. Zero values disable a filter.
type BarQuery struct {
	Exchange        Exchange
	Product         string // matches codes ^Product[0-9]+
	From            time.Time
	To              time.Time
	MinExpiry       int
	MinVolume       int64
	MinOpenInterest int64
	OrderBy         BarOrder
	Limit           int
}

// DailyBarStore persists normalized per-contract daily bars
type DailyBarStore interface {
	UpsertBars(ctx context.Context, bars []DailyBar) error
	GetBar(ctx context.Context, exchange Exchange, code string, day time.Time) (*DailyBar, error)
	QueryBars(ctx context.Context, q BarQuery) ([]DailyBar, error)
	// DailyLeaders returns, for the latest n trading days <= upTo that have
	// bars for the product, each day's most liquid bar (newest first).
	DailyLeaders(ctx context.Context, exchange Exchange, product string, upTo time.Time, n int) ([]DailyBar, error)
	TradingDays(ctx context.Context, from, to time.Time) ([]time.Time, error)
	Products(ctx context.Context, exchange Exchange, day time.Time) ([]string, error)
}

// MainSeriesStore persists continuous-series rows and instrument state
type MainSeriesStore interface {
	UpsertMainBar(ctx context.Context, bar MainBar) error
	// ShiftRange writes row, records delta as its basis and adds delta to
	// open/high/low/close/settlement of every row <= row.Day (row included),
	// all in one atomic step.
	ShiftRange(ctx context.Context, row MainBar, delta decimal.Decimal) error
	MainBars(ctx context.Context, exchange Exchange, product string, from, to time.Time) ([]MainBar, error)
	LatestMainDay(ctx context.Context, exchange Exchange, product string) (time.Time, error)

	GetInstrument(ctx context.Context, exchange Exchange, product string) (*Instrument, error)
	SaveInstrument(ctx context.Context, inst *Instrument) error
	ListInstruments(ctx context.Context) ([]Instrument, error)
	EnsureInstruments(ctx context.Context, exchange Exchange, products []string) (int, error)
	ResetInstrument(ctx context.Context, exchange Exchange, product string) error
}
