// Package storetest holds behaviour tests shared by every DailyBarStore and
// MainSeriesStore implementation. Fixtures live in August 1990 on products
// no exchange lists, so database-backed runs can clean up by key.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/futures/backend/internal/contracts"
)

// Fixture bounds and products, exported for cleanup queries
var (
	FirstDay = Date(1)
	LastDay  = Date(31)
	Products = []string{"xq", "xqs", "xm", "xy"}
)

// Date returns day d of the fixture month
func Date(d int) time.Time {
	return time.Date(1990, 8, d, 0, 0, 0, 0, time.UTC)
}

// Bar builds a DCE bar priced at 100
func Bar(code string, day time.Time, exp int, volume, oi int64) contracts.DailyBar {
	c := decimal.NewFromInt(100)
	return contracts.DailyBar{
		Exchange: contracts.DCE, Code: code, Day: day, ExpiryCode: exp,
		Open: c, High: c, Low: c, Close: c, Settlement: c,
		Volume: volume, OpenInterest: oi,
	}
}

func seedBars(t *testing.T, s contracts.DailyBarStore) {
	t.Helper()
	require.NoError(t, s.UpsertBars(context.Background(), []contracts.DailyBar{
		Bar("xq1609", Date(1), 1609, 50000, 40000),
		Bar("xq1701", Date(1), 1701, 50000, 40000),
		Bar("xq1611", Date(1), 1611, 50000, 45000),
		Bar("xqs1609", Date(1), 1609, 90000, 90000),
		Bar("xq1609", Date(2), 1609, 10000, 40000),
		Bar("xq1701", Date(2), 1701, 60000, 40000),
		Bar("xq1609", Date(3), 1609, 5000, 5000),
	}))
}

func codes(bars []contracts.DailyBar) []string {
	out := make([]string, len(bars))
	for i, b := range bars {
		out[i] = b.Code
	}
	return out
}

// DailyBarStore runs the shared daily-bar scenarios; newStore must return an
// empty store for each subtest.
func DailyBarStore(t *testing.T, newStore func(t *testing.T) contracts.DailyBarStore) {
	ctx := context.Background()

	t.Run("QueryBarsLiquidityOrder", func(t *testing.T) {
		s := newStore(t)
		seedBars(t, s)

		got, err := s.QueryBars(ctx, contracts.BarQuery{
			Exchange: contracts.DCE, Product: "xq", From: Date(1), To: Date(1),
		})
		require.NoError(t, err)
		// "xqs" is a different product; equal volume breaks on OI then code
		assert.Equal(t, []string{"xq1611", "xq1609", "xq1701"}, codes(got))
	})

	t.Run("QueryBarsFilters", func(t *testing.T) {
		s := newStore(t)
		seedBars(t, s)

		got, err := s.QueryBars(ctx, contracts.BarQuery{
			Exchange: contracts.DCE, Product: "xq", From: Date(1), To: Date(3),
			MinExpiry: 1610, MinVolume: 10000, MinOpenInterest: 10000, Limit: 1,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "xq1701", got[0].Code)
		assert.True(t, Date(2).Equal(got[0].Day))
	})

	t.Run("QueryBarsOrderByDay", func(t *testing.T) {
		s := newStore(t)
		seedBars(t, s)

		got, err := s.QueryBars(ctx, contracts.BarQuery{
			Exchange: contracts.DCE, Product: "xq", From: Date(2), OrderBy: contracts.OrderByDay,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"xq1609", "xq1701", "xq1609"}, codes(got))
		assert.True(t, Date(3).Equal(got[2].Day))
	})

	t.Run("DailyLeaders", func(t *testing.T) {
		s := newStore(t)
		seedBars(t, s)

		got, err := s.DailyLeaders(ctx, contracts.DCE, "xq", Date(3), 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, Date(3).Equal(got[0].Day))
		assert.Equal(t, []string{"xq1609", "xq1701", "xq1611"}, codes(got))

		got, err = s.DailyLeaders(ctx, contracts.DCE, "xq", Date(2), 3)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.DailyLeaders(ctx, contracts.DCE, "xq", Date(3), 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"xq1609"}, codes(got), "limit counts days, not bars")
	})

	t.Run("TradingDaysAndProducts", func(t *testing.T) {
		s := newStore(t)
		seedBars(t, s)

		days, err := s.TradingDays(ctx, Date(2), Date(10))
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.True(t, Date(2).Equal(days[0]))
		assert.True(t, Date(3).Equal(days[1]))

		products, err := s.Products(ctx, contracts.DCE, Date(1))
		require.NoError(t, err)
		assert.Equal(t, []string{"xq", "xqs"}, products)
	})

	t.Run("UpsertOverwrites", func(t *testing.T) {
		s := newStore(t)
		seedBars(t, s)

		b := Bar("xq1609", Date(1), 1609, 70000, 41000)
		b.Close = decimal.RequireFromString("101.5")
		require.NoError(t, s.UpsertBars(ctx, []contracts.DailyBar{b}))
		require.NoError(t, s.UpsertBars(ctx, []contracts.DailyBar{b}))

		got, err := s.QueryBars(ctx, contracts.BarQuery{Exchange: contracts.DCE, Product: "xq", From: Date(1), To: Date(1)})
		require.NoError(t, err)
		assert.Len(t, got, 3)

		stored, err := s.GetBar(ctx, contracts.DCE, "xq1609", Date(1))
		require.NoError(t, err)
		assert.Equal(t, int64(70000), stored.Volume)
		assert.Equal(t, int64(41000), stored.OpenInterest)
		assert.Equal(t, 1609, stored.ExpiryCode)
		assert.True(t, stored.Close.Equal(b.Close))
		assert.True(t, Date(1).Equal(stored.Day))

		_, err = s.GetBar(ctx, contracts.DCE, "xq1609", Date(9))
		assert.ErrorIs(t, err, contracts.ErrNotFound)
	})
}

func mainRow(code string, day time.Time, price int64) contracts.MainBar {
	b := Bar(code, day, 0, 1, 1)
	p := decimal.NewFromInt(price)
	b.Open, b.High, b.Low, b.Close, b.Settlement = p, p, p, p, p
	return contracts.MainBarFrom(&b)
}

// MainSeriesStore runs the shared continuous-series scenarios; newStore must
// return a store holding no fixture products.
func MainSeriesStore(t *testing.T, newStore func(t *testing.T) contracts.MainSeriesStore) {
	ctx := context.Background()

	t.Run("ShiftRange", func(t *testing.T) {
		s := newStore(t)
		for d := 1; d <= 3; d++ {
			require.NoError(t, s.UpsertMainBar(ctx, mainRow("xq1609", Date(d), 100)))
		}

		require.NoError(t, s.ShiftRange(ctx, mainRow("xq1701", Date(2), 90), decimal.NewFromInt(-5)))

		rows, err := s.MainBars(ctx, contracts.DCE, "xq", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.True(t, rows[0].High.Equal(decimal.NewFromInt(95)))
		assert.True(t, rows[0].Basis.IsZero())
		assert.Equal(t, "xq1701", rows[1].CurCode, "switch row replaces the stored one")
		assert.True(t, rows[1].Low.Equal(decimal.NewFromInt(85)))
		assert.True(t, rows[1].Basis.Equal(decimal.NewFromInt(-5)))
		assert.True(t, rows[2].Close.Equal(decimal.NewFromInt(100)))
		assert.True(t, rows[2].Basis.IsZero())
	})

	t.Run("ShiftRangeWritesMissingRow", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertMainBar(ctx, mainRow("xm1609", Date(1), 100)))

		require.NoError(t, s.ShiftRange(ctx, mainRow("xm1611", Date(2), 104), decimal.NewFromInt(3)))

		rows, err := s.MainBars(ctx, contracts.DCE, "xm", Date(1), Date(2))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.True(t, rows[0].Close.Equal(decimal.NewFromInt(103)))
		assert.Equal(t, "xm1611", rows[1].CurCode)
		assert.True(t, rows[1].Settlement.Equal(decimal.NewFromInt(107)))
		assert.True(t, rows[1].Basis.Equal(decimal.NewFromInt(3)))
	})

	t.Run("MainBarsBounds", func(t *testing.T) {
		s := newStore(t)

		latest, err := s.LatestMainDay(ctx, contracts.DCE, "xy")
		require.NoError(t, err)
		assert.True(t, latest.IsZero(), "empty series has no latest day")

		for d := 1; d <= 4; d++ {
			require.NoError(t, s.UpsertMainBar(ctx, mainRow("xy1609", Date(d), 100)))
		}

		rows, err := s.MainBars(ctx, contracts.DCE, "xy", Date(2), Date(3))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.True(t, Date(2).Equal(rows[0].Day))

		rows, err = s.MainBars(ctx, contracts.DCE, "xy", Date(3), time.Time{})
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		latest, err = s.LatestMainDay(ctx, contracts.DCE, "xy")
		require.NoError(t, err)
		assert.True(t, Date(4).Equal(latest))
	})

	t.Run("InstrumentsLifecycle", func(t *testing.T) {
		s := newStore(t)

		n, err := s.EnsureInstruments(ctx, contracts.DCE, []string{"xq", "xm"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.EnsureInstruments(ctx, contracts.DCE, []string{"xq", "xy"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = s.EnsureInstruments(ctx, contracts.DCE, nil)
		require.NoError(t, err)
		assert.Zero(t, n)

		inst, err := s.GetInstrument(ctx, contracts.DCE, "xq")
		require.NoError(t, err)
		assert.False(t, inst.Seeded())
		assert.False(t, inst.NightTrade)

		inst.MainCode = "xq1609"
		inst.LastMain = "xq1605"
		inst.ChangeTime = Date(1)
		inst.NightTrade = true
		require.NoError(t, s.SaveInstrument(ctx, inst))
		require.NoError(t, s.UpsertMainBar(ctx, mainRow("xq1609", Date(1), 100)))

		inst, err = s.GetInstrument(ctx, contracts.DCE, "xq")
		require.NoError(t, err)
		assert.Equal(t, "xq1609", inst.MainCode)
		assert.Equal(t, "xq1605", inst.LastMain)
		assert.True(t, Date(1).Equal(inst.ChangeTime))
		assert.True(t, inst.NightTrade)

		latest, err := s.LatestMainDay(ctx, contracts.DCE, "xq")
		require.NoError(t, err)
		assert.True(t, Date(1).Equal(latest))

		require.NoError(t, s.ResetInstrument(ctx, contracts.DCE, "xq"))
		inst, err = s.GetInstrument(ctx, contracts.DCE, "xq")
		require.NoError(t, err)
		assert.False(t, inst.Seeded())
		assert.Empty(t, inst.LastMain)
		assert.True(t, inst.ChangeTime.IsZero())
		assert.True(t, inst.NightTrade, "reset keeps the session flag")

		latest, err = s.LatestMainDay(ctx, contracts.DCE, "xq")
		require.NoError(t, err)
		assert.True(t, latest.IsZero())

		all, err := s.ListInstruments(ctx)
		require.NoError(t, err)
		var mine []string
		for _, i := range all {
			if i.Exchange == contracts.DCE && (i.ProductCode == "xq" || i.ProductCode == "xm" || i.ProductCode == "xy") {
				mine = append(mine, i.ProductCode)
			}
		}
		assert.Equal(t, []string{"xm", "xq", "xy"}, mine)

		_, err = s.GetInstrument(ctx, contracts.DCE, "xz")
		assert.ErrorIs(t, err, contracts.ErrNotFound)
	})
}
