package mainseries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/store/memory"
	"github.com/wonny/futures/backend/pkg/logger"
)

func TestRolloverBasis(t *testing.T) {
	store := memory.New()
	r := NewRollover(store, store, logger.NewNop())
	day := date(2016, 8, 2)

	oldBar := mkBar(contracts.SHFE, "cu1609", day, "36640", 30000, 30000)
	newBar := mkBar(contracts.SHFE, "cu1610", day, "36700", 60000, 45000)
	require.NoError(t, store.UpsertBars(context.Background(), []contracts.DailyBar{oldBar, newBar}))

	basis, err := r.Basis(context.Background(), "cu1609", &newBar)
	require.NoError(t, err)
	assert.True(t, basis.Equal(dec("60")))

	basis, err = r.Basis(context.Background(), "cu1608", &newBar)
	require.NoError(t, err)
	assert.True(t, basis.IsZero(), "old contract without a bar gives zero basis")

	basis, err = r.Basis(context.Background(), "", &newBar)
	require.NoError(t, err)
	assert.True(t, basis.IsZero())
}

func TestRolloverApplyLeavesLaterRows(t *testing.T) {
	store := memory.New()
	r := NewRollover(store, store, logger.NewNop())
	ctx := context.Background()
	d1, d2, d3 := date(2016, 8, 1), date(2016, 8, 2), date(2016, 8, 3)

	for _, b := range []contracts.DailyBar{
		mkBar(contracts.SHFE, "cu1609", d1, "100", 1, 1),
		mkBar(contracts.SHFE, "cu1610", d2, "110", 1, 1),
		mkBar(contracts.SHFE, "cu1610", d3, "111", 1, 1),
	} {
		require.NoError(t, store.UpsertMainBar(ctx, contracts.MainBarFrom(&b)))
	}

	oldBar := mkBar(contracts.SHFE, "cu1609", d2, "102", 1, 1)
	newBar := mkBar(contracts.SHFE, "cu1610", d2, "110", 1, 1)
	require.NoError(t, store.UpsertBars(ctx, []contracts.DailyBar{oldBar, newBar}))

	basis, err := r.Apply(ctx, "cu1609", &newBar)
	require.NoError(t, err)
	assert.True(t, basis.Equal(dec("8")))

	rows, err := store.MainBars(ctx, contracts.SHFE, "cu", d1, d3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.True(t, rows[0].Close.Equal(dec("108")))
	assert.True(t, rows[0].Open.Equal(dec("108")))
	assert.True(t, rows[0].Settlement.Equal(dec("108")))
	assert.True(t, rows[1].Close.Equal(dec("118")))
	assert.True(t, rows[1].Basis.Equal(dec("8")))
	assert.True(t, rows[2].Close.Equal(dec("111")), "rows after the switch day are untouched")
	assert.True(t, rows[2].Basis.IsZero())
}

func TestRolloverApplyWritesSwitchRow(t *testing.T) {
	store := memory.New()
	r := NewRollover(store, store, logger.NewNop())
	ctx := context.Background()
	d1, d2 := date(2016, 8, 1), date(2016, 8, 2)

	prev := mkBar(contracts.SHFE, "cu1609", d1, "100", 1, 1)
	require.NoError(t, store.UpsertMainBar(ctx, contracts.MainBarFrom(&prev)))

	oldBar := mkBar(contracts.SHFE, "cu1609", d2, "101", 1, 1)
	newBar := mkBar(contracts.SHFE, "cu1610", d2, "104", 1, 1)
	require.NoError(t, store.UpsertBars(ctx, []contracts.DailyBar{oldBar, newBar}))

	_, err := r.Apply(ctx, "cu1609", &newBar)
	require.NoError(t, err)

	rows, err := store.MainBars(ctx, contracts.SHFE, "cu", d1, d2)
	require.NoError(t, err)
	require.Len(t, rows, 2, "switch day row is written by the rollover")
	assert.True(t, rows[0].Close.Equal(dec("103")))
	assert.Equal(t, "cu1610", rows[1].CurCode)
	assert.True(t, rows[1].Close.Equal(dec("107")))
	assert.True(t, rows[1].Basis.Equal(dec("3")))
}
