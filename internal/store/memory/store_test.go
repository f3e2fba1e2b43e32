package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/store/storetest"
)

func TestDailyBarStore(t *testing.T) {
	storetest.DailyBarStore(t, func(t *testing.T) contracts.DailyBarStore { return New() })
}

func TestMainSeriesStore(t *testing.T) {
	storetest.MainSeriesStore(t, func(t *testing.T) contracts.MainSeriesStore { return New() })
}

func TestConcurrentUpsertsSameKey(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := storetest.Date(1)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			assert.NoError(t, s.UpsertBars(ctx, []contracts.DailyBar{storetest.Bar("xq1609", day, 1609, v, v)}))
		}(int64(i))
	}
	wg.Wait()

	got, err := s.GetBar(ctx, contracts.DCE, "xq1609", day)
	require.NoError(t, err)
	assert.Equal(t, got.Volume, got.OpenInterest, "fields come from one writer")
}

func TestResetKeepsOtherProducts(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.EnsureInstruments(ctx, contracts.DCE, []string{"xq", "xm"})
	require.NoError(t, err)
	for _, code := range []string{"xq1609", "xm1609"} {
		b := storetest.Bar(code, storetest.Date(1), 1609, 1, 1)
		require.NoError(t, s.UpsertMainBar(ctx, contracts.MainBarFrom(&b)))
	}

	require.NoError(t, s.ResetInstrument(ctx, contracts.DCE, "xq"))

	latest, err := s.LatestMainDay(ctx, contracts.DCE, "xm")
	require.NoError(t, err)
	assert.True(t, storetest.Date(1).Equal(latest))
}
