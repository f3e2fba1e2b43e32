package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/futures/backend/pkg/logger"
)

type fakeProber struct {
	mu     sync.Mutex
	closed map[time.Time]bool
	calls  int
	err    error
}

func (p *fakeProber) IsTradingDay(ctx context.Context, day time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return false, p.err
	}
	return !p.closed[day], nil
}

type mapCache struct {
	data map[string][]byte
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	c.data[key] = b
	return err
}

var cst = time.FixedZone("CST", 8*3600)

func newCalendar(p *fakeProber, c Cache, now time.Time) *Calendar {
	cal := New(p, c, cst, logger.NewNop())
	cal.now = func() time.Time { return now }
	return cal
}

func TestIsTradingDay(t *testing.T) {
	holiday := time.Date(2016, 10, 3, 0, 0, 0, 0, time.UTC)
	p := &fakeProber{closed: map[time.Time]bool{holiday: true}}
	cal := newCalendar(p, nil, time.Date(2016, 12, 1, 10, 0, 0, 0, cst))

	open, err := cal.IsTradingDay(context.Background(), time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = cal.IsTradingDay(context.Background(), holiday)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestWeekendSkipsProbe(t *testing.T) {
	p := &fakeProber{}
	cal := newCalendar(p, nil, time.Date(2016, 12, 1, 10, 0, 0, 0, cst))

	open, err := cal.IsTradingDay(context.Background(), time.Date(2016, 8, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open)
	assert.Equal(t, 0, p.calls)
}

func TestCachesSettledDaysOnly(t *testing.T) {
	p := &fakeProber{}
	cache := &mapCache{data: map[string][]byte{}}
	// 2016-08-25 01:00 in CST is still 08-24 in UTC
	now := time.Date(2016, 8, 25, 1, 0, 0, 0, cst)
	cal := newCalendar(p, cache, now)

	past := time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := cal.IsTradingDay(context.Background(), past)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, p.calls)
	assert.Contains(t, cache.data, "calendar:20160824")

	today := time.Date(2016, 8, 25, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		_, err := cal.IsTradingDay(context.Background(), today)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.calls)
	assert.NotContains(t, cache.data, "calendar:20160825")
}

func TestProbeError(t *testing.T) {
	boom := errors.New("unreachable")
	p := &fakeProber{err: boom}
	cache := &mapCache{data: map[string][]byte{}}
	cal := newCalendar(p, cache, time.Date(2016, 12, 1, 10, 0, 0, 0, cst))

	_, err := cal.IsTradingDay(context.Background(), time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, cache.data)
}
