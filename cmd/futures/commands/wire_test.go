package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/pkg/config"
	"github.com/wonny/futures/backend/pkg/logger"
)

type stubSource struct{ ex contracts.Exchange }

func (s stubSource) Exchange() contracts.Exchange { return s.ex }
func (s stubSource) Fetch(ctx context.Context, day time.Time) ([]contracts.RawRecord, error) {
	return nil, nil
}

func TestParseRange(t *testing.T) {
	a := &app{cfg: &config.Config{UTCOffsetHours: 8}}

	from, to, err := a.parseRange("2024-03-01", "2024-03-08")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), to)

	from, to, err = a.parseRange("", "2024-03-08")
	require.NoError(t, err)
	assert.Equal(t, from, to)

	_, _, err = a.parseRange("2024-03-08", "2024-03-01")
	assert.Error(t, err)

	_, _, err = a.parseRange("03/01/2024", "")
	assert.Error(t, err)
}

func TestParseExchanges(t *testing.T) {
	all, err := parseExchanges("")
	require.NoError(t, err)
	assert.Equal(t, contracts.Exchanges, all)

	some, err := parseExchanges("shfe, DCE")
	require.NoError(t, err)
	assert.Equal(t, []contracts.Exchange{contracts.SHFE, contracts.DCE}, some)

	_, err = parseExchanges("SHFE,LME")
	assert.Error(t, err)
}

func TestNewSourcesAndFilter(t *testing.T) {
	cfg := &config.Config{
		SHFE:  config.ExchangeConfig{BaseURL: "http://shfe.test", MaxInFlight: 15, Timeout: time.Second},
		DCE:   config.ExchangeConfig{BaseURL: "http://dce.test", MaxInFlight: 5, Timeout: time.Second},
		CZCE:  config.ExchangeConfig{BaseURL: "http://czce.test", MaxInFlight: 15, Timeout: time.Second},
		CFFEX: config.ExchangeConfig{BaseURL: "http://cffex.test", MaxInFlight: 15, Timeout: time.Second},
	}

	sources, prober := newSources(cfg, logger.NewNop())
	require.Len(t, sources, 4)
	require.NotNil(t, prober)
	for i, ex := range contracts.Exchanges {
		assert.Equal(t, ex, sources[i].Exchange())
	}

	kept := filterSources([]contracts.Source{stubSource{contracts.SHFE}, stubSource{contracts.CZCE}}, []contracts.Exchange{contracts.CZCE})
	require.Len(t, kept, 1)
	assert.Equal(t, contracts.CZCE, kept[0].Exchange())
}
