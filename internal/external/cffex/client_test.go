package cffex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/external/gate"
	"github.com/wonny/futures/backend/pkg/httputil"
	"github.com/wonny/futures/backend/pkg/logger"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<dailydatas>
<dailydata>
<instrumentid>IC1609</instrumentid>
<tradingday>20160824</tradingday>
<openprice>6336.8</openprice>
<highestprice>6364.4</highestprice>
<lowestprice>6295.6</lowestprice>
<closeprice>6314.2</closeprice>
<openinterest>24703.0</openinterest>
<presettlementprice>6296.6</presettlementprice>
<settlementpriceIF>6317.6</settlementpriceIF>
<settlementprice>6317.6</settlementprice>
<volume>10619</volume>
<turnover>1.3440868E10</turnover>
<productid>IC</productid>
<delta/>
<segma/>
<expiredate>20160919</expiredate>
</dailydata>
<dailydata>
<instrumentid>IC1703 </instrumentid>
<openprice></openprice>
<highestprice></highestprice>
<lowestprice></lowestprice>
<closeprice>6100.0</closeprice>
<openinterest>12.0</openinterest>
<presettlementprice>6090.0</presettlementprice>
<settlementprice></settlementprice>
<volume>0</volume>
<expiredate>20170317</expiredate>
</dailydata>
</dailydatas>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewNop()
	return NewClient(httputil.New(log).DisableRetry(), gate.New("CFFEX", 2, 0), log, srv.URL)
}

func TestFetch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fzjy/mrhq/201608/24/index.xml", r.URL.Path)
		_, _ = w.Write([]byte(sampleXML))
	})

	records, err := c.Fetch(context.Background(), time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 2)

	ic := records[0]
	assert.Equal(t, contracts.CFFEX, ic.Exchange)
	assert.Equal(t, "IC1609", ic.Code)
	assert.Equal(t, "1609", ic.ExpiryHint)
	assert.Equal(t, "6336.8", ic.Open)
	assert.Equal(t, "6314.2", ic.Close)
	assert.Equal(t, "6317.6", ic.Settlement)
	assert.Equal(t, "6296.6", ic.PreSettlement)
	assert.Equal(t, "10619", ic.Volume)
	assert.Equal(t, "24703.0", ic.OpenInterest)

	far := records[1]
	assert.Equal(t, "IC1703", far.Code)
	assert.Equal(t, "1703", far.ExpiryHint)
	assert.Equal(t, "", far.Open)
	assert.Equal(t, "", far.Settlement)
}

func TestIsTradingDay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fzjy/mrhq/201608/27/index.xml" {
			http.Redirect(w, r, "/error.html", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte(sampleXML))
	})

	open, err := c.IsTradingDay(context.Background(), time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = c.IsTradingDay(context.Background(), time.Date(2016, 8, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open)
}

func TestIsTradingDayUnreachable(t *testing.T) {
	log := logger.NewNop()
	c := NewClient(httputil.New(log).DisableRetry(), gate.New("CFFEX", 1, 0), log, "http://127.0.0.1:1")

	_, err := c.IsTradingDay(context.Background(), time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
}
