package czce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/external/gate"
	"github.com/wonny/futures/backend/pkg/httputil"
	"github.com/wonny/futures/backend/pkg/logger"
)

const pipeBulletin = "郑州商品交易所期货每日行情表(2016-01-15)\r\n" +
	"品种月份|昨结算|今开盘|最高价|最低价|今收盘|今结算|涨跌1|涨跌2|成交量(手)|空盘量|增减量|成交额(万元)|交割结算价\r\n" +
	"CF601    |11,970.00|11,970.00|11,970.00|11,800.00|11,870.00|11,905.00|-100.00|-65.00|13,826|59,140|-10,760|82,305.24|\r\n" +
	"CF605    |12,100.00|0.00|0.00|0.00|12,050.00|0.00|-50.00|0.00|0|1,002|0|0.00|\r\n" +
	"小计|||||||||13,826|60,142|-10,760|82,305.24|\r\n" +
	"总计|||||||||13,826|60,142|-10,760|82,305.24|\r\n"

const commaBulletin = "郑州商品交易所期货每日行情表\r\n" +
	"品种月份,昨结算,今开盘,最高价,最低价,今收盘,今结算,涨跌1,涨跌2,成交量(手),空盘量,增减量,成交额(万元),交割结算价\r\n" +
	"SR609,5300,5310,5350,5290,5320,5318,20,18,120034,400211,1200,640000,\r\n"

func gbk(t *testing.T, s string) []byte {
	t.Helper()
	b, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewNop()
	return NewClient(httputil.New(log).DisableRetry(), gate.New("CZCE", 2, 0), log, srv.URL)
}

func TestFetchPrimary(t *testing.T) {
	day := time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portal/DFSStaticFiles/Future/2016/20160115/FutureDataDaily.txt", r.URL.Path)
		_, _ = w.Write(gbk(t, pipeBulletin))
	})

	records, err := c.Fetch(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, records, 2)

	cf := records[0]
	assert.Equal(t, contracts.CZCE, cf.Exchange)
	assert.Equal(t, "CF601", cf.Code)
	assert.Equal(t, "", cf.ExpiryHint)
	assert.Equal(t, "11,970.00", cf.Open)
	assert.Equal(t, "11,870.00", cf.Close)
	assert.Equal(t, "11,905.00", cf.Settlement)
	assert.Equal(t, "11,970.00", cf.PreSettlement)
	assert.Equal(t, "13,826", cf.Volume)
	assert.Equal(t, "59,140", cf.OpenInterest)

	assert.Equal(t, "0.00", records[1].Open)
}

func TestFetchFallsBackToSecondary(t *testing.T) {
	day := time.Date(2014, 3, 3, 0, 0, 0, 0, time.UTC)
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path == "/portal/exchange/2014/datadaily/20140303.txt" {
			_, _ = w.Write(gbk(t, commaBulletin))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	records, err := c.Fetch(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, records, 1)
	assert.Equal(t, "SR609", records[0].Code)
	assert.Equal(t, "5318", records[0].Settlement)
	assert.Equal(t, "400211", records[0].OpenInterest)
}

func TestFetchEmptyPrimaryFallsBack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/portal/DFSStaticFiles/Future/2016/20160115/FutureDataDaily.txt" {
			return // 200 with empty body
		}
		_, _ = w.Write(gbk(t, commaBulletin))
	})

	records, err := c.Fetch(context.Background(), time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetchBothMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Fetch(context.Background(), time.Date(2016, 1, 16, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
	assert.ErrorIs(t, err, errNoBulletin)
}

func TestFetchTransportErrorSkipsSecondary(t *testing.T) {
	var secondary int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/portal/DFSStaticFiles/Future/2016/20160115/FutureDataDaily.txt" {
			conn, _, err := w.(http.Hijacker).Hijack()
			if assert.NoError(t, err) {
				_ = conn.Close() // drop the connection mid-request
			}
			return
		}
		atomic.AddInt32(&secondary, 1)
		_, _ = w.Write(gbk(t, commaBulletin))
	})

	_, err := c.Fetch(context.Background(), time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
	assert.NotErrorIs(t, err, errNoBulletin)
	assert.Equal(t, int32(0), atomic.LoadInt32(&secondary))
}
