package dce

import (
	"context"
	"net/http"
	"net/http/httptest"
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

const samplePage = `<html><body>
<table>
<tr><td colspan="14">大连商品交易所 日行情</td></tr>
<tr><th>商品名称</th><th>交割月份</th><th>开盘价</th><th>最高价</th><th>最低价</th><th>收盘价</th><th>前结算价</th><th>结算价</th><th>涨跌</th><th>涨跌1</th><th>成交量</th><th>持仓量</th><th>持仓量变化</th><th>成交额</th></tr>
<tr><td>豆一</td><td>1609</td><td>3,699</td><td>3,705</td><td>3,634</td><td>3,661</td><td>3,714</td><td>3,668</td><td>-53</td><td>-46</td><td>5,746</td><td>5,104</td><td>-976</td><td>21,077.13</td></tr>
<tr><td>豆一</td><td>1611</td><td>-</td><td>-</td><td>-</td><td>3,700</td><td>3,720</td><td>-</td><td>-20</td><td>-20</td><td>0</td><td>12</td><td>0</td><td>0</td></tr>
<tr><td>豆一小计</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td>5,746</td><td>5,116</td><td>-976</td><td>21,077.13</td></tr>
<tr><td>新品种</td><td>1609</td><td>1</td><td>1</td><td>1</td><td>1</td><td>1</td><td>1</td><td>0</td><td>0</td><td>1</td><td>1</td><td>0</td><td>0</td></tr>
<tr><td>总计</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td>5,747</td><td>5,117</td><td>-976</td><td>21,077.13</td></tr>
</table></body></html>`

func TestFetch(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/PublicWeb/MainServlet", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"action":     r.PostForm.Get("action"),
			"trade_date": r.PostForm.Get("Pu00011_Input.trade_date"),
			"variety":    r.PostForm.Get("Pu00011_Input.variety"),
			"trade_type": r.PostForm.Get("Pu00011_Input.trade_type"),
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	log := logger.NewNop()
	c := NewClient(httputil.New(log).DisableRetry(), gate.New("DCE", 5, 0), log, srv.URL)

	records, err := c.Fetch(context.Background(), time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"action":     "Pu00011_result",
		"trade_date": "20160824",
		"variety":    "all",
		"trade_type": "0",
	}, gotForm)

	require.Len(t, records, 2)
	a := records[0]
	assert.Equal(t, contracts.DCE, a.Exchange)
	assert.Equal(t, "a1609", a.Code)
	assert.Equal(t, "1609", a.ExpiryHint)
	assert.Equal(t, "3,699", a.Open)
	assert.Equal(t, "3,661", a.Close)
	assert.Equal(t, "3,668", a.Settlement)
	assert.Equal(t, "3,714", a.PreSettlement)
	assert.Equal(t, "5,746", a.Volume)
	assert.Equal(t, "5,104", a.OpenInterest)

	assert.Equal(t, "a1611", records[1].Code)
	assert.Equal(t, "-", records[1].Open)
	assert.Equal(t, "-", records[1].Settlement)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	log := logger.NewNop()
	c := NewClient(httputil.New(log).DisableRetry(), gate.New("DCE", 5, 0), log, srv.URL)

	_, err := c.Fetch(context.Background(), time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
}

func TestParseQuotesUnknownVariety(t *testing.T) {
	_, unknown, err := parseQuotes([]byte(samplePage))
	require.NoError(t, err)
	assert.Equal(t, []string{"新品种"}, unknown)
}

func TestParseQuotesGBKPage(t *testing.T) {
	page, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(samplePage))
	require.NoError(t, err)

	records, unknown, err := parseQuotes(page)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a1609", records[0].Code)
	assert.Equal(t, "3,661", records[0].Close)
	assert.Equal(t, []string{"新品种"}, unknown)
}

func TestProductCode(t *testing.T) {
	code, ok := ProductCode("液化石油气")
	assert.True(t, ok)
	assert.Equal(t, "pg", code)

	_, ok = ProductCode("黄金")
	assert.False(t, ok)
}
