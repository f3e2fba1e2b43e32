package shfe

import (
	"context"
	"errors"
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

const sampleBulletin = `{"o_curinstrument":[
{"PRODUCTID":"cu_f    ","PRODUCTNAME":"铜","DELIVERYMONTH":"1609","PRESETTLEMENTPRICE":37080,"OPENPRICE":36990,"HIGHESTPRICE":37000,"LOWESTPRICE":36630,"CLOSEPRICE":36640,"SETTLEMENTPRICE":36770,"VOLUME":51102,"OPENINTEREST":86824},
{"PRODUCTID":"cu_f    ","PRODUCTNAME":"铜","DELIVERYMONTH":"1610","PRESETTLEMENTPRICE":"37100","OPENPRICE":"","HIGHESTPRICE":"","LOWESTPRICE":"","CLOSEPRICE":"36700","SETTLEMENTPRICE":"","VOLUME":"","OPENINTEREST":"120"},
{"PRODUCTID":"cu_f    ","PRODUCTNAME":"铜","DELIVERYMONTH":"小计","VOLUME":51102},
{"PRODUCTID":"总计    ","DELIVERYMONTH":"","VOLUME":99999},
{"PRODUCTID":"zz","DELIVERYMONTH":"1609","CLOSEPRICE":1}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewNop()
	return NewClient(httputil.New(log).DisableRetry(), gate.New("SHFE", 2, 0), log, srv.URL)
}

func TestFetch(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(sampleBulletin))
	})

	records, err := c.Fetch(context.Background(), time.Date(2016, 8, 24, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "/data/dailydata/kx/kx20160824.dat", gotPath)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, contracts.SHFE, first.Exchange)
	assert.Equal(t, "cu1609", first.Code)
	assert.Equal(t, "1609", first.ExpiryHint)
	assert.Equal(t, "36990", first.Open)
	assert.Equal(t, "36640", first.Close)
	assert.Equal(t, "36770", first.Settlement)
	assert.Equal(t, "37080", first.PreSettlement)
	assert.Equal(t, "51102", first.Volume)
	assert.Equal(t, "86824", first.OpenInterest)

	second := records[1]
	assert.Equal(t, "cu1610", second.Code)
	assert.Equal(t, "", second.Open)
	assert.Equal(t, "36700", second.Close)
	assert.Equal(t, "", second.Volume)
}

func TestFetchUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Fetch(context.Background(), time.Date(2016, 8, 27, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSourceUnavailable))

	var srcErr *contracts.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, contracts.SHFE, srcErr.Exchange)
}

func TestFetchGarbage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	_, err := c.Fetch(context.Background(), time.Date(2016, 8, 24, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
}

func TestFlexString(t *testing.T) {
	records, err := parseBulletin([]byte(`{"o_curinstrument":[{"PRODUCTID":"al_f","DELIVERYMONTH":1609,"CLOSEPRICE":12850.5,"VOLUME":null}]}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "al1609", records[0].Code)
	assert.Equal(t, "12850.5", records[0].Close)
	assert.Equal(t, "", records[0].Volume)
}
