package contracts

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExchange(t *testing.T) {
	ex, err := ParseExchange(" czce ")
	require.NoError(t, err)
	assert.Equal(t, CZCE, ex)

	_, err = ParseExchange("INE")
	assert.Error(t, err)
}

func TestParseProductList(t *testing.T) {
	set, err := ParseProductList([]string{"SHFE:cu", "shfe:al", "CZCE:CF"})
	require.NoError(t, err)
	assert.True(t, set[SHFE]["cu"])
	assert.True(t, set[SHFE]["al"])
	assert.True(t, set[CZCE]["CF"])
	assert.False(t, set[DCE]["m"])

	_, err = ParseProductList([]string{"cu"})
	assert.Error(t, err)

	_, err = ParseProductList([]string{"INE:sc"})
	assert.Error(t, err)
}

func TestIsIndexFutures(t *testing.T) {
	for _, ex := range Exchanges {
		assert.Equal(t, ex == CFFEX, ex.IsIndexFutures(), string(ex))
	}
}

func TestProductOf(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"CF601", "CF"},
		{"cu1609", "cu"},
		{"IC1609", "IC"},
		{"cs1705", "cs"},
		{"1609", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ProductOf(tt.code))
		})
	}
}

func TestDay(t *testing.T) {
	cst := time.FixedZone("CST", 8*3600)
	got := Day(time.Date(2016, 1, 8, 23, 30, 0, 0, cst))
	assert.Equal(t, time.Date(2016, 1, 8, 0, 0, 0, 0, time.UTC), got)
}

func TestMainBarFrom(t *testing.T) {
	day := Day(time.Date(2016, 1, 8, 0, 0, 0, 0, time.UTC))
	bar := &DailyBar{
		Exchange:     CZCE,
		Code:         "CF605",
		Day:          day,
		Open:         decimal.RequireFromString("11970"),
		High:         decimal.RequireFromString("11970"),
		Low:          decimal.RequireFromString("11800"),
		Close:        decimal.RequireFromString("11870"),
		Settlement:   decimal.RequireFromString("11905"),
		Volume:       13826,
		OpenInterest: 59140,
	}

	mb := MainBarFrom(bar)
	assert.Equal(t, "CF", mb.ProductCode)
	assert.Equal(t, "CF605", mb.CurCode)
	assert.True(t, mb.Close.Equal(bar.Close))
	assert.True(t, mb.Basis.IsZero())
	assert.Equal(t, int64(59140), mb.OpenInterest)
}

func TestErrorsUnwrap(t *testing.T) {
	day := time.Date(2016, 1, 8, 0, 0, 0, 0, time.UTC)
	cause := fmt.Errorf("status 404")

	srcErr := Unavailable(CZCE, day, cause)
	assert.True(t, errors.Is(srcErr, ErrSourceUnavailable))
	assert.True(t, errors.Is(srcErr, cause))
	assert.Contains(t, srcErr.Error(), "CZCE 2016-01-08")

	recErr := Malformed(DCE, "m1609", "close", nil)
	assert.True(t, errors.Is(recErr, ErrMalformedRecord))
	assert.False(t, errors.Is(recErr, ErrSourceUnavailable))

	var re *RecordError
	require.True(t, errors.As(recErr, &re))
	assert.Equal(t, "close", re.Field)
}

func TestIsAuctionTime(t *testing.T) {
	cst := time.FixedZone("CST", 8*3600)
	night := &Instrument{NightTrade: true}
	day := &Instrument{NightTrade: false}

	at2055 := time.Date(2016, 1, 8, 20, 55, 0, 0, cst)
	at0855 := time.Date(2016, 1, 8, 8, 55, 0, 0, cst)

	assert.True(t, IsAuctionTime(night, StatusAuctionOrdering, at2055))
	assert.False(t, IsAuctionTime(night, StatusAuctionOrdering, at0855))
	assert.True(t, IsAuctionTime(day, StatusAuctionOrdering, at0855))
	assert.False(t, IsAuctionTime(day, StatusAuctionOrdering, at2055))
	assert.False(t, IsAuctionTime(day, StatusContinuous, at0855))
}
