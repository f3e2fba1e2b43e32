package expiry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/futures/backend/internal/contracts"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		code string
		asOf time.Time
		want int
	}{
		{"czce three digit", "CF601", date(2016, 1, 15), 1601},
		{"four digit passes through", "cu1609", date(2016, 1, 15), 1609},
		{"cffex four digit", "IC1609", date(2016, 8, 24), 1609},
		{"three digit late in decade", "SR912", date(2019, 3, 1), 1912},
		{"0xx code in year nine moves to next decade", "TA001", date(2019, 11, 1), 2001},
		{"bare delivery month", "1705", date(2016, 1, 1), 1705},
		{"digits only first run", "m1609-C-2800", date(2016, 1, 1), 1609},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.code, tt.asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Short codes under 100 in a year ending in 9 move to the next decade.
// Kept verbatim; the eras that produced such codes are unconfirmed.
func TestResolveDecadeBoundaryHeuristic(t *testing.T) {
	got, err := Resolve("CF01", date(2019, 12, 2))
	require.NoError(t, err)
	assert.Equal(t, 2001, got)

	got, err = Resolve("CF01", date(2018, 12, 3))
	require.NoError(t, err)
	assert.Equal(t, 1001, got)

	got, err = Resolve("CF9", date(2009, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, 1009, got)
}

func TestResolveDeterministic(t *testing.T) {
	a, _ := Resolve("CF601", date(2016, 1, 15))
	b, _ := Resolve("CF601", date(2016, 1, 15))
	assert.Equal(t, a, b)
}

func TestResolveNoDigits(t *testing.T) {
	_, err := Resolve("CF", date(2016, 1, 15))
	assert.True(t, errors.Is(err, contracts.ErrMalformedRecord))
}

func TestMonth(t *testing.T) {
	assert.Equal(t, 1601, Month(date(2016, 1, 8)))
	assert.Equal(t, 2012, Month(date(2020, 12, 31)))
	assert.Equal(t, 905, Month(date(2009, 5, 1)))
}

func TestProductCode(t *testing.T) {
	assert.Equal(t, "CF", ProductCode("CF601"))
	assert.Equal(t, "cu", ProductCode("cu1609"))
	assert.Equal(t, "IF", ProductCode("IF1609"))
}

func TestCheckOrdering(t *testing.T) {
	assert.NoError(t, CheckOrdering("CF601"))
	assert.NoError(t, CheckOrdering("cu1609"))
	assert.Error(t, CheckOrdering("CF61"))
	assert.Error(t, CheckOrdering("CF"))
}
