package bars

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/expiry"
)

var errAbsent = errors.New("absent")

var numberCleaner = strings.NewReplacer(",", "", "，", "", " ", "", "\u00a0", "", "\u3000", "")

// isAbsent reports whether the cleaned text stands for "no value"
func isAbsent(s string) bool {
	return s == "" || s == "-" || s == "--"
}

func parsePrice(raw string) (decimal.Decimal, error) {
	s := numberCleaner.Replace(strings.TrimSpace(raw))
	if isAbsent(s) {
		return decimal.Zero, errAbsent
	}
	return decimal.NewFromString(s)
}

// parseCount parses a volume/open-interest cell. Absent means 0; a
// fractional text such as "24703.0" is truncated.
func parseCount(raw string) (int64, error) {
	s := numberCleaner.Replace(strings.TrimSpace(raw))
	if isAbsent(s) {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative count %s", s)
	}
	return d.IntPart(), nil
}

// priceOr returns the parsed price, or fallback when the cell is absent or zero
func priceOr(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	d, err := parsePrice(raw)
	if errors.Is(err, errAbsent) {
		return fallback, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsZero() {
		return fallback, nil
	}
	return d, nil
}

func expiryCode(rec contracts.RawRecord, day time.Time) (int, error) {
	hint := strings.TrimSpace(rec.ExpiryHint)
	if len(hint) == 4 {
		if n, err := strconv.Atoi(hint); err == nil {
			return n, nil
		}
	}
	return expiry.Resolve(rec.Code, day)
}

// Normalize maps one raw bulletin row to a DailyBar.
//
// Zero or absent open/high/low take the close. A zero or absent settlement
// takes the previous settlement, then the close. A missing code or close
// fails with contracts.ErrMalformedRecord.
func Normalize(rec contracts.RawRecord, day time.Time) (*contracts.DailyBar, error) {
	code := strings.TrimSpace(rec.Code)
	if code == "" || contracts.ProductOf(code) == "" {
		return nil, contracts.Malformed(rec.Exchange, code, "code", nil)
	}

	closePrice, err := parsePrice(rec.Close)
	if err != nil {
		return nil, contracts.Malformed(rec.Exchange, code, "close", err)
	}
	if closePrice.IsZero() {
		return nil, contracts.Malformed(rec.Exchange, code, "close", errors.New("zero"))
	}

	bar := &contracts.DailyBar{
		Exchange: rec.Exchange,
		Code:     code,
		Day:      contracts.Day(day),
		Close:    closePrice,
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", rec.Open, &bar.Open},
		{"high", rec.High, &bar.High},
		{"low", rec.Low, &bar.Low},
	}
	for _, f := range fields {
		if *f.dst, err = priceOr(f.raw, closePrice); err != nil {
			return nil, contracts.Malformed(rec.Exchange, code, f.name, err)
		}
	}

	preSettle, err := priceOr(rec.PreSettlement, closePrice)
	if err != nil {
		return nil, contracts.Malformed(rec.Exchange, code, "pre_settlement", err)
	}
	if bar.Settlement, err = priceOr(rec.Settlement, preSettle); err != nil {
		return nil, contracts.Malformed(rec.Exchange, code, "settlement", err)
	}

	if bar.Volume, err = parseCount(rec.Volume); err != nil {
		return nil, contracts.Malformed(rec.Exchange, code, "volume", err)
	}
	if bar.OpenInterest, err = parseCount(rec.OpenInterest); err != nil {
		return nil, contracts.Malformed(rec.Exchange, code, "open_interest", err)
	}

	if bar.ExpiryCode, err = expiryCode(rec, bar.Day); err != nil {
		return nil, contracts.Malformed(rec.Exchange, code, "expiry", err)
	}

	return bar, nil
}

// Result is the outcome of normalizing one bulletin
type Result struct {
	Bars    []contracts.DailyBar
	Dropped []error
	// Misordered lists codes whose expiry digits are not 3 or 4 long
	Misordered []string
}

// NormalizeAll normalizes a bulletin. Bad rows are dropped and reported;
// a code repeated in the same bulletin keeps its last row.
func NormalizeAll(records []contracts.RawRecord, day time.Time) Result {
	var res Result
	index := make(map[string]int, len(records))

	for _, rec := range records {
		bar, err := Normalize(rec, day)
		if err != nil {
			res.Dropped = append(res.Dropped, err)
			continue
		}

		if i, ok := index[bar.Code]; ok {
			res.Bars[i] = *bar
			continue
		}
		if expiry.CheckOrdering(bar.Code) != nil {
			res.Misordered = append(res.Misordered, bar.Code)
		}
		index[bar.Code] = len(res.Bars)
		res.Bars = append(res.Bars, *bar)
	}

	return res
}
