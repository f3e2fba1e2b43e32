// Package expiry decodes contract codes into comparable yymm expiry codes.
package expiry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wonny/futures/backend/internal/contracts"
)

// digitRun returns the first run of ASCII digits in code.
func digitRun(code string) string {
	start := -1
	for i := 0; i < len(code); i++ {
		isDigit := code[i] >= '0' && code[i] <= '9'
		if isDigit && start < 0 {
			start = i
		}
		if !isDigit && start >= 0 {
			return code[start:i]
		}
	}
	if start < 0 {
		return ""
	}
	return code[start:]
}

// Resolve converts a contract code to its 4-digit yymm expiry code, using
// asOf to supply the decade that short codes omit ("CF601" on 2016-01-15
// gives 1601). asOf must be the contract's reference date.
//
// Codes under 100 evaluated in a year ending in 9 are moved to the next
// decade. Which exchanges ever published such codes is not known; the
// rule is kept exactly as it has always behaved.
func Resolve(code string, asOf time.Time) (int, error) {
	digits := digitRun(code)
	if digits == "" {
		return 0, fmt.Errorf("no digits in contract code %q: %w", code, contracts.ErrMalformedRecord)
	}
	if len(digits) > 4 {
		digits = digits[:4]
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("contract code %q: %w", code, contracts.ErrMalformedRecord)
	}
	if len(digits) == 4 {
		return n, nil
	}

	year := asOf.Year()
	decade := (year % 100) / 10
	if n < 100 && year%10 == 9 {
		decade++
	}
	return decade*1000 + n, nil
}

// Month returns the yymm code of day itself, the threshold used before a
// product has a main contract.
func Month(day time.Time) int {
	return (day.Year()%100)*100 + int(day.Month())
}

// ProductCode returns the leading letter run of a contract code.
func ProductCode(code string) string {
	return contracts.ProductOf(code)
}

// CheckOrdering returns an error when a code's digit run is not 3 or 4
// digits long. Main contract switching compares codes as strings, which
// only follows delivery order for zero-padded yymm or ymm codes.
func CheckOrdering(code string) error {
	n := len(digitRun(code))
	if n == 3 || n == 4 {
		return nil
	}
	return fmt.Errorf("contract code %q has %d expiry digits, string order may not follow delivery order", code, n)
}
