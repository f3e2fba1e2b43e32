package contracts

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Exchange identifies one of the four futures exchanges
type Exchange string

const (
	SHFE  Exchange = "SHFE"
	DCE   Exchange = "DCE"
	CZCE  Exchange = "CZCE"
	CFFEX Exchange = "CFFEX"
)

// Exchanges lists every supported exchange in a stable order
var Exchanges = []Exchange{SHFE, DCE, CZCE, CFFEX}

// ParseExchange converts a case-insensitive name to an Exchange
func ParseExchange(s string) (Exchange, error) {
	ex := Exchange(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Exchanges {
		if ex == known {
			return ex, nil
		}
	}
	return "", fmt.Errorf("unknown exchange %q", s)
}

// ParseProductList reads "EXCHANGE:product" entries into a lookup set
func ParseProductList(entries []string) (map[Exchange]map[string]bool, error) {
	set := make(map[Exchange]map[string]bool)
	for _, entry := range entries {
		name, product, ok := strings.Cut(entry, ":")
		product = strings.TrimSpace(product)
		if !ok || product == "" {
			return nil, fmt.Errorf("product entry %q is not EXCHANGE:product", entry)
		}
		ex, err := ParseExchange(name)
		if err != nil {
			return nil, err
		}
		if set[ex] == nil {
			set[ex] = make(map[string]bool)
		}
		set[ex][product] = true
	}
	return set, nil
}

// IsIndexFutures reports whether the exchange lists cash-settled index
// futures, which have no volume/open-interest floor for main selection.
func (e Exchange) IsIndexFutures() bool {
	return e == CFFEX
}

// Day truncates t to its calendar date, expressed as UTC midnight.
// All trading days in the system use this form.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RawRecord is one per-contract row as published by an exchange bulletin.
// Every field is the source text; an empty string means absent.
type RawRecord struct {
	Exchange      Exchange
	Code          string
	ExpiryHint    string // yymm delivery month when the source publishes one
	Open          string
	High          string
	Low           string
	Close         string
	Settlement    string
	PreSettlement string
	Volume        string
	OpenInterest  string
}

// DailyBar is the normalized daily record for one contract
// Identity: (Exchange, Code, Day)
type DailyBar struct {
	Exchange     Exchange        `json:"exchange"`
	Code         string          `json:"code"`
	Day          time.Time       `json:"day"`
	ExpiryCode   int             `json:"expiry_code"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Settlement   decimal.Decimal `json:"settlement"`
	Volume       int64           `json:"volume"`
	OpenInterest int64           `json:"open_interest"`
}

// ProductCode returns the leading letters of the contract code
func (b *DailyBar) ProductCode() string {
	return ProductOf(b.Code)
}

// ProductOf returns the leading letter run of a contract code ("CF601" -> "CF").
func ProductOf(code string) string {
	end := 0
	for end < len(code) {
		c := code[end]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			break
		}
		end++
	}
	return code[:end]
}

// Instrument holds the main-contract state of one product
// Identity: (Exchange, ProductCode). Empty MainCode means unseeded.
type Instrument struct {
	Exchange    Exchange  `json:"exchange"`
	ProductCode string    `json:"product_code"`
	MainCode    string    `json:"main_code,omitempty"`
	LastMain    string    `json:"last_main,omitempty"`
	ChangeTime  time.Time `json:"change_time,omitempty"`
	NightTrade  bool      `json:"night_trade"`
}

// Seeded reports whether a main contract has been determined
func (i *Instrument) Seeded() bool {
	return i.MainCode != ""
}

// MainBar is one row of the back-adjusted continuous series
// Identity: (Exchange, ProductCode, Day)
type MainBar struct {
	Exchange     Exchange        `json:"exchange"`
	ProductCode  string          `json:"product_code"`
	Day          time.Time       `json:"day"`
	CurCode      string          `json:"cur_code"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Settlement   decimal.Decimal `json:"settlement"`
	Volume       int64           `json:"volume"`
	OpenInterest int64           `json:"open_interest"`
	Basis        decimal.Decimal `json:"basis"`
}

// MainBarFrom copies a contract's daily bar into a continuous-series row
func MainBarFrom(bar *DailyBar) MainBar {
	return MainBar{
		Exchange:     bar.Exchange,
		ProductCode:  bar.ProductCode(),
		Day:          bar.Day,
		CurCode:      bar.Code,
		Open:         bar.Open,
		High:         bar.High,
		Low:          bar.Low,
		Close:        bar.Close,
		Settlement:   bar.Settlement,
		Volume:       bar.Volume,
		OpenInterest: bar.OpenInterest,
	}
}
