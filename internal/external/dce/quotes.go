package dce

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/wonny/futures/backend/internal/contracts"
)

// varietyCodes maps DCE variety names to product codes
var varietyCodes = map[string]string{
	"豆一":    "a",
	"豆二":    "b",
	"豆粕":    "m",
	"豆油":    "y",
	"棕榈油":   "p",
	"玉米":    "c",
	"玉米淀粉":  "cs",
	"鸡蛋":    "jd",
	"纤维板":   "fb",
	"胶合板":   "bb",
	"聚乙烯":   "l",
	"聚氯乙烯":  "v",
	"聚丙烯":   "pp",
	"焦炭":    "j",
	"焦煤":    "jm",
	"铁矿石":   "i",
	"乙二醇":   "eg",
	"粳米":    "rr",
	"苯乙烯":   "eb",
	"液化石油气": "pg",
	"生猪":    "lh",
}

// ProductCode returns the product code for a DCE variety name
func ProductCode(name string) (string, bool) {
	code, ok := varietyCodes[strings.TrimSpace(name)]
	return code, ok
}

// Quotation table columns:
// 商品名称 | 交割月份 | 开盘价 | 最高价 | 最低价 | 收盘价 | 前结算价 | 结算价 | 涨跌 | 涨跌1 | 成交量 | 持仓量 | 持仓量变化 | 成交额
const (
	colName = iota
	colMonth
	colOpen
	colHigh
	colLow
	colClose
	colPreSettle
	colSettle
	_
	_
	colVolume
	colOpenInterest
	minColumns
)

// parseQuotes extracts one record per contract row. Rows of varieties not
// in the name table are skipped and their names returned.
func parseQuotes(body []byte) ([]contracts.RawRecord, []string, error) {
	// older archive pages are served as GBK
	if !utf8.Valid(body) {
		decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
		if err != nil {
			return nil, nil, fmt.Errorf("decode GBK quotation page: %w", err)
		}
		body = decoded
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse quotation page: %w", err)
	}

	var records []contracts.RawRecord
	seenUnknown := make(map[string]bool)
	var unknown []string

	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minColumns {
			return // header or layout row
		}

		text := func(col int) string {
			return strings.TrimSpace(cells.Eq(col).Text())
		}

		name := text(colName)
		if strings.Contains(name, "小计") || strings.Contains(name, "总计") || name == "商品名称" {
			return
		}

		product, ok := ProductCode(name)
		if !ok {
			if !seenUnknown[name] {
				seenUnknown[name] = true
				unknown = append(unknown, name)
			}
			return
		}

		month := text(colMonth)
		records = append(records, contracts.RawRecord{
			Exchange:      contracts.DCE,
			Code:          product + month,
			ExpiryHint:    month,
			Open:          text(colOpen),
			High:          text(colHigh),
			Low:           text(colLow),
			Close:         text(colClose),
			Settlement:    text(colSettle),
			PreSettlement: text(colPreSettle),
			Volume:        text(colVolume),
			OpenInterest:  text(colOpenInterest),
		})
	})

	return records, unknown, nil
}
