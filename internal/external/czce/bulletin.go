package czce

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/wonny/futures/backend/internal/contracts"
)

var contractCodeRe = regexp.MustCompile(`^[A-Za-z]+\d+$`)

// Bulletin columns:
// 品种月份 | 昨结算 | 今开盘 | 最高价 | 最低价 | 今收盘 | 今结算 | 涨跌1 | 涨跌2 | 成交量(手) | 空盘量 | 增减量 | 成交额(万元) | 交割结算价
const (
	colCode = iota
	colPreSettle
	colOpen
	colHigh
	colLow
	colClose
	colSettle
	_
	_
	colVolume
	colOpenInterest
	minColumns
)

// parseBulletin decodes a GBK text bulletin. Fields are separated by "|"
// in current files and by "," in legacy ones.
func parseBulletin(raw []byte) ([]contracts.RawRecord, error) {
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode GBK bulletin: %w", err)
	}

	var records []contracts.RawRecord
	for _, line := range strings.Split(string(decoded), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.Contains(line, "小计") || strings.Contains(line, "品种") {
			continue
		}

		sep := ","
		if strings.Contains(line, "|") {
			sep = "|"
		}
		fields := strings.Split(line, sep)
		if len(fields) < minColumns {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if !contractCodeRe.MatchString(fields[colCode]) {
			continue // title, header and summary lines
		}

		records = append(records, contracts.RawRecord{
			Exchange:      contracts.CZCE,
			Code:          fields[colCode],
			Open:          fields[colOpen],
			High:          fields[colHigh],
			Low:           fields[colLow],
			Close:         fields[colClose],
			Settlement:    fields[colSettle],
			PreSettlement: fields[colPreSettle],
			Volume:        fields[colVolume],
			OpenInterest:  fields[colOpenInterest],
		})
	}
	return records, nil
}
