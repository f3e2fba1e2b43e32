package cffex

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/wonny/futures/backend/internal/contracts"
)

// bulletin is the index.xml document; every child of the root is one contract
//
//	<dailydata>
//	  <instrumentid>IC1609</instrumentid>
//	  <openprice>6336.8</openprice> ...
//	  <openinterest>24703.0</openinterest>
//	  <expiredate>20160919</expiredate>
//	</dailydata>
type bulletin struct {
	Rows []dailyData `xml:",any"`
}

type dailyData struct {
	InstrumentID       string `xml:"instrumentid"`
	OpenPrice          string `xml:"openprice"`
	HighestPrice       string `xml:"highestprice"`
	LowestPrice        string `xml:"lowestprice"`
	ClosePrice         string `xml:"closeprice"`
	OpenInterest       string `xml:"openinterest"`
	PreSettlementPrice string `xml:"presettlementprice"`
	SettlementPrice    string `xml:"settlementprice"`
	Volume             string `xml:"volume"`
	ExpireDate         string `xml:"expiredate"`
}

func parseBulletin(body []byte) ([]contracts.RawRecord, error) {
	var doc bulletin
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode bulletin: %w", err)
	}

	records := make([]contracts.RawRecord, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		code := strings.TrimSpace(row.InstrumentID)
		if code == "" {
			continue
		}

		var hint string
		if expire := strings.TrimSpace(row.ExpireDate); len(expire) >= 6 {
			hint = expire[2:6] // yyyymmdd -> yymm
		}

		records = append(records, contracts.RawRecord{
			Exchange:      contracts.CFFEX,
			Code:          code,
			ExpiryHint:    hint,
			Open:          strings.TrimSpace(row.OpenPrice),
			High:          strings.TrimSpace(row.HighestPrice),
			Low:           strings.TrimSpace(row.LowestPrice),
			Close:         strings.TrimSpace(row.ClosePrice),
			Settlement:    strings.TrimSpace(row.SettlementPrice),
			PreSettlement: strings.TrimSpace(row.PreSettlementPrice),
			Volume:        strings.TrimSpace(row.Volume),
			OpenInterest:  strings.TrimSpace(row.OpenInterest),
		})
	}
	return records, nil
}
