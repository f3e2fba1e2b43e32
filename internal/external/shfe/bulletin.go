package shfe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonny/futures/backend/internal/contracts"
)

// bulletin is the kx{yyyymmdd}.dat document
type bulletin struct {
	Instruments []instrumentRow `json:"o_curinstrument"`
}

// instrumentRow is one row of o_curinstrument
//
//	{"PRODUCTID":"cu_f    ","DELIVERYMONTH":"1609","OPENPRICE":36990,
//	 "HIGHESTPRICE":37000,"LOWESTPRICE":36630,"CLOSEPRICE":36640,
//	 "SETTLEMENTPRICE":36770,"PRESETTLEMENTPRICE":37080,
//	 "VOLUME":51102,"OPENINTEREST":86824, ...}
type instrumentRow struct {
	ProductID          string     `json:"PRODUCTID"`
	DeliveryMonth      flexString `json:"DELIVERYMONTH"`
	OpenPrice          flexString `json:"OPENPRICE"`
	HighestPrice       flexString `json:"HIGHESTPRICE"`
	LowestPrice        flexString `json:"LOWESTPRICE"`
	ClosePrice         flexString `json:"CLOSEPRICE"`
	SettlementPrice    flexString `json:"SETTLEMENTPRICE"`
	PreSettlementPrice flexString `json:"PRESETTLEMENTPRICE"`
	Volume             flexString `json:"VOLUME"`
	OpenInterest       flexString `json:"OPENINTEREST"`
}

// flexString accepts a JSON number, string or null and keeps its text.
// SHFE publishes numeric fields either way depending on the year.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	default:
		*f = flexString(b)
	}
	return nil
}

func parseBulletin(body []byte) ([]contracts.RawRecord, error) {
	var doc bulletin
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode bulletin: %w", err)
	}

	records := make([]contracts.RawRecord, 0, len(doc.Instruments))
	for _, row := range doc.Instruments {
		productID := strings.TrimSpace(row.ProductID)
		month := string(row.DeliveryMonth)

		// subtotal and grand-total rows
		if month == "小计" || productID == "总计" {
			continue
		}
		prefix, _, ok := strings.Cut(productID, "_")
		if !ok {
			continue
		}

		records = append(records, contracts.RawRecord{
			Exchange:      contracts.SHFE,
			Code:          prefix + month,
			ExpiryHint:    month,
			Open:          string(row.OpenPrice),
			High:          string(row.HighestPrice),
			Low:           string(row.LowestPrice),
			Close:         string(row.ClosePrice),
			Settlement:    string(row.SettlementPrice),
			PreSettlement: string(row.PreSettlementPrice),
			Volume:        string(row.Volume),
			OpenInterest:  string(row.OpenInterest),
		})
	}
	return records, nil
}
