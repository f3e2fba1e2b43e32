package contracts

import "time"

// InstrumentStatus is the trading-phase flag pushed by the exchange front
type InstrumentStatus byte

const (
	StatusBeforeTrading   InstrumentStatus = '0'
	StatusNoTrading       InstrumentStatus = '1'
	StatusContinuous      InstrumentStatus = '2'
	StatusAuctionOrdering InstrumentStatus = '3'
	StatusAuctionBalance  InstrumentStatus = '4'
	StatusAuctionMatch    InstrumentStatus = '5'
	StatusClosed          InstrumentStatus = '6'
)

// IsAuctionTime reports whether an auction-ordering status belongs to the
// session the product opens with: the 20:55 night auction for night-trading
// products, the 08:55 day auction otherwise. now must be exchange-local.
func IsAuctionTime(inst *Instrument, status InstrumentStatus, now time.Time) bool {
	if status != StatusAuctionOrdering {
		return false
	}
	if inst.NightTrade {
		return now.Hour() == 20
	}
	return now.Hour() == 8
}
