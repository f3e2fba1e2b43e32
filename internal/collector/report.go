package collector

import (
	"time"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/mainseries"
)

// ExchangeReport counts one exchange's fetch outcomes
type ExchangeReport struct {
	Fetched    int `json:"fetched"`
	Failed     int `json:"failed"`
	Stored     int `json:"stored"`
	Dropped    int `json:"dropped"`
	Misordered int `json:"misordered"`
}

// Report summarizes a collection run
type Report struct {
	From          time.Time                              `json:"from"`
	To            time.Time                              `json:"to"`
	DaysProbed    int                                    `json:"days_probed"`
	ProbeFailures int                                    `json:"probe_failures"`
	TradingDays   []time.Time                            `json:"trading_days"`
	Exchanges     map[contracts.Exchange]*ExchangeReport `json:"exchanges"`
	Selection     SelectStats                            `json:"selection"`
}

func newReport(from, to time.Time) *Report {
	r := &Report{
		From:      contracts.Day(from),
		To:        contracts.Day(to),
		Exchanges: make(map[contracts.Exchange]*ExchangeReport),
	}
	for _, ex := range contracts.Exchanges {
		r.Exchanges[ex] = &ExchangeReport{}
	}
	return r
}

func (r *Report) addFetch(res fetchResult) {
	er, ok := r.Exchanges[res.exchange]
	if !ok {
		er = &ExchangeReport{}
		r.Exchanges[res.exchange] = er
	}
	if res.err != nil && res.stored == 0 {
		er.Failed++
	} else {
		er.Fetched++
	}
	er.Stored += res.stored
	er.Dropped += res.dropped
	er.Misordered += res.misordered
}

// Stored is the number of bars written across exchanges
func (r *Report) Stored() int {
	n := 0
	for _, er := range r.Exchanges {
		n += er.Stored
	}
	return n
}

// Dropped is the number of malformed records across exchanges
func (r *Report) Dropped() int {
	n := 0
	for _, er := range r.Exchanges {
		n += er.Dropped
	}
	return n
}

// FetchFailures counts (day, exchange) pairs that produced nothing
func (r *Report) FetchFailures() int {
	n := 0
	for _, er := range r.Exchanges {
		n += er.Failed
	}
	return n
}

// SelectStats summarizes selector runs
type SelectStats struct {
	Days      int                   `json:"days"`
	Processed int                   `json:"processed"`
	Skipped   int                   `json:"skipped"`
	Failed    int                   `json:"failed"`
	Seeded    int                   `json:"seeded"`
	Switched  int                   `json:"switched"`
	Forced    int                   `json:"forced"`
	Switches  []mainseries.Decision `json:"switches,omitempty"`
}

func (s *SelectStats) add(res selectResult) {
	switch {
	case res.err != nil:
		s.Failed++
		return
	case res.skipped:
		s.Skipped++
		return
	}

	s.Processed++
	d := res.decision
	if d.Seeded {
		s.Seeded++
	}
	if d.Switched {
		s.Switched++
		s.Switches = append(s.Switches, d)
	}
	if d.Forced {
		s.Forced++
	}
}

func (s *SelectStats) merge(o SelectStats) {
	s.Days += o.Days
	s.Processed += o.Processed
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.Seeded += o.Seeded
	s.Switched += o.Switched
	s.Forced += o.Forced
	s.Switches = append(s.Switches, o.Switches...)
}
