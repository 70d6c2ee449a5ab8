// Package quietperiod finds the intervals during which few enough requests
// were in flight for the network to be considered settled.
package quietperiod

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/ports"
)

const (
	// IdleThreshold is the in-flight count at or below which the network is idle.
	IdleThreshold = 0
	// QuasiIdleThreshold is the in-flight count at or below which the network
	// is mostly idle.
	QuasiIdleThreshold = 2
)

// Period is a half-open interval [StartMs, EndMs) of network quiet. An ongoing
// period has not ended yet and its EndMs is meaningless.
type Period struct {
	StartMs float64
	EndMs   float64
	Ongoing bool
}

// MarshalJSON renders an ongoing period's end as "ongoing".
func (p Period) MarshalJSON() ([]byte, error) {
	var end interface{} = p.EndMs
	if p.Ongoing {
		end = "ongoing"
	}
	return json.Marshal(struct {
		StartMs float64     `json:"start_ms"`
		EndMs   interface{} `json:"end_ms"`
	}{p.StartMs, end})
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t float64) bool {
	return t >= p.StartMs && (p.Ongoing || t < p.EndMs)
}

type boundary struct {
	timeMs float64
	start  bool
}

// Find returns every maximal period during which at most allowedConcurrent
// records were in flight, ordered by start. Records without a usable start are
// skipped with a warning; non-network requests are ignored.
func Find(records []netrecord.Record, allowedConcurrent int, logger ports.Logger) []Period {
	boundaries := make([]boundary, 0, 2*len(records))
	for i := range records {
		r := &records[i]
		if r.IsNonNetwork() {
			continue
		}
		if r.StartTime < 0 || math.IsNaN(r.StartTime) || math.IsInf(r.StartTime, 0) {
			logger.Warn("Skipping record %s: invalid start time", r.RequestID)
			continue
		}
		boundaries = append(boundaries, boundary{timeMs: r.StartTime * 1000, start: true})
		if end, ok := finishTime(r); ok {
			boundaries = append(boundaries, boundary{timeMs: end * 1000})
		}
	}
	// Ends sort before starts at the same instant, so back-to-back requests
	// do not open a zero-length gap.
	sort.SliceStable(boundaries, func(i, j int) bool {
		if boundaries[i].timeMs != boundaries[j].timeMs {
			return boundaries[i].timeMs < boundaries[j].timeMs
		}
		return !boundaries[i].start && boundaries[j].start
	})

	var periods []Period
	inflight := 0
	quietStart := 0.0
	for _, b := range boundaries {
		if b.start {
			if inflight == allowedConcurrent {
				periods = appendPeriod(periods, Period{StartMs: quietStart, EndMs: b.timeMs})
			}
			inflight++
			continue
		}
		inflight--
		if inflight == allowedConcurrent {
			quietStart = b.timeMs
		}
	}
	if inflight <= allowedConcurrent {
		periods = append(periods, Period{StartMs: quietStart, Ongoing: true})
	}
	return periods
}

func appendPeriod(periods []Period, p Period) []Period {
	if p.EndMs <= p.StartMs {
		return periods
	}
	return append(periods, p)
}

// finishTime returns when the record stopped occupying the network. QUIC
// requests often never report a finish; once their headers arrived nothing
// more is expected, so they count as finished at their recorded end.
func finishTime(r *netrecord.Record) (float64, bool) {
	if r.Finished {
		if math.IsNaN(r.EndTime) || r.EndTime < r.StartTime {
			return 0, false
		}
		return r.EndTime, true
	}
	if r.IsQUIC() && r.ResponseReceived {
		return math.Max(r.StartTime, r.EndTime), true
	}
	return 0, false
}

// Latest returns the most recent period, if any.
func Latest(periods []Period) (Period, bool) {
	if len(periods) == 0 {
		return Period{}, false
	}
	return periods[len(periods)-1], true
}
