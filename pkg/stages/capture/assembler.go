package capture

import (
	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/ports"
)

// redirectSuffix is appended to a request id for each redirect hop, since the
// browser reuses the id for the whole chain.
const redirectSuffix = ":redirect"

// assembler folds network events into request records. Times are rebased to
// the first request, which is taken as navigation start.
type assembler struct {
	origin  float64
	started bool

	records []netrecord.Record
	// current maps a browser request id to the index of its latest hop.
	current map[string]int
}

func newAssembler() *assembler {
	return &assembler{current: make(map[string]int)}
}

// apply folds ev in and returns the records it touched.
func (a *assembler) apply(ev ports.NetworkEvent) []netrecord.Record {
	if !a.started {
		if ev.Kind != ports.EventRequestStarted {
			return nil
		}
		a.started = true
		a.origin = ev.Time
	}
	t := ev.Time - a.origin
	if t < 0 {
		t = 0
	}

	if ev.Kind == ports.EventRequestStarted {
		return a.start(ev, t)
	}

	i, ok := a.current[ev.RequestID]
	if !ok {
		return nil
	}
	r := &a.records[i]
	switch ev.Kind {
	case ports.EventResponseReceived:
		r.ResponseReceived = true
		r.Protocol = ev.Protocol
		r.FromDiskCache = ev.FromDiskCache
		r.FromMemoryCache = ev.FromMemoryCache
		r.ConnectionReused = ev.ConnectionReused
		r.EndTime = t
	case ports.EventPriorityChanged:
		r.PriorityChanges = append(r.PriorityChanges, netrecord.PriorityChange{
			Time:     t,
			Priority: netrecord.ParsePriority(ev.Priority),
		})
	case ports.EventRequestFinished:
		r.Finished = true
		r.EndTime = t
		r.TransferSize = int64(ev.EncodedDataLength)
	case ports.EventRequestFailed:
		r.Finished = true
		r.EndTime = t
	}
	return []netrecord.Record{*r}
}

// start opens a record. A start for a known id is the next hop of a redirect
// chain: the previous hop ends and links to it.
func (a *assembler) start(ev ports.NetworkEvent, t float64) []netrecord.Record {
	r := netrecord.Record{
		RequestID:    ev.RequestID,
		URL:          ev.URL,
		StartTime:    t,
		EndTime:      t,
		Priority:     netrecord.ParsePriority(ev.Priority),
		ResourceType: netrecord.ResourceType(ev.ResourceType),
		Initiator: netrecord.Initiator{
			Type: netrecord.InitiatorType(ev.InitiatorType),
			URL:  ev.InitiatorURL,
		},
	}
	if ev.InitiatorRequest != "" {
		if i, ok := a.current[ev.InitiatorRequest]; ok {
			r.Initiator.RequestID = a.records[i].RequestID
		}
	}

	var touched []netrecord.Record
	if prev, ok := a.current[ev.RequestID]; ok {
		hop := &a.records[prev]
		hop.Finished = true
		hop.ResponseReceived = true
		hop.EndTime = t
		r.RequestID = hop.RequestID + redirectSuffix
		r.RedirectSource = hop.RequestID
		r.Initiator = netrecord.Initiator{Type: netrecord.InitiatorRedirect, RequestID: hop.RequestID}
		hop.RedirectDestination = r.RequestID
		touched = append(touched, *hop)
	}

	a.current[ev.RequestID] = len(a.records)
	a.records = append(a.records, r)
	return append(touched, r)
}

// elapsed converts a browser timestamp to seconds since navigation start.
func (a *assembler) elapsed(browserTime float64) float64 {
	if !a.started {
		return 0
	}
	return browserTime - a.origin
}

// result returns the assembled records.
func (a *assembler) result() []netrecord.Record {
	return append([]netrecord.Record(nil), a.records...)
}
