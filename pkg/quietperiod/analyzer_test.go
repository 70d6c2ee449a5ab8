package quietperiod

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/user/loadsim/pkg/mocks"
	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/ports"
)

func span(id string, startMs, endMs float64) netrecord.Record {
	return netrecord.Record{
		RequestID: id,
		URL:       "https://example.com/" + id,
		StartTime: startMs / 1000,
		EndTime:   endMs / 1000,
		Finished:  true,
	}
}

func open(id string, startMs float64) netrecord.Record {
	r := span(id, startMs, 0)
	r.Finished = false
	return r
}

func TestFind(t *testing.T) {
	quic := open("q", 10)
	quic.Protocol = "h3"
	quic.ResponseReceived = true
	quic.EndTime = 0.2

	quicNoHeaders := open("q2", 10)
	quicNoHeaders.Protocol = "h3"

	inline := span("inline", 0, 900)
	inline.URL = "data:text/plain,x"

	tests := []struct {
		name    string
		records []netrecord.Record
		allowed int
		want    []Period
	}{
		{
			name:    "overlapping requests, idle",
			records: []netrecord.Record{span("A", 0, 100), span("B", 50, 400), span("C", 120, 130)},
			allowed: 0,
			want:    []Period{{StartMs: 400, Ongoing: true}},
		},
		{
			name:    "overlapping requests, quasi idle",
			records: []netrecord.Record{span("A", 0, 100), span("B", 50, 400), span("C", 120, 130)},
			allowed: 2,
			want:    []Period{{StartMs: 0, Ongoing: true}},
		},
		{
			name:    "gap between requests",
			records: []netrecord.Record{span("A", 0, 100), span("B", 300, 400)},
			allowed: 0,
			want:    []Period{{StartMs: 100, EndMs: 300}, {StartMs: 400, Ongoing: true}},
		},
		{
			name:    "back to back requests leave no gap",
			records: []netrecord.Record{span("A", 0, 100), span("B", 100, 200)},
			allowed: 0,
			want:    []Period{{StartMs: 200, Ongoing: true}},
		},
		{
			name:    "leading quiet before first request",
			records: []netrecord.Record{span("A", 50, 100)},
			allowed: 0,
			want:    []Period{{StartMs: 0, EndMs: 50}, {StartMs: 100, Ongoing: true}},
		},
		{
			name:    "unfinished request never ends the sweep quiet",
			records: []netrecord.Record{span("A", 0, 100), open("B", 200)},
			allowed: 0,
			want:    []Period{{StartMs: 100, EndMs: 200}},
		},
		{
			name:    "quasi idle crosses back down",
			records: []netrecord.Record{span("A", 0, 500), span("B", 0, 500), span("C", 100, 200), open("D", 50)},
			allowed: 2,
			want:    []Period{{StartMs: 0, EndMs: 50}, {StartMs: 500, Ongoing: true}},
		},
		{
			name:    "QUIC with headers counts as finished",
			records: []netrecord.Record{quic},
			allowed: 0,
			want:    []Period{{StartMs: 0, EndMs: 10}, {StartMs: 200, Ongoing: true}},
		},
		{
			name:    "QUIC without headers stays open",
			records: []netrecord.Record{quicNoHeaders},
			allowed: 0,
			want:    []Period{{StartMs: 0, EndMs: 10}},
		},
		{
			name:    "non-network requests ignored",
			records: []netrecord.Record{inline},
			allowed: 0,
			want:    []Period{{StartMs: 0, Ongoing: true}},
		},
		{
			name:    "no records",
			allowed: 0,
			want:    []Period{{StartMs: 0, Ongoing: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Find(tt.records, tt.allowed, mocks.NewLogger())
			if len(got) != len(tt.want) {
				t.Fatalf("Find() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				w := tt.want[i]
				if math.Abs(got[i].StartMs-w.StartMs) > 1e-9 || got[i].Ongoing != w.Ongoing {
					t.Errorf("period %d = %+v, want %+v", i, got[i], w)
				}
				if !w.Ongoing && math.Abs(got[i].EndMs-w.EndMs) > 1e-9 {
					t.Errorf("period %d = %+v, want %+v", i, got[i], w)
				}
			}
		})
	}
}

func TestFind_SkipsInvalidStart(t *testing.T) {
	bad := span("bad", 0, 100)
	bad.StartTime = math.NaN()
	log := mocks.NewLogger()

	got := Find([]netrecord.Record{bad, span("A", 0, 100)}, 0, log)
	if len(got) != 1 || got[0].StartMs != 100 || !got[0].Ongoing {
		t.Errorf("Find() = %+v, want [100, ongoing]", got)
	}
	if len(log.Entries(ports.LevelWarn)) != 1 {
		t.Errorf("warnings = %v, want 1", log.Entries(ports.LevelWarn))
	}
}

func TestPeriod_MarshalJSON(t *testing.T) {
	data, err := json.Marshal([]Period{{StartMs: 100, EndMs: 300}, {StartMs: 400, Ongoing: true}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `[{"start_ms":100,"end_ms":300},{"start_ms":400,"end_ms":"ongoing"}]`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
