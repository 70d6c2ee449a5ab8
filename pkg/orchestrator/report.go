package orchestrator

import (
	"github.com/user/loadsim/pkg/depgraph"
	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/quietperiod"
	"github.com/user/loadsim/pkg/simulator"
	"github.com/user/loadsim/pkg/summarizer"
)

// Report is the result of one estimate run, written as JSON.
type Report struct {
	Name              string               `json:"name"`
	Metric            string               `json:"metric"`
	PointOfInterestUs float64              `json:"point_of_interest_us"`
	Graph             GraphStats           `json:"graph"`
	Diagnostics       []string             `json:"diagnostics,omitempty"`
	Idle              []quietperiod.Period `json:"idle"`
	QuasiIdle         []quietperiod.Period `json:"quasi_idle"`
	Estimates         []pipeline.Estimate  `json:"estimates"`
	// Timings holds the timing table of every successful run, keyed by
	// "<scenario>/<preset>".
	Timings map[string]*simulator.Result `json:"timings"`
}

// GraphStats counts the contents of a dependency graph.
type GraphStats struct {
	Nodes      int   `json:"nodes"`
	Requests   int   `json:"requests"`
	Tasks      int   `json:"tasks"`
	TotalBytes int64 `json:"total_bytes"`
}

// QuietReport lists the quiet periods of a recorded load.
type QuietReport struct {
	Idle      []quietperiod.Period `json:"idle"`
	QuasiIdle []quietperiod.Period `json:"quasi_idle"`
}

func statsOf(g *depgraph.Graph) GraphStats {
	var s GraphStats
	for _, n := range g.Nodes() {
		s.Nodes++
		switch n.Kind {
		case depgraph.KindNetwork:
			s.Requests++
			s.TotalBytes += n.Network.Record.TransferSize
		case depgraph.KindCPU:
			if n.ID != g.Root() {
				s.Tasks++
			}
		}
	}
	return s
}

// Summary converts the report for the markdown summarizer.
func (r Report) Summary(presets []pipeline.Preset) *summarizer.Summary {
	b := summarizer.NewBuilder().
		WithRun(r.Name, r.Metric, r.PointOfInterestUs).
		WithGraph(summarizer.GraphInfo{
			Nodes:       r.Graph.Nodes,
			Requests:    r.Graph.Requests,
			Tasks:       r.Graph.Tasks,
			TotalBytes:  r.Graph.TotalBytes,
			Diagnostics: r.Diagnostics,
		}).
		WithQuietPeriods(periodInfos(r.Idle), periodInfos(r.QuasiIdle))
	for _, p := range presets {
		b.AddPreset(summarizer.PresetInfo{
			Name:           p.Name,
			RTTMs:          p.Settings.RTTMs,
			ThroughputKbps: p.Settings.ThroughputKbps,
			CPUSlowdown:    p.Settings.CPUSlowdownMultiplier,
			MaxConnections: effectiveConnections(p.Settings),
		})
	}
	for _, e := range r.Estimates {
		b.AddEstimate(summarizer.EstimateInfo{
			Scenario: e.Scenario,
			Preset:   e.Preset,
			TotalMs:  e.TotalMs,
			Failed:   e.Failed,
			Error:    e.Error,
		})
	}
	return b.Build()
}

func effectiveConnections(s simulator.Settings) int {
	if s.MaxConnectionsPerOrigin <= 0 {
		return simulator.DefaultMaxConnectionsPerOrigin
	}
	return s.MaxConnectionsPerOrigin
}

func periodInfos(periods []quietperiod.Period) []summarizer.PeriodInfo {
	out := make([]summarizer.PeriodInfo, len(periods))
	for i, p := range periods {
		out[i] = summarizer.PeriodInfo{StartMs: p.StartMs, EndMs: p.EndMs, Ongoing: p.Ongoing}
	}
	return out
}
