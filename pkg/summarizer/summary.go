// Package summarizer provides summary generation for estimate runs.
package summarizer

import "time"

// Summary contains everything reported about one estimate run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Run information
	Run RunInfo

	// Dependency graph statistics
	Graph GraphInfo

	// Throttling presets the scenarios ran under
	Presets []PresetInfo

	// Scenario results, in report order
	Estimates []EstimateInfo

	// Quiet periods of the recorded load
	Idle      []PeriodInfo
	QuasiIdle []PeriodInfo
}

// RunInfo identifies the recorded load and the metric estimated.
type RunInfo struct {
	Name              string
	Metric            string
	PointOfInterestMs float64
}

// GraphInfo contains statistics of the dependency graph.
type GraphInfo struct {
	Nodes       int
	Requests    int
	Tasks       int
	TotalBytes  int64
	Diagnostics []string
}

// PresetInfo describes one throttling preset.
type PresetInfo struct {
	Name           string
	RTTMs          float64
	ThroughputKbps float64 // 0 = unthrottled
	CPUSlowdown    float64
	MaxConnections int
}

// EstimateInfo is the outcome of one scenario run.
type EstimateInfo struct {
	Scenario string
	Preset   string
	TotalMs  float64
	Failed   bool
	Error    string
}

// PeriodInfo is one quiet period. EndMs is meaningless when Ongoing.
type PeriodInfo struct {
	StartMs float64
	EndMs   float64
	Ongoing bool
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithRun sets the run information. The point of interest is given in
// microseconds.
func (b *Builder) WithRun(name, metric string, pointOfInterestUs float64) *Builder {
	b.summary.Run = RunInfo{
		Name:              name,
		Metric:            metric,
		PointOfInterestMs: pointOfInterestUs / 1000,
	}
	return b
}

// WithGraph sets the graph statistics.
func (b *Builder) WithGraph(graph GraphInfo) *Builder {
	b.summary.Graph = graph
	return b
}

// AddPreset appends a throttling preset.
func (b *Builder) AddPreset(preset PresetInfo) *Builder {
	b.summary.Presets = append(b.summary.Presets, preset)
	return b
}

// AddEstimate appends a scenario result.
func (b *Builder) AddEstimate(estimate EstimateInfo) *Builder {
	b.summary.Estimates = append(b.summary.Estimates, estimate)
	return b
}

// WithQuietPeriods sets the idle and quasi-idle periods.
func (b *Builder) WithQuietPeriods(idle, quasiIdle []PeriodInfo) *Builder {
	b.summary.Idle = idle
	b.summary.QuasiIdle = quasiIdle
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
