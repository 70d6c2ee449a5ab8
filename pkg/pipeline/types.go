package pipeline

import (
	"github.com/user/loadsim/pkg/depgraph"
	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/ports"
	"github.com/user/loadsim/pkg/quietperiod"
	"github.com/user/loadsim/pkg/scenario"
	"github.com/user/loadsim/pkg/simulator"
)

// =============================================================================
// Build Stage Types
// =============================================================================

// BuildInput is one recorded page load.
type BuildInput struct {
	Name    string
	Records []netrecord.Record
	Tasks   []netrecord.Task
}

// BuildResult contains the dependency graph of the load.
type BuildResult struct {
	Graph *depgraph.Graph
	// Diagnostics lists the edges dropped to keep the graph acyclic.
	Diagnostics []string
}

// =============================================================================
// Derive Stage Types
// =============================================================================

// DeriveInput selects the metric the variants bound.
type DeriveInput struct {
	Graph             *depgraph.Graph
	PointOfInterestUs float64
	Metric            scenario.Metric
}

// DeriveResult contains the derived graph variants.
type DeriveResult struct {
	Variants scenario.Variants
}

// =============================================================================
// Simulate Stage Types
// =============================================================================

// Preset is a named set of throttling settings.
type Preset struct {
	Name     string
	Settings simulator.Settings
}

// SimulateInput pairs every variant with every preset.
type SimulateInput struct {
	Variants []scenario.Variant
	Presets  []Preset
	// Workers bounds the number of concurrent runs (0 = one per CPU).
	Workers int
}

// Estimate is the outcome of one (variant, preset) run. A failed run carries
// the error instead of a timing table.
type Estimate struct {
	Scenario string             `json:"scenario"`
	Kind     scenario.Kind      `json:"kind"`
	Preset   string             `json:"preset"`
	Settings simulator.Settings `json:"settings"`
	TotalMs  float64            `json:"total_completion_ms"`
	Failed   bool               `json:"failed,omitempty"`
	Error    string             `json:"error,omitempty"`

	Result *simulator.Result `json:"-"`
}

// Key returns the name the estimate is reported under.
func (e Estimate) Key() string {
	return e.Scenario + "/" + e.Preset
}

// SimulateResult contains one estimate per run, in input order.
type SimulateResult struct {
	Estimates []Estimate
}

// =============================================================================
// Capture Stage Types
// =============================================================================

// CaptureInput contains parameters for recording a live page load.
type CaptureInput struct {
	URL               string
	TimeoutMs         int
	QuietWindowMs     int // Stop once the network has been idle this long
	NetworkConditions ports.NetworkConditions
	CPUThrottling     float64
	Headers           map[string]string
	IgnoreHTTPSErrors bool
	ProxyServer       string
}

// DefaultCaptureInput returns CaptureInput with default values.
func DefaultCaptureInput() CaptureInput {
	return CaptureInput{
		TimeoutMs:     30000,
		QuietWindowMs: 500,
	}
}

// CaptureResult contains the normalized records of the load.
type CaptureResult struct {
	Records []netrecord.Record
	// Idle and QuasiIdle are the quiet periods with at most 0 and 2 requests
	// in flight.
	Idle       []quietperiod.Period
	QuasiIdle  []quietperiod.Period
	DurationMs int
	TimedOut   bool
	// QuasiIdleAtMs is when the live monitor first saw the network quasi-idle
	// for the quiet window; meaningful only when QuasiIdleReached.
	QuasiIdleAtMs    float64
	QuasiIdleReached bool
}
