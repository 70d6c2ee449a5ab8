// Package orchestrator coordinates all pipeline stages.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"

	"github.com/ideamans/go-l10n"
	"github.com/user/loadsim/pkg/depgraph"
	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/ports"
	"github.com/user/loadsim/pkg/quietperiod"
	"github.com/user/loadsim/pkg/scenario"
	"github.com/user/loadsim/pkg/simulator"
	"github.com/user/loadsim/pkg/summarizer"
)

// Config contains all configuration for the orchestrator.
type Config struct {
	// Input
	Name        string
	RecordsPath string
	TasksPath   string // optional

	// Output
	OutputPath  string
	SummaryPath string // optional markdown summary
	Version     string

	// Estimation
	PointOfInterestUs float64
	Metric            scenario.Metric
	Presets           []pipeline.Preset
	Workers           int

	// Waterfall style
	NetworkBarColor [4]uint8 // RGBA
	CPUBarColor     [4]uint8 // RGBA

	// Recording
	Capture CaptureConfig
}

// CaptureConfig contains the settings of a live recording.
type CaptureConfig struct {
	URL               string
	TimeoutMs         int
	QuietWindowMs     int
	NetworkConditions ports.NetworkConditions
	CPUThrottling     float64
	Headers           map[string]string

	// Browser options
	IgnoreHTTPSErrors bool
	ProxyServer       string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Name:   "page",
		Metric: scenario.Interactive,
		Presets: []pipeline.Preset{{
			Name: "mobileSlow4G",
			Settings: simulator.Settings{
				RTTMs:                   150,
				ThroughputKbps:          1638.4,
				CPUSlowdownMultiplier:   4,
				MaxConnectionsPerOrigin: simulator.DefaultMaxConnectionsPerOrigin,
			},
		}},
		Capture: CaptureConfig{
			TimeoutMs:     30000,
			QuietWindowMs: 500,
			NetworkConditions: ports.NetworkConditions{
				LatencyMs:     20,
				DownloadSpeed: 10 * 1024 * 1024 / 8,
				UploadSpeed:   5 * 1024 * 1024 / 8,
			},
			CPUThrottling: 1.0,
		},
	}
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	buildStage    pipeline.Stage[pipeline.BuildInput, pipeline.BuildResult]
	deriveStage   pipeline.Stage[pipeline.DeriveInput, pipeline.DeriveResult]
	simulateStage pipeline.Stage[pipeline.SimulateInput, pipeline.SimulateResult]
	captureStage  pipeline.Stage[pipeline.CaptureInput, pipeline.CaptureResult]
	fs            ports.FileSystem
	sink          ports.DebugSink
	renderer      ports.WaterfallRenderer
	logger        ports.Logger
}

// New creates a new Orchestrator. The capture stage may be nil when only
// recorded loads are estimated.
func New(
	buildStage pipeline.Stage[pipeline.BuildInput, pipeline.BuildResult],
	deriveStage pipeline.Stage[pipeline.DeriveInput, pipeline.DeriveResult],
	simulateStage pipeline.Stage[pipeline.SimulateInput, pipeline.SimulateResult],
	captureStage pipeline.Stage[pipeline.CaptureInput, pipeline.CaptureResult],
	fs ports.FileSystem,
	sink ports.DebugSink,
	renderer ports.WaterfallRenderer,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		buildStage:    buildStage,
		deriveStage:   deriveStage,
		simulateStage: simulateStage,
		captureStage:  captureStage,
		fs:            fs,
		sink:          sink,
		renderer:      renderer,
		logger:        logger,
	}
}

// Run estimates a recorded page load and writes the report.
func (o *Orchestrator) Run(ctx context.Context, config Config) (Report, error) {
	o.logger.Info(l10n.T("Starting pipeline"))
	if config.Metric == nil {
		return Report{}, fmt.Errorf("configure a metric: %w", scenario.ErrNoMetric)
	}

	// 1. Load records
	records, tasks, err := o.loadInput(config)
	if err != nil {
		o.logger.Error(l10n.F("Failed to read records: %s", err))
		return Report{}, err
	}
	o.logger.Info(l10n.F("Loaded %d requests and %d tasks", len(records), len(tasks)))

	// 2. Build graph
	built, err := o.buildStage.Execute(ctx, pipeline.BuildInput{
		Name:    config.Name,
		Records: records,
		Tasks:   tasks,
	})
	if err != nil {
		o.logger.Error(l10n.F("Failed to build dependency graph: %s", err))
		return Report{}, fmt.Errorf("build stage: %w", err)
	}
	o.logger.Info(l10n.F("Dependency graph built: %d nodes", built.Graph.Len()))
	for _, d := range built.Diagnostics {
		o.logger.Warn(l10n.F("Graph diagnostic: %s", d))
	}
	o.saveGraph(config.Name, built.Graph)

	// 3. Derive scenarios
	derived, err := o.deriveStage.Execute(ctx, pipeline.DeriveInput{
		Graph:             built.Graph,
		PointOfInterestUs: config.PointOfInterestUs,
		Metric:            config.Metric,
	})
	if err != nil {
		o.logger.Error(l10n.F("Failed to derive scenarios: %s", err))
		return Report{}, fmt.Errorf("derive stage: %w", err)
	}
	variants := derived.Variants.All()
	for _, v := range variants {
		o.logger.Info(l10n.F("Scenario %s: %d nodes (%d excluded)", v.Name(), v.Graph.Len(), v.Excluded))
		o.saveGraph(v.Name(), v.Graph)
	}

	// 4. Simulate
	o.logger.Info(l10n.F("Simulating %d scenarios under %d presets", len(variants), len(config.Presets)))
	simulated, err := o.simulateStage.Execute(ctx, pipeline.SimulateInput{
		Variants: variants,
		Presets:  config.Presets,
		Workers:  config.Workers,
	})
	if err != nil {
		o.logger.Error(l10n.F("Failed to simulate scenarios: %s", err))
		return Report{}, fmt.Errorf("simulate stage: %w", err)
	}
	for _, est := range simulated.Estimates {
		if est.Failed {
			o.logger.Warn(l10n.F("%s could not be estimated: %s", est.Key(), est.Error))
			continue
		}
		o.logger.Info(l10n.F("%s: %.0f ms", est.Key(), est.TotalMs))
		o.saveTimings(config, est)
	}

	// 5. Report
	report := Report{
		Name:              config.Name,
		Metric:            config.Metric.Name(),
		PointOfInterestUs: config.PointOfInterestUs,
		Graph:             statsOf(built.Graph),
		Diagnostics:       built.Diagnostics,
		Idle:              nonNil(quietperiod.Find(records, quietperiod.IdleThreshold, o.logger)),
		QuasiIdle:         nonNil(quietperiod.Find(records, quietperiod.QuasiIdleThreshold, o.logger)),
		Estimates:         simulated.Estimates,
		Timings:           make(map[string]*simulator.Result),
	}
	for _, est := range simulated.Estimates {
		if est.Result != nil {
			report.Timings[est.Key()] = est.Result
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return Report{}, fmt.Errorf("encode report: %w", err)
	}
	if err := o.fs.WriteFile(config.OutputPath, data); err != nil {
		o.logger.Error(l10n.F("Failed to write output: %s", err))
		return Report{}, fmt.Errorf("write output: %w", err)
	}

	// 6. Summary
	if config.SummaryPath != "" {
		writer := summarizer.NewWriter(o.fs, summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(l10n.T),
			summarizer.WithVersion(config.Version),
		))
		if err := writer.Write(config.SummaryPath, report.Summary(config.Presets)); err != nil {
			o.logger.Error(l10n.F("Failed to write summary: %s", err))
			return Report{}, fmt.Errorf("write summary: %w", err)
		}
	}

	o.logger.Info(l10n.T("Pipeline completed successfully"))
	return report, nil
}

// Capture records a live page load and writes its records to
// config.RecordsPath.
func (o *Orchestrator) Capture(ctx context.Context, config Config) (pipeline.CaptureResult, error) {
	if o.captureStage == nil {
		return pipeline.CaptureResult{}, fmt.Errorf("capture is not available")
	}
	o.logger.Info(l10n.F("Capturing %s", config.Capture.URL))

	input := pipeline.DefaultCaptureInput()
	input.URL = config.Capture.URL
	if config.Capture.TimeoutMs > 0 {
		input.TimeoutMs = config.Capture.TimeoutMs
	}
	if config.Capture.QuietWindowMs > 0 {
		input.QuietWindowMs = config.Capture.QuietWindowMs
	}
	input.NetworkConditions = config.Capture.NetworkConditions
	input.CPUThrottling = config.Capture.CPUThrottling
	input.Headers = config.Capture.Headers
	input.IgnoreHTTPSErrors = config.Capture.IgnoreHTTPSErrors
	input.ProxyServer = config.Capture.ProxyServer

	result, err := o.captureStage.Execute(ctx, input)
	if err != nil {
		o.logger.Error(l10n.F("Failed to capture page: %s", err))
		return pipeline.CaptureResult{}, fmt.Errorf("capture stage: %w", err)
	}
	if result.TimedOut {
		o.logger.Warn(l10n.F("Capture timed out after %d ms", input.TimeoutMs))
	}
	o.logger.Info(l10n.F("Captured %d requests in %d ms", len(result.Records), result.DurationMs))

	data, err := netrecord.EncodeRecords(result.Records)
	if err != nil {
		return pipeline.CaptureResult{}, fmt.Errorf("encode records: %w", err)
	}
	if err := o.fs.WriteFile(config.RecordsPath, data); err != nil {
		o.logger.Error(l10n.F("Failed to write output: %s", err))
		return pipeline.CaptureResult{}, fmt.Errorf("write records: %w", err)
	}
	return result, nil
}

// QuietPeriods reports the idle and quasi-idle periods of the recorded load
// in config.RecordsPath.
func (o *Orchestrator) QuietPeriods(config Config) (QuietReport, error) {
	data, err := o.fs.ReadFile(config.RecordsPath)
	if err != nil {
		return QuietReport{}, fmt.Errorf("read records: %w", err)
	}
	records, err := netrecord.DecodeRecords(data)
	if err != nil {
		return QuietReport{}, err
	}
	return QuietReport{
		Idle:      nonNil(quietperiod.Find(records, quietperiod.IdleThreshold, o.logger)),
		QuasiIdle: nonNil(quietperiod.Find(records, quietperiod.QuasiIdleThreshold, o.logger)),
	}, nil
}

func (o *Orchestrator) loadInput(config Config) ([]netrecord.Record, []netrecord.Task, error) {
	data, err := o.fs.ReadFile(config.RecordsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read records: %w", err)
	}
	records, err := netrecord.DecodeRecords(data)
	if err != nil {
		return nil, nil, err
	}
	if config.TasksPath == "" {
		return records, nil, nil
	}
	data, err = o.fs.ReadFile(config.TasksPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read tasks: %w", err)
	}
	tasks, err := netrecord.DecodeTasks(data)
	if err != nil {
		return nil, nil, err
	}
	return records, tasks, nil
}

func (o *Orchestrator) saveGraph(name string, g *depgraph.Graph) {
	if !o.sink.Enabled() {
		return
	}
	if data, err := json.MarshalIndent(g, "", "  "); err == nil {
		o.sink.SaveGraphJSON(name, data)
	}
}

func (o *Orchestrator) saveTimings(config Config, est pipeline.Estimate) {
	if !o.sink.Enabled() || est.Result == nil {
		return
	}
	if data, err := json.MarshalIndent(est.Result, "", "  "); err == nil {
		o.sink.SaveTimingJSON(est.Key(), data)
	}
	bars := waterfallBars(est.Result,
		barColor(config.NetworkBarColor, defaultNetworkColor),
		barColor(config.CPUBarColor, defaultCPUColor))
	img := o.renderer.RenderWaterfall(est.Key(), bars, est.TotalMs)
	o.sink.SaveWaterfall(est.Key(), img)
}

var (
	defaultNetworkColor = color.RGBA{R: 66, G: 133, B: 244, A: 255}
	defaultCPUColor     = color.RGBA{R: 251, G: 140, B: 0, A: 255}
)

// waterfallBars lays the timing table out in simulated start order. The
// zero-length root is left out.
func waterfallBars(r *simulator.Result, networkColor, cpuColor color.Color) []ports.WaterfallBar {
	var bars []ports.WaterfallBar
	for _, t := range r.Ordered() {
		if t.Key == depgraph.RootKey {
			continue
		}
		c := networkColor
		if t.Kind == depgraph.KindCPU.String() {
			c = cpuColor
		}
		bars = append(bars, ports.WaterfallBar{
			Label:   t.Label,
			StartMs: t.StartMs,
			EndMs:   t.EndMs,
			Color:   c,
		})
	}
	return bars
}

func barColor(c [4]uint8, fallback color.RGBA) color.RGBA {
	if c == [4]uint8{} {
		return fallback
	}
	return rgbaFromArray(c)
}

func rgbaFromArray(c [4]uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

func nonNil(periods []quietperiod.Period) []quietperiod.Period {
	if periods == nil {
		return []quietperiod.Period{}
	}
	return periods
}
