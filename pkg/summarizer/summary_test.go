package summarizer

import (
	"testing"
	"time"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithRun(t *testing.T) {
	summary := NewBuilder().
		WithRun("example", "interactive", 1500000).
		Build()

	if summary.Run.Name != "example" {
		t.Errorf("expected name 'example', got '%s'", summary.Run.Name)
	}
	if summary.Run.Metric != "interactive" {
		t.Errorf("expected metric 'interactive', got '%s'", summary.Run.Metric)
	}
	if summary.Run.PointOfInterestMs != 1500 {
		t.Errorf("expected point of interest 1500 ms, got %v", summary.Run.PointOfInterestMs)
	}
}

func TestBuilder_WithGraph(t *testing.T) {
	summary := NewBuilder().
		WithGraph(GraphInfo{Nodes: 10, Requests: 7, Tasks: 2, TotalBytes: 4096}).
		Build()

	if summary.Graph.Nodes != 10 || summary.Graph.Requests != 7 || summary.Graph.Tasks != 2 {
		t.Errorf("unexpected graph info: %+v", summary.Graph)
	}
	if summary.Graph.TotalBytes != 4096 {
		t.Errorf("expected TotalBytes 4096, got %d", summary.Graph.TotalBytes)
	}
}

func TestBuilder_AddEstimate(t *testing.T) {
	summary := NewBuilder().
		AddEstimate(EstimateInfo{Scenario: "optimistic-interactive", Preset: "mobileSlow4G", TotalMs: 1200}).
		AddEstimate(EstimateInfo{Scenario: "pessimistic-interactive", Preset: "mobileSlow4G", Failed: true, Error: "boom"}).
		Build()

	if len(summary.Estimates) != 2 {
		t.Fatalf("expected 2 estimates, got %d", len(summary.Estimates))
	}
	if summary.Estimates[0].TotalMs != 1200 {
		t.Errorf("expected 1200 ms, got %v", summary.Estimates[0].TotalMs)
	}
	if !summary.Estimates[1].Failed {
		t.Error("expected second estimate to be failed")
	}
}

func TestBuilder_Chaining(t *testing.T) {
	summary := NewBuilder().
		WithRun("example", "lcp", 0).
		AddPreset(PresetInfo{Name: "none", CPUSlowdown: 1}).
		WithQuietPeriods(
			[]PeriodInfo{{StartMs: 400, Ongoing: true}},
			[]PeriodInfo{{StartMs: 0, EndMs: 50}, {StartMs: 300, Ongoing: true}},
		).
		Build()

	if len(summary.Presets) != 1 || summary.Presets[0].Name != "none" {
		t.Errorf("unexpected presets: %+v", summary.Presets)
	}
	if len(summary.Idle) != 1 || len(summary.QuasiIdle) != 2 {
		t.Errorf("unexpected quiet periods: %+v / %+v", summary.Idle, summary.QuasiIdle)
	}
}
