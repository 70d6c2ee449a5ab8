package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/loadsim/pkg/simulator"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadsim.yaml")
	content := `
name: example
records: records.json
metric: lcp
point_of_interest_us: 2500000
presets: [mobileSlow4G, none]
custom_presets:
  - name: lab
    rtt_ms: 80
    throughput_kbps: 4096
    cpu_slowdown_multiplier: 2
    max_connections_per_origin: 4
network:
  latency_ms: 20
theme:
  cpu_color: "#010203"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Name != "example" || cfg.Metric != "lcp" || cfg.PointOfInterestUs != 2500000 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.TimeoutMs != 30000 || !cfg.Headless || cfg.Theme.NetworkColor != "#4285f4" {
		t.Errorf("defaults were lost: %+v", cfg)
	}
	if len(cfg.CustomPresets) != 1 {
		t.Fatalf("expected 1 custom preset, got %d", len(cfg.CustomPresets))
	}
	want := simulator.Settings{RTTMs: 80, ThroughputKbps: 4096, CPUSlowdownMultiplier: 2, MaxConnectionsPerOrigin: 4}
	if cfg.CustomPresets[0].Name != "lab" || cfg.CustomPresets[0].Settings != want {
		t.Errorf("custom preset = %+v", cfg.CustomPresets[0])
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("presets: {not: [a list"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#4285f4", color.RGBA{R: 0x42, G: 0x85, B: 0xf4, A: 255}},
		{"FB8C00", color.RGBA{R: 0xfb, G: 0x8c, B: 0x00, A: 255}},
		{"", color.Black},
		{"#123", color.Black},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseColor(tt.in); got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToOrchestratorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.RecordsPath = "records.json"
	cfg.Metric = "fcp"
	cfg.Presets = []string{"desktopDense4G"}
	cfg.CustomPresets = []PresetConfig{{Name: "lab", Settings: simulator.Settings{RTTMs: 10, CPUSlowdownMultiplier: 1}}}
	cfg.Theme.CPUColor = "#010203"
	cfg.Network.LatencyMs = 25

	oc, err := cfg.ToOrchestratorConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oc.Metric.Name() != "first-contentful-paint" {
		t.Errorf("metric = %s", oc.Metric.Name())
	}
	if len(oc.Presets) != 2 || oc.Presets[0].Name != "desktopDense4G" || oc.Presets[1].Name != "lab" {
		t.Errorf("presets = %+v", oc.Presets)
	}
	if oc.CPUBarColor != [4]uint8{1, 2, 3, 255} {
		t.Errorf("cpu bar color = %v", oc.CPUBarColor)
	}
	if oc.NetworkBarColor != [4]uint8{0x42, 0x85, 0xf4, 255} {
		t.Errorf("network bar color = %v", oc.NetworkBarColor)
	}
	if oc.Capture.NetworkConditions.LatencyMs != 25 || oc.Capture.TimeoutMs != 30000 {
		t.Errorf("capture = %+v", oc.Capture)
	}
}

func TestToOrchestratorConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{"unknown metric", func(c *Config) { c.Metric = "cls" }, nil},
		{"unknown preset", func(c *Config) { c.Presets = []string{"dialup"} }, nil},
		{"no presets", func(c *Config) { c.Presets = nil }, nil},
		{"unnamed custom preset", func(c *Config) {
			c.CustomPresets = []PresetConfig{{Settings: simulator.Settings{CPUSlowdownMultiplier: 1}}}
		}, nil},
		{"invalid custom preset", func(c *Config) {
			c.CustomPresets = []PresetConfig{{Name: "x", Settings: simulator.Settings{CPUSlowdownMultiplier: 0}}}
		}, simulator.ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			_, err := cfg.ToOrchestratorConfig()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
