// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"

	"github.com/user/loadsim/pkg/loadsim"
	"github.com/user/loadsim/pkg/orchestrator"
	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/ports"
	"github.com/user/loadsim/pkg/scenario"
	"github.com/user/loadsim/pkg/simulator"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for loadsim.
type Config struct {
	// Input/Output
	Name        string `yaml:"name"`
	RecordsPath string `yaml:"records"`
	TasksPath   string `yaml:"tasks"`
	OutputPath  string `yaml:"output"`
	SummaryPath string `yaml:"summary"`

	// Estimation
	Metric            string         `yaml:"metric"`
	PointOfInterestUs float64        `yaml:"point_of_interest_us"`
	Presets           []string       `yaml:"presets"`
	CustomPresets     []PresetConfig `yaml:"custom_presets"`
	Workers           int            `yaml:"workers"`

	// Recording
	URL           string            `yaml:"url"`
	TimeoutMs     int               `yaml:"timeout_ms"`
	QuietWindowMs int               `yaml:"quiet_window_ms"`
	Network       NetworkConfig     `yaml:"network"`
	CPUThrottling float64           `yaml:"cpu_throttling"`
	Headers       map[string]string `yaml:"headers"`
	UserAgent     string            `yaml:"user_agent"`
	Headless      bool              `yaml:"headless"`
	ChromePath    string            `yaml:"chrome_path"`

	// Waterfall
	Theme ThemeConfig `yaml:"theme"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// PresetConfig is a throttling preset defined in the file.
type PresetConfig struct {
	Name     string             `yaml:"name"`
	Settings simulator.Settings `yaml:",inline"`
}

// NetworkConfig represents network throttling settings of a recording.
type NetworkConfig struct {
	LatencyMs     int  `yaml:"latency_ms"`
	DownloadSpeed int  `yaml:"download_speed"`
	UploadSpeed   int  `yaml:"upload_speed"`
	Offline       bool `yaml:"offline"`
}

// ThemeConfig represents waterfall colours.
type ThemeConfig struct {
	NetworkColor string `yaml:"network_color"`
	CPUColor     string `yaml:"cpu_color"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Name:       "page",
		OutputPath: "report.json",

		// Estimation
		Metric:  "interactive",
		Presets: []string{string(loadsim.PresetMobileSlow4G)},

		// Recording
		TimeoutMs:     30000,
		QuietWindowMs: 500,
		CPUThrottling: 1.0,
		Headless:      true,

		// Waterfall
		Theme: ThemeConfig{
			NetworkColor: "#4285f4",
			CPUColor:     "#fb8c00",
		},

		// Debug
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	if len(hex) == 0 {
		return color.Black
	}

	if hex[0] == '#' {
		hex = hex[1:]
	}

	if len(hex) != 6 {
		return color.Black
	}

	r := hexValue(hex[0])<<4 | hexValue(hex[1])
	g := hexValue(hex[2])<<4 | hexValue(hex[3])
	b := hexValue(hex[4])<<4 | hexValue(hex[5])

	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

func colorToArray(c color.Color) [4]uint8 {
	r, g, b, a := c.RGBA()
	return [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

// ResolvePresets returns the named presets followed by the custom ones.
func (c Config) ResolvePresets() ([]pipeline.Preset, error) {
	var out []pipeline.Preset
	for _, name := range c.Presets {
		s, ok := loadsim.GetPresetSettings(loadsim.Preset(name))
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (known: %v)", name, loadsim.PresetNames())
		}
		out = append(out, pipeline.Preset{Name: name, Settings: s})
	}
	for _, p := range c.CustomPresets {
		if p.Name == "" {
			return nil, fmt.Errorf("custom preset without a name")
		}
		if err := p.Settings.Validate(); err != nil {
			return nil, fmt.Errorf("custom preset %s: %w", p.Name, err)
		}
		out = append(out, pipeline.Preset{Name: p.Name, Settings: p.Settings})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no throttling presets")
	}
	return out, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() (orchestrator.Config, error) {
	metric, err := scenario.ParseMetric(c.Metric)
	if err != nil {
		return orchestrator.Config{}, err
	}
	presets, err := c.ResolvePresets()
	if err != nil {
		return orchestrator.Config{}, err
	}

	return orchestrator.Config{
		Name:        c.Name,
		RecordsPath: c.RecordsPath,
		TasksPath:   c.TasksPath,
		OutputPath:  c.OutputPath,
		SummaryPath: c.SummaryPath,

		PointOfInterestUs: c.PointOfInterestUs,
		Metric:            metric,
		Presets:           presets,
		Workers:           c.Workers,

		NetworkBarColor: colorToArray(ParseColor(c.Theme.NetworkColor)),
		CPUBarColor:     colorToArray(ParseColor(c.Theme.CPUColor)),

		Capture: orchestrator.CaptureConfig{
			URL:           c.URL,
			TimeoutMs:     c.TimeoutMs,
			QuietWindowMs: c.QuietWindowMs,
			NetworkConditions: ports.NetworkConditions{
				LatencyMs:     c.Network.LatencyMs,
				DownloadSpeed: c.Network.DownloadSpeed,
				UploadSpeed:   c.Network.UploadSpeed,
				Offline:       c.Network.Offline,
			},
			CPUThrottling: c.CPUThrottling,
			Headers:       c.Headers,
		},
	}, nil
}

// BrowserOptions returns the browser launch settings of a recording.
func (c Config) BrowserOptions() ports.BrowserOptions {
	return ports.BrowserOptions{
		Headless:   c.Headless,
		ChromePath: c.ChromePath,
		UserAgent:  c.UserAgent,
		Headers:    c.Headers,
	}
}
