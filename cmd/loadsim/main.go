// Package main provides the CLI entry point for loadsim.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/user/loadsim/pkg/adapters/chromebrowser"
	"github.com/user/loadsim/pkg/adapters/filesink"
	"github.com/user/loadsim/pkg/adapters/ggrenderer"
	"github.com/user/loadsim/pkg/adapters/logger"
	"github.com/user/loadsim/pkg/adapters/nullsink"
	"github.com/user/loadsim/pkg/adapters/osfilesystem"
	"github.com/user/loadsim/pkg/config"
	"github.com/user/loadsim/pkg/loadsim"
	"github.com/user/loadsim/pkg/orchestrator"
	"github.com/user/loadsim/pkg/ports"
	"github.com/user/loadsim/pkg/simulator"
	"github.com/user/loadsim/pkg/stages/build"
	"github.com/user/loadsim/pkg/stages/capture"
	"github.com/user/loadsim/pkg/stages/derive"
	"github.com/user/loadsim/pkg/stages/simulate"
)

var version = "dev"

func main() {
	// A missing .env file is fine; flags and the environment still apply.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "loadsim",
		Usage:   l10n.T("Estimate page load timings under simulated network and CPU conditions"),
		Version: version,
		Commands: []*cli.Command{
			estimateCommand(),
			captureCommand(),
			quietCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("loadsim version %s", version))
					return nil
				},
			},
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Value:    "info",
			EnvVars:  []string{"LOADSIM_LOG_LEVEL"},
			Usage:    l10n.T("Log level (debug, info, warn, error)"),
			Category: l10n.T("Logging"),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"Q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T("Logging"),
		},
	}
}

func newLogger(c *cli.Context) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(c.String("log-level")))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func estimateCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Input")},
		&cli.StringFlag{Name: "records", Aliases: []string{"r"}, Usage: l10n.T("Network records JSON file"), Category: l10n.T("Input")},
		&cli.StringFlag{Name: "tasks", Aliases: []string{"t"}, Usage: l10n.T("Main-thread tasks JSON file"), Category: l10n.T("Input")},
		&cli.StringFlag{Name: "name", Value: "page", Usage: l10n.T("Name of the recorded load"), Category: l10n.T("Input")},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "report.json", Usage: l10n.T("Output report JSON path"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "summary", Aliases: []string{"s"}, Usage: l10n.T("Output execution summary to file (Markdown format)"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "device", Value: "mobile", Usage: l10n.T("Device defaults (mobile, desktop)"), Category: l10n.T("Estimation")},
		&cli.StringFlag{Name: "metric", Aliases: []string{"m"}, Usage: l10n.T("Metric to estimate (fcp, lcp, interactive)"), Category: l10n.T("Estimation")},
		&cli.Float64Flag{Name: "poi-us", Usage: l10n.T("When the metric was observed, in microseconds since navigation start"), Category: l10n.T("Estimation")},
		&cli.StringSliceFlag{Name: "preset", Aliases: []string{"p"}, Usage: l10n.F("Throttling preset, repeatable (%s)", strings.Join(loadsim.PresetNames(), ", ")), Category: l10n.T("Estimation")},
		&cli.IntFlag{Name: "workers", Usage: l10n.T("Concurrent scenario runs (0 = one per CPU)"), Category: l10n.T("Estimation")},
		&cli.Float64Flag{Name: "rtt", Usage: l10n.T("Custom preset round-trip time in milliseconds"), Category: l10n.T("Custom Preset")},
		&cli.Float64Flag{Name: "throughput", Usage: l10n.T("Custom preset throughput in Mbps (0 = unlimited)"), Category: l10n.T("Custom Preset")},
		&cli.Float64Flag{Name: "cpu-slowdown", Usage: l10n.T("Custom preset CPU slowdown factor"), Category: l10n.T("Custom Preset")},
		&cli.IntFlag{Name: "max-connections", Usage: l10n.T("Custom preset connections per origin"), Category: l10n.T("Custom Preset")},
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Enable debug output"), Category: l10n.T("Debug")},
		&cli.StringFlag{Name: "debug-dir", Value: "./debug", Usage: l10n.T("Directory for debug output"), Category: l10n.T("Debug")},
	}

	return &cli.Command{
		Name:   "estimate",
		Usage:  l10n.T("Estimate metric timings from a recorded page load"),
		Flags:  append(flags, loggingFlags()...),
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	log := newLogger(c)
	ctx, cancel := signalContext(c.Context, log)
	defer cancel()

	orchConfig, debug, debugDir, err := estimateConfig(c)
	if err != nil {
		return err
	}
	if orchConfig.RecordsPath == "" {
		return cli.Exit(l10n.T("Records file is required"), 2)
	}

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var sink ports.DebugSink
	if debug {
		if err := fs.MkdirAll(debugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(debugDir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	orch := orchestrator.New(
		build.New(log),
		derive.New(log),
		simulate.New(log, simulator.NewCache()),
		nil,
		fs,
		sink,
		renderer,
		log,
	)

	log.Info(l10n.F("Estimating %s (%s metric)...", orchConfig.RecordsPath, orchConfig.Metric.Name()))
	if _, err := orch.Run(ctx, orchConfig); err != nil {
		return err
	}

	log.Info(l10n.F("Output saved to %s", orchConfig.OutputPath))
	if orchConfig.SummaryPath != "" {
		log.Info(l10n.F("Summary saved to %s", orchConfig.SummaryPath))
	}
	return nil
}

// estimateConfig builds the run configuration from --config when given, else
// from the device defaults; explicit flags override either.
func estimateConfig(c *cli.Context) (orchestrator.Config, bool, string, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return orchestrator.Config{}, false, "", fmt.Errorf("load config: %w", err)
		}
		overrideString(c, "records", &cfg.RecordsPath)
		overrideString(c, "tasks", &cfg.TasksPath)
		overrideString(c, "name", &cfg.Name)
		overrideString(c, "output", &cfg.OutputPath)
		overrideString(c, "summary", &cfg.SummaryPath)
		overrideString(c, "metric", &cfg.Metric)
		overrideString(c, "debug-dir", &cfg.DebugDir)
		if c.IsSet("poi-us") {
			cfg.PointOfInterestUs = c.Float64("poi-us")
		}
		if c.IsSet("preset") {
			cfg.Presets = c.StringSlice("preset")
		}
		if c.IsSet("workers") {
			cfg.Workers = c.Int("workers")
		}
		orchConfig, err := cfg.ToOrchestratorConfig()
		if err != nil {
			return orchestrator.Config{}, false, "", err
		}
		orchConfig.Version = version
		return orchConfig, cfg.Debug || c.Bool("debug"), cfg.DebugDir, nil
	}

	var builder *loadsim.ConfigBuilder
	switch c.String("device") {
	case "desktop":
		builder = loadsim.NewDesktopConfigBuilder()
	default:
		builder = loadsim.NewConfigBuilder()
	}
	if c.IsSet("metric") {
		builder.WithMetric(c.String("metric"))
	}
	if c.IsSet("poi-us") {
		builder.WithPointOfInterestUs(c.Float64("poi-us"))
	}
	if c.IsSet("preset") {
		names := c.StringSlice("preset")
		presets := make([]loadsim.Preset, 0, len(names))
		for _, name := range names {
			if _, ok := loadsim.GetPresetSettings(loadsim.Preset(name)); !ok {
				return orchestrator.Config{}, false, "", fmt.Errorf("%s", l10n.F("Unknown preset: %s", name))
			}
			presets = append(presets, loadsim.Preset(name))
		}
		builder.WithPresets(presets...)
	}
	if c.IsSet("workers") {
		builder.WithWorkers(c.Int("workers"))
	}
	if c.IsSet("rtt") {
		builder.WithRTT(c.Float64("rtt"))
	}
	if c.IsSet("throughput") {
		builder.WithThroughputKbps(loadsim.MbpsToKbps(c.Float64("throughput")))
	}
	if c.IsSet("cpu-slowdown") {
		builder.WithCPUSlowdown(c.Float64("cpu-slowdown"))
	}
	if c.IsSet("max-connections") {
		builder.WithMaxConnections(c.Int("max-connections"))
	}

	orchConfig, err := builder.Build().ToOrchestratorConfig(
		c.String("name"), c.String("records"), c.String("tasks"), c.String("output"))
	if err != nil {
		return orchestrator.Config{}, false, "", err
	}
	orchConfig.SummaryPath = c.String("summary")
	orchConfig.Version = version
	return orchConfig, c.Bool("debug"), c.String("debug-dir"), nil
}

func overrideString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func captureCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Input")},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "records.json", Usage: l10n.T("Output records JSON path"), Category: l10n.T("Output")},
		&cli.IntFlag{Name: "timeout", Value: 30, Usage: l10n.T("Recording timeout in seconds"), Category: l10n.T("Capture")},
		&cli.IntFlag{Name: "quiet-window", Value: 500, Usage: l10n.T("Network idle time that ends the capture, in milliseconds"), Category: l10n.T("Capture")},
		&cli.IntFlag{Name: "latency", Usage: l10n.T("Capture latency in milliseconds"), Category: l10n.T("Performance Emulation")},
		&cli.Float64Flag{Name: "download-speed", Usage: l10n.T("Download speed in Mbps (0 = unlimited)"), Category: l10n.T("Performance Emulation")},
		&cli.Float64Flag{Name: "upload-speed", Usage: l10n.T("Upload speed in Mbps (0 = unlimited)"), Category: l10n.T("Performance Emulation")},
		&cli.Float64Flag{Name: "cpu-throttling", Usage: l10n.T("CPU slowdown factor (1.0 = no throttling, 4.0 = 4x slower)"), Category: l10n.T("Performance Emulation")},
		&cli.BoolFlag{Name: "no-headless", Usage: l10n.T("Run browser in non-headless mode"), Category: l10n.T("Browser")},
		&cli.StringFlag{Name: "chrome-path", EnvVars: []string{"LOADSIM_CHROME_PATH", chromebrowser.ChromePathEnv}, Usage: l10n.T("Path to Chrome executable"), Category: l10n.T("Browser")},
		&cli.StringFlag{Name: "user-agent", Usage: l10n.T("User agent override"), Category: l10n.T("Browser")},
		&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: l10n.T("Extra request header as \"Name: value\", repeatable"), Category: l10n.T("Browser")},
		&cli.BoolFlag{Name: "ignore-https-errors", Usage: l10n.T("Ignore HTTPS certificate errors"), Category: l10n.T("Browser")},
		&cli.StringFlag{Name: "proxy-server", Usage: l10n.T("HTTP proxy server (e.g., http://proxy:8080)"), Category: l10n.T("Browser")},
		&cli.BoolFlag{Name: "no-incognito", Usage: l10n.T("Disable incognito mode"), Category: l10n.T("Browser")},
	}

	return &cli.Command{
		Name:      "capture",
		Usage:     l10n.T("Record the network requests of a page load"),
		ArgsUsage: "URL",
		Flags:     append(flags, loggingFlags()...),
		Action:    runCapture,
	}
}

func runCapture(c *cli.Context) error {
	url := c.Args().First()
	if url == "" {
		return cli.Exit(l10n.T("URL argument is required"), 2)
	}
	log := newLogger(c)
	ctx, cancel := signalContext(c.Context, log)
	defer cancel()

	orchConfig, browserOpts, err := captureConfig(c)
	if err != nil {
		return err
	}
	orchConfig.Capture.URL = url

	fs := osfilesystem.New()
	orch := orchestrator.New(
		build.New(log),
		derive.New(log),
		simulate.New(log, simulator.NewCache()),
		capture.New(chromebrowser.New(), log, browserOpts),
		fs,
		nullsink.New(),
		ggrenderer.New(),
		log,
	)

	result, err := orch.Capture(ctx, orchConfig)
	if err != nil {
		return err
	}
	log.Info(l10n.F("Idle periods: %d, quasi-idle periods: %d", len(result.Idle), len(result.QuasiIdle)))
	log.Info(l10n.F("Output saved to %s", orchConfig.RecordsPath))
	return nil
}

func captureConfig(c *cli.Context) (orchestrator.Config, ports.BrowserOptions, error) {
	headers, err := parseHeaders(c.StringSlice("header"))
	if err != nil {
		return orchestrator.Config{}, ports.BrowserOptions{}, err
	}

	if path := c.String("config"); path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return orchestrator.Config{}, ports.BrowserOptions{}, fmt.Errorf("load config: %w", err)
		}
		if c.IsSet("output") {
			cfg.RecordsPath = c.String("output")
		}
		if cfg.RecordsPath == "" {
			cfg.RecordsPath = c.String("output")
		}
		if c.IsSet("chrome-path") {
			cfg.ChromePath = c.String("chrome-path")
		}
		if len(headers) > 0 {
			cfg.Headers = headers
		}
		orchConfig, err := cfg.ToOrchestratorConfig()
		if err != nil {
			return orchestrator.Config{}, ports.BrowserOptions{}, err
		}
		opts := cfg.BrowserOptions()
		opts.Incognito = !c.Bool("no-incognito")
		return orchConfig, opts, nil
	}

	builder := loadsim.NewConfigBuilder().
		WithTimeoutSec(c.Int("timeout")).
		WithQuietWindowMs(c.Int("quiet-window")).
		WithIgnoreHTTPSErrors(c.Bool("ignore-https-errors")).
		WithProxyServer(c.String("proxy-server"))
	if c.IsSet("latency") {
		builder.WithLatency(c.Int("latency"))
	}
	if c.IsSet("download-speed") {
		builder.WithDownloadSpeed(loadsim.MbpsToBytes(c.Float64("download-speed")))
	}
	if c.IsSet("upload-speed") {
		builder.WithUploadSpeed(loadsim.MbpsToBytes(c.Float64("upload-speed")))
	}
	if c.IsSet("cpu-throttling") {
		builder.WithCPUThrottling(c.Float64("cpu-throttling"))
	}

	orchConfig, err := builder.Build().ToOrchestratorConfig("page", c.String("output"), "", "")
	if err != nil {
		return orchestrator.Config{}, ports.BrowserOptions{}, err
	}
	orchConfig.Capture.Headers = headers

	return orchConfig, ports.BrowserOptions{
		Headless:          !c.Bool("no-headless"),
		ChromePath:        c.String("chrome-path"),
		UserAgent:         c.String("user-agent"),
		Headers:           headers,
		IgnoreHTTPSErrors: c.Bool("ignore-https-errors"),
		ProxyServer:       c.String("proxy-server"),
		Incognito:         !c.Bool("no-incognito"),
	}, nil
}

// parseHeaders parses "Name: value" pairs.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%s", l10n.F("Invalid header: %s", h))
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func quietCommand() *cli.Command {
	return &cli.Command{
		Name:  "quiet",
		Usage: l10n.T("Print the idle and quasi-idle periods of a recorded page load"),
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "records", Aliases: []string{"r"}, Required: true, Usage: l10n.T("Network records JSON file"), Category: l10n.T("Input")},
		}, loggingFlags()...),
		Action: func(c *cli.Context) error {
			log := newLogger(c)
			orch := orchestrator.New(nil, nil, nil, nil, osfilesystem.New(), nullsink.New(), nil, log)

			report, err := orch.QuietPeriods(orchestrator.Config{RecordsPath: c.String("records")})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, string(out))
			return nil
		},
	}
}
