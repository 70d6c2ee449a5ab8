// Package capture implements the stage that records a live page load as
// network request records.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/ports"
	"github.com/user/loadsim/pkg/quietperiod"
)

// checkInterval is how often the quiet-period monitor is polled between
// events.
const checkInterval = 100 * time.Millisecond

// Stage records a page load using a browser and stops once the network has
// been idle for the quiet window.
type Stage struct {
	browser     ports.Browser
	logger      ports.Logger
	browserOpts ports.BrowserOptions
}

// New creates a new capture stage.
func New(browser ports.Browser, logger ports.Logger, opts ports.BrowserOptions) *Stage {
	return &Stage{
		browser:     browser,
		logger:      logger.WithComponent("capture"),
		browserOpts: opts,
	}
}

// Execute records the page load.
func (s *Stage) Execute(ctx context.Context, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
	var result pipeline.CaptureResult

	opts := s.browserOpts
	if len(input.Headers) > 0 {
		opts.Headers = input.Headers
	}
	opts.IgnoreHTTPSErrors = input.IgnoreHTTPSErrors
	opts.ProxyServer = input.ProxyServer

	if opts.Headless {
		s.logger.Debug("Launching browser in headless mode")
	} else {
		s.logger.Debug("Launching browser in visible mode")
	}
	if err := s.browser.Launch(ctx, opts); err != nil {
		return result, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		s.browser.Close()
		s.logger.Debug("Browser closed")
	}()

	s.logger.Debug("Setting network conditions: %d ms latency, %d bps down, %d bps up",
		input.NetworkConditions.LatencyMs,
		input.NetworkConditions.DownloadSpeed,
		input.NetworkConditions.UploadSpeed)
	if err := s.browser.SetNetworkConditions(input.NetworkConditions); err != nil {
		return result, fmt.Errorf("set network conditions: %w", err)
	}

	if input.CPUThrottling > 0 {
		s.logger.Debug("Setting CPU throttling: %.1fx slowdown", input.CPUThrottling)
		if err := s.browser.SetCPUThrottling(input.CPUThrottling); err != nil {
			return result, fmt.Errorf("set CPU throttling: %w", err)
		}
	}

	events, err := s.browser.StartCapture()
	if err != nil {
		return result, fmt.Errorf("start capture: %w", err)
	}

	timeout := time.Duration(input.TimeoutMs) * time.Millisecond
	captureCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Debug("Navigating to %s", input.URL)
	navStart := time.Now()
	if err := s.browser.Navigate(input.URL); err != nil {
		return result, fmt.Errorf("navigate: %w", err)
	}

	monitor := quietperiod.NewMonitor(s.logger, time.Duration(input.QuietWindowMs)*time.Millisecond)
	asm := newAssembler()
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	// lastTime/lastWall anchor the browser clock to the wall clock so the
	// monitor can be polled between events.
	var lastTime float64
	var lastWall time.Time
	clock := func() float64 {
		if lastWall.IsZero() {
			return lastTime
		}
		return lastTime + time.Since(lastWall).Seconds()
	}
	quasiIdle := monitor.QuasiIdle()
	noteQuasiIdle := func() {
		result.QuasiIdleReached = true
		result.QuasiIdleAtMs = clock() * 1000
		s.logger.Info("Network quasi-idle after %.0f ms", result.QuasiIdleAtMs)
		quasiIdle = nil
	}

loop:
	for {
		select {
		case <-captureCtx.Done():
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.TimedOut = true
			break loop
		case <-monitor.Idle():
			break loop
		case <-quasiIdle:
			noteQuasiIdle()
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			for _, r := range asm.apply(ev) {
				monitor.Update(r)
			}
			lastTime, lastWall = asm.elapsed(ev.Time), time.Now()
			monitor.Check(lastTime)
		case <-ticker.C:
			if !lastWall.IsZero() {
				monitor.Check(clock())
			}
		}
	}

	if quasiIdle != nil {
		select {
		case <-quasiIdle:
			noteQuasiIdle()
		default:
		}
	}

	if err := s.browser.StopCapture(); err != nil {
		s.logger.Warn("Failed to stop capture: %s", err)
	}

	result.Records = asm.result()
	result.Idle = quietperiod.Find(result.Records, quietperiod.IdleThreshold, s.logger)
	result.QuasiIdle = quietperiod.Find(result.Records, quietperiod.QuasiIdleThreshold, s.logger)
	result.DurationMs = int(time.Since(navStart).Milliseconds())
	s.logger.Debug("Captured %d requests", len(result.Records))

	return result, nil
}
