// Package chromebrowser records page loads as network events using chromedp.
package chromebrowser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/loadsim/pkg/ports"
)

// ErrCaptureActive is returned by StartCapture while a capture is running.
var ErrCaptureActive = errors.New("capture already active")

// Browser implements ports.Browser using chromedp.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	captureMu     sync.Mutex
	capture       *eventQueue
	captureCancel context.CancelFunc
}

// New creates a new Browser.
func New() *Browser {
	return &Browser{}
}

// Launch starts the browser with the given options.
func (b *Browser) Launch(ctx context.Context, opts ports.BrowserOptions) error {
	chromePath := ResolveChromePath(opts.ChromePath)
	if chromePath == "" {
		return fmt.Errorf("chrome not found: please install Chrome/Chromium, set CHROME_PATH environment variable, or use --chrome-path option")
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(opts, chromePath)...)
	b.ctx, b.cancel = chromedp.NewContext(b.allocCtx)

	// Start the browser and disable the cache so every run refetches.
	if err := chromedp.Run(b.ctx, network.Enable(), network.SetCacheDisabled(true)); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}

	if len(opts.Headers) > 0 {
		headers := make(map[string]interface{}, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		if err := chromedp.Run(b.ctx, network.SetExtraHTTPHeaders(network.Headers(headers))); err != nil {
			return fmt.Errorf("set headers: %w", err)
		}
	}

	return nil
}

func allocatorOptions(opts ports.BrowserOptions, chromePath string) []chromedp.ExecAllocatorOption {
	o := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.ExecPath(chromePath),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("safebrowsing-disable-auto-update", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("no-zygote", true),
	}
	if opts.Headless {
		o = append(o, chromedp.Flag("headless", "new"))
	}
	if opts.Incognito {
		o = append(o, chromedp.Flag("incognito", true))
	}
	if opts.UserAgent != "" {
		o = append(o, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.IgnoreHTTPSErrors {
		o = append(o,
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.Flag("allow-insecure-localhost", true))
	}
	if opts.ProxyServer != "" {
		o = append(o, chromedp.ProxyServer(opts.ProxyServer))
	}
	return o
}

// Navigate loads the specified URL and returns once the load event fired.
// Events keep streaming into the capture channel meanwhile.
func (b *Browser) Navigate(url string) error {
	return chromedp.Run(b.ctx, chromedp.Navigate(url))
}

// SetNetworkConditions configures network throttling.
func (b *Browser) SetNetworkConditions(conditions ports.NetworkConditions) error {
	return chromedp.Run(b.ctx,
		network.EmulateNetworkConditions(
			conditions.Offline,
			float64(conditions.LatencyMs),
			float64(conditions.DownloadSpeed),
			float64(conditions.UploadSpeed),
		),
	)
}

// SetCPUThrottling sets CPU throttling rate.
func (b *Browser) SetCPUThrottling(rate float64) error {
	return chromedp.Run(b.ctx,
		emulation.SetCPUThrottlingRate(rate),
	)
}

// StartCapture begins streaming network events.
func (b *Browser) StartCapture() (<-chan ports.NetworkEvent, error) {
	b.captureMu.Lock()
	defer b.captureMu.Unlock()

	if b.capture != nil {
		return nil, ErrCaptureActive
	}
	q := newEventQueue()
	conv := newConverter()
	b.capture = q

	// The listener is dropped once its context is cancelled.
	var listenCtx context.Context
	listenCtx, b.captureCancel = context.WithCancel(b.ctx)
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		for _, out := range conv.convert(ev) {
			q.push(out)
		}
	})

	return q.out, nil
}

// StopCapture stops streaming network events and closes the capture channel.
func (b *Browser) StopCapture() error {
	b.captureMu.Lock()
	defer b.captureMu.Unlock()

	if b.capture == nil {
		return nil
	}
	b.captureCancel()
	b.capture.close()
	b.capture = nil
	return nil
}

// Close shuts down the browser.
func (b *Browser) Close() error {
	b.StopCapture()

	if b.cancel != nil {
		b.cancel()
	}

	// Give Chrome a moment to shut down gracefully, then force kill
	time.Sleep(100 * time.Millisecond)

	if b.allocCancel != nil {
		b.allocCancel()
	}

	return nil
}

// eventQueue is an unbounded buffer between the chromedp listener, which must
// never block, and the capture channel.
type eventQueue struct {
	mu      sync.Mutex
	pending []ports.NetworkEvent
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	out     chan ports.NetworkEvent
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan ports.NetworkEvent, 64),
	}
	go q.pump()
	return q
}

func (q *eventQueue) push(ev ports.NetworkEvent) {
	q.mu.Lock()
	if !q.closed {
		q.pending = append(q.pending, ev)
	}
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

func (q *eventQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pump() {
	defer close(q.out)
	for {
		select {
		case <-q.done:
			return
		case <-q.wake:
		}
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, ev := range batch {
			select {
			case q.out <- ev:
			case <-q.done:
				return
			}
		}
	}
}

// Ensure Browser implements ports.Browser
var _ ports.Browser = (*Browser)(nil)
