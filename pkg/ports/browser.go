// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
)

// Browser abstracts the browser session that records a page load as network
// events.
type Browser interface {
	// Launch starts the browser with the given options.
	Launch(ctx context.Context, opts BrowserOptions) error
	// SetNetworkConditions configures network throttling for the capture.
	SetNetworkConditions(conditions NetworkConditions) error
	// SetCPUThrottling sets CPU throttling rate (e.g., 4.0 means 4x slower).
	SetCPUThrottling(rate float64) error
	// StartCapture begins streaming network events. The channel is closed when
	// the capture stops.
	StartCapture() (<-chan NetworkEvent, error)
	// Navigate loads the specified URL.
	Navigate(url string) error
	// StopCapture stops streaming network events.
	StopCapture() error
	// Close shuts down the browser.
	Close() error
}

// BrowserOptions configures browser launch settings.
type BrowserOptions struct {
	Headless          bool
	ChromePath        string
	UserAgent         string
	Headers           map[string]string
	IgnoreHTTPSErrors bool   // Ignore HTTPS certificate errors
	ProxyServer       string // HTTP proxy server (e.g., "http://proxy:8080")
	Incognito         bool
}

// NetworkConditions defines network throttling parameters.
type NetworkConditions struct {
	LatencyMs     int  // Round-trip latency in milliseconds
	DownloadSpeed int  // Download speed in bytes/sec (0 = unlimited)
	UploadSpeed   int  // Upload speed in bytes/sec (0 = unlimited)
	Offline       bool // Whether to simulate offline mode
}

// NetworkEventKind discriminates NetworkEvent.
type NetworkEventKind int

const (
	EventRequestStarted NetworkEventKind = iota
	EventResponseReceived
	EventPriorityChanged
	EventRequestFinished
	EventRequestFailed
)

// NetworkEvent is a protocol-neutral network lifecycle event.
// Time is seconds on the browser's monotonic clock.
type NetworkEvent struct {
	Kind      NetworkEventKind
	RequestID string
	Time      float64

	// EventRequestStarted
	URL              string
	ResourceType     string
	Priority         string
	InitiatorType    string
	InitiatorURL     string
	// InitiatorRequest is the request id of the initiating request. A start
	// reusing a known RequestID is a redirect hop.
	InitiatorRequest string

	// EventResponseReceived
	Protocol         string
	FromDiskCache    bool
	FromMemoryCache  bool
	ConnectionReused bool

	// EventRequestFinished
	EncodedDataLength float64
}
