package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/loadsim/pkg/adapters/logger"
	"github.com/user/loadsim/pkg/mocks"
	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/ports"
)

// pageEvents is a redirected document that loads one stylesheet.
func pageEvents() []ports.NetworkEvent {
	return []ports.NetworkEvent{
		{Kind: ports.EventRequestStarted, RequestID: "1", Time: 100.00, URL: "http://example.com/", ResourceType: "Document", Priority: "VeryHigh", InitiatorType: "other"},
		{Kind: ports.EventRequestStarted, RequestID: "1", Time: 100.05, URL: "https://example.com/", ResourceType: "Document", Priority: "VeryHigh", InitiatorType: "other"},
		{Kind: ports.EventResponseReceived, RequestID: "1", Time: 100.10, Protocol: "h2"},
		{Kind: ports.EventRequestStarted, RequestID: "2", Time: 100.12, URL: "https://example.com/a.css", ResourceType: "Stylesheet", Priority: "High", InitiatorType: "parser", InitiatorRequest: "1"},
		{Kind: ports.EventPriorityChanged, RequestID: "2", Time: 100.13, Priority: "VeryHigh"},
		{Kind: ports.EventRequestFinished, RequestID: "1", Time: 100.15, EncodedDataLength: 14000},
		{Kind: ports.EventResponseReceived, RequestID: "2", Time: 100.18, Protocol: "h2", ConnectionReused: true},
		{Kind: ports.EventRequestFinished, RequestID: "2", Time: 100.20, EncodedDataLength: 3000},
	}
}

func TestStage_Execute(t *testing.T) {
	mockBrowser := &mocks.Browser{Events: pageEvents()}
	stage := New(mockBrowser, logger.NewNoop(), ports.BrowserOptions{Headless: true})

	input := pipeline.DefaultCaptureInput()
	input.URL = "http://example.com/"
	input.CPUThrottling = 4
	input.NetworkConditions = ports.NetworkConditions{LatencyMs: 150, DownloadSpeed: 200000}

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !mockBrowser.Launched || !mockBrowser.Closed {
		t.Error("expected browser to be launched and closed")
	}
	if mockBrowser.NavigatedURL != input.URL {
		t.Errorf("navigated to %q, want %q", mockBrowser.NavigatedURL, input.URL)
	}
	if mockBrowser.LastCPURate != 4 || mockBrowser.LastCondition.LatencyMs != 150 {
		t.Errorf("throttling not applied: cpu=%v conditions=%+v", mockBrowser.LastCPURate, mockBrowser.LastCondition)
	}
	if result.TimedOut {
		t.Error("expected TimedOut to be false")
	}

	if len(result.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result.Records))
	}
	hop, doc, css := result.Records[0], result.Records[1], result.Records[2]

	if hop.RequestID != "1" || hop.RedirectDestination != "1:redirect" || !hop.Finished {
		t.Errorf("redirect hop = %+v", hop)
	}
	if doc.RequestID != "1:redirect" || doc.RedirectSource != "1" || doc.Initiator.Type != netrecord.InitiatorRedirect {
		t.Errorf("document = %+v", doc)
	}
	if doc.Protocol != "h2" || doc.TransferSize != 14000 || !doc.Finished {
		t.Errorf("document response = %+v", doc)
	}
	if css.Initiator.RequestID != "1:redirect" {
		t.Errorf("stylesheet initiator = %+v, want the final document hop", css.Initiator)
	}
	if len(css.PriorityChanges) != 1 || css.PriorityChanges[0].Priority != netrecord.PriorityVeryHigh {
		t.Errorf("stylesheet priority changes = %+v", css.PriorityChanges)
	}
	if !css.ConnectionReused {
		t.Error("expected stylesheet to reuse the connection")
	}

	if hop.StartTime != 0 {
		t.Errorf("first request should start at 0, got %v", hop.StartTime)
	}
	if d := css.EndTime - 0.2; d > 1e-9 || d < -1e-9 {
		t.Errorf("stylesheet end = %v, want 0.2", css.EndTime)
	}

	if len(result.Idle) == 0 || !result.Idle[len(result.Idle)-1].Ongoing {
		t.Errorf("expected trailing ongoing idle period, got %+v", result.Idle)
	}
}

func TestStage_Execute_Timeout(t *testing.T) {
	mockBrowser := &mocks.Browser{
		StartCaptureFunc: func() (<-chan ports.NetworkEvent, error) {
			return make(chan ports.NetworkEvent), nil
		},
	}
	stage := New(mockBrowser, logger.NewNoop(), ports.BrowserOptions{Headless: true})

	input := pipeline.DefaultCaptureInput()
	input.URL = "https://example.com"
	input.TimeoutMs = 50

	start := time.Now()
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected TimedOut to be true")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("capture did not stop at the timeout")
	}
}

func TestStage_Execute_StopsWhenIdle(t *testing.T) {
	ch := make(chan ports.NetworkEvent, 2)
	ch <- ports.NetworkEvent{Kind: ports.EventRequestStarted, RequestID: "1", Time: 10, URL: "https://example.com/", ResourceType: "Document"}
	ch <- ports.NetworkEvent{Kind: ports.EventRequestFinished, RequestID: "1", Time: 10.1}

	mockBrowser := &mocks.Browser{
		StartCaptureFunc: func() (<-chan ports.NetworkEvent, error) {
			return ch, nil
		},
	}
	stage := New(mockBrowser, logger.NewNoop(), ports.BrowserOptions{Headless: true})

	input := pipeline.DefaultCaptureInput()
	input.URL = "https://example.com"
	input.TimeoutMs = 10000
	input.QuietWindowMs = 50

	start := time.Now()
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TimedOut {
		t.Error("expected the idle monitor to stop the capture")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("capture did not stop when the network went idle")
	}
	if len(result.Records) != 1 || !result.Records[0].Finished {
		t.Errorf("records = %+v", result.Records)
	}
	if !result.QuasiIdleReached {
		t.Error("expected the quasi-idle notification before idle")
	}
	if result.QuasiIdleAtMs < 50 {
		t.Errorf("QuasiIdleAtMs = %v, want at least the 50 ms quiet window", result.QuasiIdleAtMs)
	}
}

func TestStage_Execute_TimeoutWhileQuasiIdle(t *testing.T) {
	ch := make(chan ports.NetworkEvent, 1)
	ch <- ports.NetworkEvent{Kind: ports.EventRequestStarted, RequestID: "poll", Time: 10, URL: "https://example.com/poll", ResourceType: "XHR"}

	mockBrowser := &mocks.Browser{
		StartCaptureFunc: func() (<-chan ports.NetworkEvent, error) {
			return ch, nil
		},
	}
	stage := New(mockBrowser, logger.NewNoop(), ports.BrowserOptions{Headless: true})

	input := pipeline.DefaultCaptureInput()
	input.URL = "https://example.com"
	input.TimeoutMs = 1000
	input.QuietWindowMs = 50

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TimedOut {
		t.Error("an unfinished request must keep the network from going idle")
	}
	if !result.QuasiIdleReached {
		t.Error("one request in flight should count as quasi-idle")
	}
}

func TestStage_Execute_Errors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		browser *mocks.Browser
	}{
		{"launch", &mocks.Browser{LaunchFunc: func(ctx context.Context, opts ports.BrowserOptions) error { return boom }}},
		{"network conditions", &mocks.Browser{SetNetworkConditionsFunc: func(ports.NetworkConditions) error { return boom }}},
		{"start capture", &mocks.Browser{StartCaptureFunc: func() (<-chan ports.NetworkEvent, error) { return nil, boom }}},
		{"navigate", &mocks.Browser{NavigateFunc: func(string) error { return boom }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := New(tt.browser, logger.NewNoop(), ports.BrowserOptions{Headless: true})
			input := pipeline.DefaultCaptureInput()
			input.URL = "https://example.com"
			if _, err := stage.Execute(context.Background(), input); !errors.Is(err, boom) {
				t.Errorf("error = %v, want %v", err, boom)
			}
		})
	}
}

func TestStage_Execute_Cancelled(t *testing.T) {
	mockBrowser := &mocks.Browser{
		StartCaptureFunc: func() (<-chan ports.NetworkEvent, error) {
			return make(chan ports.NetworkEvent), nil
		},
	}
	stage := New(mockBrowser, logger.NewNoop(), ports.BrowserOptions{Headless: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	input := pipeline.DefaultCaptureInput()
	input.URL = "https://example.com"
	if _, err := stage.Execute(ctx, input); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
