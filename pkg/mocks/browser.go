// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"

	"github.com/user/loadsim/pkg/ports"
)

// Browser is a mock implementation of ports.Browser.
type Browser struct {
	LaunchFunc               func(ctx context.Context, opts ports.BrowserOptions) error
	NavigateFunc             func(url string) error
	SetNetworkConditionsFunc func(conditions ports.NetworkConditions) error
	SetCPUThrottlingFunc     func(rate float64) error
	StartCaptureFunc         func() (<-chan ports.NetworkEvent, error)
	StopCaptureFunc          func() error
	CloseFunc                func() error

	// Events is replayed by the default StartCapture, which closes the
	// channel afterwards.
	Events []ports.NetworkEvent

	Launched      bool
	Closed        bool
	LastOptions   ports.BrowserOptions
	LastCondition ports.NetworkConditions
	LastCPURate   float64
	NavigatedURL  string
}

func (m *Browser) Launch(ctx context.Context, opts ports.BrowserOptions) error {
	m.Launched = true
	m.LastOptions = opts
	if m.LaunchFunc != nil {
		return m.LaunchFunc(ctx, opts)
	}
	return nil
}

func (m *Browser) Navigate(url string) error {
	m.NavigatedURL = url
	if m.NavigateFunc != nil {
		return m.NavigateFunc(url)
	}
	return nil
}

func (m *Browser) SetNetworkConditions(conditions ports.NetworkConditions) error {
	m.LastCondition = conditions
	if m.SetNetworkConditionsFunc != nil {
		return m.SetNetworkConditionsFunc(conditions)
	}
	return nil
}

func (m *Browser) SetCPUThrottling(rate float64) error {
	m.LastCPURate = rate
	if m.SetCPUThrottlingFunc != nil {
		return m.SetCPUThrottlingFunc(rate)
	}
	return nil
}

func (m *Browser) StartCapture() (<-chan ports.NetworkEvent, error) {
	if m.StartCaptureFunc != nil {
		return m.StartCaptureFunc()
	}
	ch := make(chan ports.NetworkEvent, len(m.Events))
	for _, ev := range m.Events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *Browser) StopCapture() error {
	if m.StopCaptureFunc != nil {
		return m.StopCaptureFunc()
	}
	return nil
}

func (m *Browser) Close() error {
	m.Closed = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Ensure Browser implements ports.Browser
var _ ports.Browser = (*Browser)(nil)
