package chromebrowser

import (
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"

	"github.com/user/loadsim/pkg/ports"
)

// converter maps DevTools network events onto ports.NetworkEvent.
type converter struct {
	mu sync.Mutex
	// memoryCached holds requests announced as served from the memory cache
	// whose response has not arrived yet.
	memoryCached map[network.RequestID]bool
}

func newConverter() *converter {
	return &converter{memoryCached: make(map[network.RequestID]bool)}
}

// convert returns the events ev translates to; most map to one, a redirect
// to two, events of no interest to none.
func (c *converter) convert(ev interface{}) []ports.NetworkEvent {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Request == nil || e.Timestamp == nil {
			return nil
		}
		t := seconds(e.Timestamp)
		var out []ports.NetworkEvent
		if e.RedirectResponse != nil {
			out = append(out, c.response(e.RequestID, t, e.RedirectResponse))
		}
		start := ports.NetworkEvent{
			Kind:         ports.EventRequestStarted,
			RequestID:    string(e.RequestID),
			Time:         t,
			URL:          e.Request.URL,
			ResourceType: string(e.Type),
			Priority:     string(e.Request.InitialPriority),
		}
		if e.Initiator != nil {
			start.InitiatorType = string(e.Initiator.Type)
			start.InitiatorURL = e.Initiator.URL
			if start.InitiatorURL == "" {
				start.InitiatorURL = stackURL(e.Initiator.Stack)
			}
			start.InitiatorRequest = string(e.Initiator.RequestID)
		}
		return append(out, start)

	case *network.EventRequestServedFromCache:
		c.mu.Lock()
		c.memoryCached[e.RequestID] = true
		c.mu.Unlock()
		return nil

	case *network.EventResponseReceived:
		if e.Response == nil || e.Timestamp == nil {
			return nil
		}
		return []ports.NetworkEvent{c.response(e.RequestID, seconds(e.Timestamp), e.Response)}

	case *network.EventResourceChangedPriority:
		if e.Timestamp == nil {
			return nil
		}
		return []ports.NetworkEvent{{
			Kind:      ports.EventPriorityChanged,
			RequestID: string(e.RequestID),
			Time:      seconds(e.Timestamp),
			Priority:  string(e.NewPriority),
		}}

	case *network.EventLoadingFinished:
		if e.Timestamp == nil {
			return nil
		}
		return []ports.NetworkEvent{{
			Kind:              ports.EventRequestFinished,
			RequestID:         string(e.RequestID),
			Time:              seconds(e.Timestamp),
			EncodedDataLength: e.EncodedDataLength,
		}}

	case *network.EventLoadingFailed:
		if e.Timestamp == nil {
			return nil
		}
		return []ports.NetworkEvent{{
			Kind:      ports.EventRequestFailed,
			RequestID: string(e.RequestID),
			Time:      seconds(e.Timestamp),
		}}
	}
	return nil
}

func (c *converter) response(id network.RequestID, t float64, r *network.Response) ports.NetworkEvent {
	c.mu.Lock()
	fromMemory := c.memoryCached[id]
	delete(c.memoryCached, id)
	c.mu.Unlock()

	return ports.NetworkEvent{
		Kind:             ports.EventResponseReceived,
		RequestID:        string(id),
		Time:             t,
		Protocol:         r.Protocol,
		FromDiskCache:    r.FromDiskCache,
		FromMemoryCache:  fromMemory,
		ConnectionReused: r.ConnectionReused,
	}
}

// seconds converts a protocol timestamp to seconds on the browser clock.
func seconds(ts *cdp.MonotonicTime) float64 {
	return time.Time(*ts).Sub(*cdp.MonotonicTimeEpoch).Seconds()
}

// stackURL returns the script URL of the innermost frame of a call stack,
// following async parents.
func stackURL(st *runtime.StackTrace) string {
	for ; st != nil; st = st.Parent {
		for _, f := range st.CallFrames {
			if f != nil && f.URL != "" {
				return f.URL
			}
		}
	}
	return ""
}
