// Package netrecord defines the normalized network request and main-thread task
// records that a single recorded page load is reduced to.
package netrecord

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

// Priority is the loading priority the browser declared for a request.
type Priority int

const (
	PriorityVeryLow Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityVeryHigh
)

// String returns the protocol name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityVeryLow:
		return "VeryLow"
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityVeryHigh:
		return "VeryHigh"
	default:
		return "unknown"
	}
}

// ParsePriority parses a protocol priority name. Unknown names map to Low.
func ParsePriority(s string) Priority {
	switch s {
	case "VeryLow":
		return PriorityVeryLow
	case "Low":
		return PriorityLow
	case "Medium":
		return PriorityMedium
	case "High":
		return PriorityHigh
	case "VeryHigh":
		return PriorityVeryHigh
	default:
		return PriorityLow
	}
}

// Normalized maps the priority onto [0,1], VeryLow being 0 and VeryHigh 1.
func (p Priority) Normalized() float64 {
	return float64(p) / float64(PriorityVeryHigh)
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	*p = ParsePriority(string(text))
	return nil
}

// ResourceType is the kind of resource a request fetched.
type ResourceType string

const (
	ResourceDocument           ResourceType = "Document"
	ResourceStylesheet         ResourceType = "Stylesheet"
	ResourceImage              ResourceType = "Image"
	ResourceMedia              ResourceType = "Media"
	ResourceFont               ResourceType = "Font"
	ResourceScript             ResourceType = "Script"
	ResourceXHR                ResourceType = "XHR"
	ResourceFetch              ResourceType = "Fetch"
	ResourcePing               ResourceType = "Ping"
	ResourceCSPViolationReport ResourceType = "CSPViolationReport"
	ResourceOther              ResourceType = "Other"
)

// InitiatorType describes what caused a request.
type InitiatorType string

const (
	InitiatorParser   InitiatorType = "parser"
	InitiatorScript   InitiatorType = "script"
	InitiatorPreload  InitiatorType = "preload"
	InitiatorRedirect InitiatorType = "redirect"
	InitiatorOther    InitiatorType = "other"
)

// Initiator references the activity that caused a request, if known.
// At most one of RequestID, TaskID, URL is normally set; they are consulted in
// that order.
type Initiator struct {
	Type      InitiatorType `json:"type,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
	TaskID    string        `json:"taskId,omitempty"`
	URL       string        `json:"url,omitempty"`
}

// Known reports whether the initiator points at anything.
func (i Initiator) Known() bool {
	return i.RequestID != "" || i.TaskID != "" || i.URL != ""
}

// PriorityChange is one escalation step observed while a request was pending.
type PriorityChange struct {
	Time     float64  `json:"time"`
	Priority Priority `json:"priority"`
}

// Record is a normalized snapshot of one network fetch.
// Times are seconds since navigation start.
type Record struct {
	RequestID        string           `json:"requestId"`
	URL              string           `json:"url"`
	StartTime        float64          `json:"startTime"`
	EndTime          float64          `json:"endTime"`
	Finished         bool             `json:"finished"`
	ResponseReceived bool             `json:"responseReceived,omitempty"`
	Priority         Priority         `json:"priority"`
	PriorityChanges  []PriorityChange `json:"priorityChanges,omitempty"`
	ResourceType     ResourceType     `json:"resourceType"`
	TransferSize     int64            `json:"transferSize"`
	Protocol         string           `json:"protocol,omitempty"`
	FromDiskCache    bool             `json:"fromDiskCache,omitempty"`
	FromMemoryCache  bool             `json:"fromMemoryCache,omitempty"`
	ConnectionReused bool             `json:"connectionReused,omitempty"`
	Initiator        Initiator        `json:"initiator"`

	RedirectSource      string `json:"redirectSource,omitempty"`
	RedirectDestination string `json:"redirectDestination,omitempty"`
}

var nonNetworkSchemes = map[string]bool{
	"data":             true,
	"blob":             true,
	"file":             true,
	"filesystem":       true,
	"about":            true,
	"chrome":           true,
	"chrome-extension": true,
	"javascript":       true,
	"intent":           true,
	"chrome-untrusted": true,
	"devtools":         true,
	"moz-extension":    true,
	"safari-extension": true,
}

// Scheme returns the lower-cased URL scheme, or "" when the URL has none.
func (r *Record) Scheme() string {
	i := strings.Index(r.URL, ":")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(r.URL[:i])
}

// IsNonNetwork reports whether the URL scheme never touches the network.
func (r *Record) IsNonNetwork() bool {
	return nonNetworkSchemes[r.Scheme()]
}

// IsSecure reports whether a connection to the record's origin needs TLS.
func (r *Record) IsSecure() bool {
	s := r.Scheme()
	return s == "https" || s == "wss"
}

// IsMultiplexed reports whether the request used a protocol that multiplexes
// many requests over one connection.
func (r *Record) IsMultiplexed() bool {
	switch strings.ToLower(r.Protocol) {
	case "h2", "h3", "quic", "http/2", "http/3", "spdy":
		return true
	}
	return strings.HasPrefix(strings.ToLower(r.Protocol), "h3-")
}

// IsQUIC reports whether the request was served over QUIC/HTTP3.
func (r *Record) IsQUIC() bool {
	p := strings.ToLower(r.Protocol)
	return p == "h3" || p == "quic" || p == "http/3" || strings.HasPrefix(p, "h3-")
}

// IsConnectionless reports whether the request consumed no socket or bandwidth.
func (r *Record) IsConnectionless() bool {
	return r.FromDiskCache || r.FromMemoryCache || r.IsNonNetwork()
}

// HasRenderBlockingPriority reports whether the browser treated the request as
// blocking first render.
func (r *Record) HasRenderBlockingPriority() bool {
	if r.Priority == PriorityVeryHigh {
		return true
	}
	if r.Priority == PriorityHigh {
		return r.ResourceType == ResourceScript || r.ResourceType == ResourceDocument
	}
	return false
}

// Origin returns scheme://host:port for the record, filling in default ports.
// Records whose URL cannot be parsed share the pseudo-origin of their raw URL.
func (r *Record) Origin() string {
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" {
		return r.URL
	}
	port := u.Port()
	if port == "" {
		switch strings.ToLower(u.Scheme) {
		case "https", "wss":
			port = "443"
		case "http", "ws":
			port = "80"
		}
	}
	origin := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Hostname())
	if port != "" {
		origin += ":" + port
	}
	return origin
}

// Validate rejects timing fields that cannot be placed on a timeline.
func (r *Record) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("record %q: missing request id", r.URL)
	}
	if math.IsNaN(r.StartTime) || math.IsInf(r.StartTime, 0) || r.StartTime < 0 {
		return fmt.Errorf("record %s: invalid start time %v", r.RequestID, r.StartTime)
	}
	if r.TransferSize < 0 {
		return fmt.Errorf("record %s: negative transfer size %d", r.RequestID, r.TransferSize)
	}
	if !r.Finished {
		return nil
	}
	if math.IsNaN(r.EndTime) || math.IsInf(r.EndTime, 0) || r.EndTime < 0 {
		return fmt.Errorf("record %s: invalid end time %v", r.RequestID, r.EndTime)
	}
	if r.EndTime < r.StartTime {
		return fmt.Errorf("record %s: end time %v before start time %v", r.RequestID, r.EndTime, r.StartTime)
	}
	return nil
}
