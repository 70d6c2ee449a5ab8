package scenario

import (
	"fmt"
	"strings"

	"github.com/user/loadsim/pkg/depgraph"
	"github.com/user/loadsim/pkg/netrecord"
)

// Metric decides which nodes the optimistic variant keeps.
type Metric interface {
	Name() string
	// Relevant reports whether the node's work can delay the metric.
	Relevant(n *depgraph.Node) bool
}

type metricFunc struct {
	name     string
	relevant func(n *depgraph.Node) bool
}

func (m metricFunc) Name() string { return m.name }

func (m metricFunc) Relevant(n *depgraph.Node) bool { return m.relevant(n) }

var (
	// FirstContentfulPaint keeps render-blocking requests and main-thread work.
	FirstContentfulPaint Metric = metricFunc{name: "first-contentful-paint", relevant: renderBlocking}

	// LargestContentfulPaint adds images to the first paint set.
	LargestContentfulPaint Metric = metricFunc{name: "largest-contentful-paint", relevant: func(n *depgraph.Node) bool {
		if renderBlocking(n) {
			return true
		}
		return n.Kind == depgraph.KindNetwork && n.Network.Record.ResourceType == netrecord.ResourceImage
	}}

	// Interactive keeps everything except background traffic.
	Interactive Metric = metricFunc{name: "interactive", relevant: func(n *depgraph.Node) bool {
		return !isBackground(n)
	}}
)

func renderBlocking(n *depgraph.Node) bool {
	switch n.Kind {
	case depgraph.KindCPU:
		return true
	case depgraph.KindNetwork:
		return n.Network.Record.HasRenderBlockingPriority()
	default:
		panic(fmt.Sprintf("scenario: unknown node kind %d", n.Kind))
	}
}

func isBackground(n *depgraph.Node) bool {
	switch n.Kind {
	case depgraph.KindCPU:
		return false
	case depgraph.KindNetwork:
		r := &n.Network.Record
		switch r.ResourceType {
		case netrecord.ResourcePing, netrecord.ResourceCSPViolationReport:
			return true
		case netrecord.ResourceOther, netrecord.ResourceXHR, netrecord.ResourceFetch:
			return r.Priority <= netrecord.PriorityLow
		}
		return false
	default:
		panic(fmt.Sprintf("scenario: unknown node kind %d", n.Kind))
	}
}

// ParseMetric resolves a metric by its full name or abbreviation.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "fcp", "first-contentful-paint":
		return FirstContentfulPaint, nil
	case "lcp", "largest-contentful-paint":
		return LargestContentfulPaint, nil
	case "tti", "interactive":
		return Interactive, nil
	default:
		return nil, fmt.Errorf("unknown metric %q (use fcp, lcp or tti)", s)
	}
}
