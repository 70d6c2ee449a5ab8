// Package scenario derives bounded graph variants of a recorded page load
// around a point of interest.
package scenario

import (
	"errors"
	"fmt"
	"math"

	"github.com/user/loadsim/pkg/depgraph"
	"github.com/user/loadsim/pkg/ports"
)

var (
	// ErrInvalidPointOfInterest is returned for a negative or NaN point of interest.
	ErrInvalidPointOfInterest = errors.New("invalid point of interest")
	// ErrNoMetric is returned when Derive is called without a metric.
	ErrNoMetric = errors.New("no metric")
)

// Kind names an assumption about contention.
type Kind string

const (
	Pessimistic Kind = "pessimistic"
	Optimistic  Kind = "optimistic"
)

// Variant is one derived graph.
type Variant struct {
	Kind  Kind
	Graph *depgraph.Graph
	// Excluded counts source nodes left out of the variant.
	Excluded int
}

// Name returns the scenario key, e.g. "optimistic-interactive".
func (v Variant) Name() string {
	return v.Graph.Name
}

// Variants holds both bounds for one metric.
type Variants struct {
	Pessimistic Variant
	Optimistic  Variant
}

// All returns the variants in a stable order.
func (v Variants) All() []Variant {
	return []Variant{v.Pessimistic, v.Optimistic}
}

// Selector derives scenario graphs.
type Selector struct {
	logger ports.Logger
}

// NewSelector creates a Selector.
func NewSelector(logger ports.Logger) *Selector {
	return &Selector{logger: logger.WithComponent("scenario")}
}

// Derive produces the pessimistic and optimistic variants of g for the metric
// observed at pointOfInterestUs (microseconds since navigation start).
func (s *Selector) Derive(g *depgraph.Graph, pointOfInterestUs float64, metric Metric) (Variants, error) {
	if math.IsNaN(pointOfInterestUs) || pointOfInterestUs < 0 {
		return Variants{}, &depgraph.InputError{ID: "point-of-interest", Err: fmt.Errorf("%w: %v us", ErrInvalidPointOfInterest, pointOfInterestUs)}
	}
	if metric == nil {
		return Variants{}, &depgraph.InputError{ID: "metric", Err: ErrNoMetric}
	}
	if err := g.Validate(); err != nil {
		return Variants{}, &depgraph.InputError{ID: g.Name, Err: err}
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return Variants{}, err
	}

	before := func(n *depgraph.Node) bool {
		return n.StartTime*1e6 < pointOfInterestUs
	}

	pessimistic := derive(g, order, fmt.Sprintf("%s-%s", Pessimistic, metric.Name()), before)
	optimistic := derive(g, order, fmt.Sprintf("%s-%s", Optimistic, metric.Name()), func(n *depgraph.Node) bool {
		return before(n) && n.Finished && metric.Relevant(n)
	})

	pessimistic.Kind = Pessimistic
	optimistic.Kind = Optimistic
	s.logger.Debug("Derived %s: %d nodes kept, %d excluded", pessimistic.Name(), pessimistic.Graph.Len(), pessimistic.Excluded)
	s.logger.Debug("Derived %s: %d nodes kept, %d excluded", optimistic.Name(), optimistic.Graph.Len(), optimistic.Excluded)

	return Variants{Pessimistic: pessimistic, Optimistic: optimistic}, nil
}

// derive clones the nodes keep accepts (the root always) into a new graph and
// reconnects each kept node to its nearest kept ancestors.
func derive(src *depgraph.Graph, order []depgraph.NodeID, name string, keep func(*depgraph.Node) bool) Variant {
	dst := depgraph.NewDerived(name)
	mapped := make([]depgraph.NodeID, src.Len())
	for _, n := range src.Nodes() {
		mapped[n.ID] = depgraph.NoNode
		if n.ID == src.Root() || keep(n) {
			mapped[n.ID] = dst.AddNode(n.CloneWithoutEdges())
		}
	}
	dst.SetRoot(mapped[src.Root()])
	if md := src.MainDocument(); md != depgraph.NoNode {
		dst.SetMainDocument(mapped[md])
	}
	for _, origin := range src.WarmOrigins() {
		dst.SetWarmOrigin(origin)
	}

	// ancestors[id] is, for a dropped node, the set of kept nodes it waited on.
	ancestors := make(map[depgraph.NodeID][]depgraph.NodeID)
	for _, id := range order {
		n := src.Node(id)
		var preds []depgraph.NodeID
		for _, dep := range n.Dependencies() {
			if mapped[dep] != depgraph.NoNode {
				preds = append(preds, mapped[dep])
			} else {
				preds = append(preds, ancestors[dep]...)
			}
		}
		if mapped[id] == depgraph.NoNode {
			ancestors[id] = dedupe(preds)
			continue
		}
		if id == src.Root() {
			continue
		}
		if len(preds) == 0 {
			preds = []depgraph.NodeID{dst.Root()}
		}
		for _, p := range preds {
			dst.AddEdge(p, mapped[id])
		}
	}

	return Variant{Graph: dst, Excluded: src.Len() - dst.Len()}
}

func dedupe(ids []depgraph.NodeID) []depgraph.NodeID {
	seen := make(map[depgraph.NodeID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
