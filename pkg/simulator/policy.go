package simulator

import (
	"math"

	"github.com/user/loadsim/pkg/depgraph"
)

// PriorityPolicy ranks ready nodes competing for the same resource.
// Higher values start first.
type PriorityPolicy interface {
	Priority(n *depgraph.Node, pendingMs float64) float64
}

// PriorityFunc adapts a function to PriorityPolicy.
type PriorityFunc func(n *depgraph.Node, pendingMs float64) float64

// Priority implements PriorityPolicy.
func (f PriorityFunc) Priority(n *depgraph.Node, pendingMs float64) float64 {
	return f(n, pendingMs)
}

// StaticPolicy ranks by the node's weighted priority alone.
var StaticPolicy PriorityPolicy = PriorityFunc(func(n *depgraph.Node, _ float64) float64 {
	return n.WeightedPriority()
})

// EscalatingPolicy raises a node's weighted priority toward 1 while it waits
// for a resource, halving the remaining gap every HalfLifeMs.
type EscalatingPolicy struct {
	HalfLifeMs float64
}

// DefaultPolicy is the policy a Simulator uses unless told otherwise.
var DefaultPolicy PriorityPolicy = EscalatingPolicy{HalfLifeMs: 1000}

// Priority implements PriorityPolicy.
func (p EscalatingPolicy) Priority(n *depgraph.Node, pendingMs float64) float64 {
	w := n.WeightedPriority()
	if p.HalfLifeMs <= 0 || pendingMs <= 0 {
		return w
	}
	return w + (1-w)*(1-math.Exp2(-pendingMs/p.HalfLifeMs))
}
