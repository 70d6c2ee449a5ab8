// Package depgraph models one recorded page load as a dependency graph of
// network fetches and main-thread work.
package depgraph

import (
	"fmt"

	"github.com/user/loadsim/pkg/netrecord"
)

// NodeID addresses a node inside its graph's arena.
type NodeID int

// NoNode is the NodeID used when a node is absent.
const NoNode NodeID = -1

// Kind discriminates the payload a Node carries.
type Kind int

const (
	KindNetwork Kind = iota
	KindCPU
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindCPU:
		return "cpu"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// NetworkPayload is the kind-specific data of a network node.
type NetworkPayload struct {
	Record netrecord.Record
	// WeightedPriority in [0,1] blends the record's declared priority steps,
	// favouring the most recent ones.
	WeightedPriority float64
}

// CPUPayload is the kind-specific data of a main-thread node.
type CPUPayload struct {
	Duration float64 // seconds
	Name     string
	URL      string
}

// Node is a vertex of the dependency graph. Exactly one of Network and CPU is
// set, as selected by Kind.
type Node struct {
	ID        NodeID
	Key       string
	Kind      Kind
	StartTime float64 // seconds since navigation start
	EndTime   float64 // meaningful only when Finished
	Finished  bool

	Network *NetworkPayload
	CPU     *CPUPayload

	dependencies []NodeID
	dependents   []NodeID
}

// NewNetworkNode wraps a request record.
func NewNetworkNode(record netrecord.Record, weightedPriority float64) *Node {
	return &Node{
		ID:        NoNode,
		Key:       record.RequestID,
		Kind:      KindNetwork,
		StartTime: record.StartTime,
		EndTime:   record.EndTime,
		Finished:  record.Finished,
		Network: &NetworkPayload{
			Record:           record,
			WeightedPriority: weightedPriority,
		},
	}
}

// NewCPUNode wraps a main-thread task.
func NewCPUNode(task netrecord.Task) *Node {
	return &Node{
		ID:        NoNode,
		Key:       task.ID,
		Kind:      KindCPU,
		StartTime: task.StartTime,
		EndTime:   task.EndTime(),
		Finished:  true,
		CPU: &CPUPayload{
			Duration: task.Duration,
			Name:     task.Name,
			URL:      task.URL,
		},
	}
}

// Dependencies returns the ids of the nodes this node waits for.
// The slice must not be modified.
func (n *Node) Dependencies() []NodeID {
	return n.dependencies
}

// Dependents returns the ids of the nodes waiting for this node.
// The slice must not be modified.
func (n *Node) Dependents() []NodeID {
	return n.dependents
}

// CloneWithoutEdges copies the node's scalar fields and payload. The clone has
// no id and no edges; whoever places it in a graph rebuilds them.
func (n *Node) CloneWithoutEdges() *Node {
	clone := &Node{
		ID:        NoNode,
		Key:       n.Key,
		Kind:      n.Kind,
		StartTime: n.StartTime,
		EndTime:   n.EndTime,
		Finished:  n.Finished,
	}
	switch n.Kind {
	case KindNetwork:
		payload := *n.Network
		payload.Record.PriorityChanges = append([]netrecord.PriorityChange(nil), n.Network.Record.PriorityChanges...)
		clone.Network = &payload
	case KindCPU:
		payload := *n.CPU
		clone.CPU = &payload
	default:
		panic(fmt.Sprintf("depgraph: unknown node kind %d", n.Kind))
	}
	return clone
}

// Label returns a short human readable description.
func (n *Node) Label() string {
	switch n.Kind {
	case KindNetwork:
		return n.Network.Record.URL
	case KindCPU:
		if n.CPU.Name != "" {
			return n.CPU.Name
		}
		return n.Key
	default:
		panic(fmt.Sprintf("depgraph: unknown node kind %d", n.Kind))
	}
}

// IsConnectionless reports whether the node consumes no simulated socket.
// CPU nodes never hold a connection.
func (n *Node) IsConnectionless() bool {
	switch n.Kind {
	case KindNetwork:
		return n.Network.Record.IsConnectionless()
	case KindCPU:
		return true
	default:
		panic(fmt.Sprintf("depgraph: unknown node kind %d", n.Kind))
	}
}

// WeightedPriority returns the scheduling weight of a network node, 0 for CPU.
func (n *Node) WeightedPriority() float64 {
	switch n.Kind {
	case KindNetwork:
		return n.Network.WeightedPriority
	case KindCPU:
		return 0
	default:
		panic(fmt.Sprintf("depgraph: unknown node kind %d", n.Kind))
	}
}
