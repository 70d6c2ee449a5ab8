package depgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/user/loadsim/pkg/netrecord"
)

// RootKey is the key of the synthetic navigation-start node every graph has.
const RootKey = "root"

var (
	// ErrCycle is returned when a graph contains a dependency cycle.
	ErrCycle = errors.New("dependency cycle")
	// ErrOrphan is returned when a non-root node has no predecessor.
	ErrOrphan = errors.New("node has no predecessor")
)

// Graph is a DAG stored as a flat arena; edges are id lists on the nodes.
type Graph struct {
	Name         string
	nodes        []*Node
	root         NodeID
	mainDocument NodeID
	// warmOrigins holds origins whose socket was already open when the
	// recorded load began.
	warmOrigins map[string]bool
}

// New creates a graph holding only its root: a zero-duration main-thread node
// at navigation start.
func New(name string) *Graph {
	g := &Graph{Name: name, mainDocument: NoNode}
	g.root = g.AddNode(NewCPUNode(netrecord.Task{ID: RootKey, Name: "NavigationStart"}))
	return g
}

// NewDerived creates a graph without a root, for derivations that clone their
// nodes in from another graph and then call SetRoot.
func NewDerived(name string) *Graph {
	return &Graph{Name: name, root: NoNode, mainDocument: NoNode}
}

// AddNode places n in a fresh arena slot and returns its id.
func (g *Graph) AddNode(n *Node) NodeID {
	id := NodeID(len(g.nodes))
	n.ID = id
	g.nodes = append(g.nodes, n)
	return id
}

// AddEdge records that to cannot start before from finishes. Duplicate edges
// are ignored. It does not check for cycles; see Reaches.
func (g *Graph) AddEdge(from, to NodeID) {
	src, dst := g.nodes[from], g.nodes[to]
	for _, id := range src.dependents {
		if id == to {
			return
		}
	}
	src.dependents = append(src.dependents, to)
	dst.dependencies = append(dst.dependencies, from)
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// Nodes returns every node in arena order. The slice must not be modified.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of nodes, root included.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Root returns the id of the root node.
func (g *Graph) Root() NodeID {
	return g.root
}

// SetRoot designates the root node.
func (g *Graph) SetRoot(id NodeID) {
	g.root = id
}

// MainDocument returns the id of the page's main document request, or NoNode.
func (g *Graph) MainDocument() NodeID {
	return g.mainDocument
}

// SetMainDocument designates the main document request.
func (g *Graph) SetMainDocument(id NodeID) {
	g.mainDocument = id
}

// MarkWarmOrigins records every origin whose earliest socket-bound request
// reported a reused connection. Later requests on the origin do not change the
// outcome.
func (g *Graph) MarkWarmOrigins() {
	var nodes []*Node
	for _, n := range g.nodes {
		if n.Kind == KindNetwork && !n.IsConnectionless() {
			nodes = append(nodes, n)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].StartTime != nodes[j].StartTime {
			return nodes[i].StartTime < nodes[j].StartTime
		}
		return nodes[i].ID < nodes[j].ID
	})
	seen := make(map[string]bool)
	for _, n := range nodes {
		r := &n.Network.Record
		origin := r.Origin()
		if seen[origin] {
			continue
		}
		seen[origin] = true
		if r.ConnectionReused {
			g.SetWarmOrigin(origin)
		}
	}
}

// SetWarmOrigin marks origin as starting with an open connection.
func (g *Graph) SetWarmOrigin(origin string) {
	if g.warmOrigins == nil {
		g.warmOrigins = make(map[string]bool)
	}
	g.warmOrigins[origin] = true
}

// IsWarmOrigin reports whether origin starts with an open connection.
func (g *Graph) IsWarmOrigin(origin string) bool {
	return g.warmOrigins[origin]
}

// WarmOrigins returns the warm origins, sorted.
func (g *Graph) WarmOrigins() []string {
	out := make([]string, 0, len(g.warmOrigins))
	for o := range g.warmOrigins {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// FindByKey returns the node with the given stable key.
func (g *Graph) FindByKey(key string) (*Node, bool) {
	for _, n := range g.nodes {
		if n.Key == key {
			return n, true
		}
	}
	return nil, false
}

// VisitedSet tracks nodes seen by one traversal.
type VisitedSet []bool

// NewVisitedSet returns an empty visited set sized for g.
func (g *Graph) NewVisitedSet() VisitedSet {
	return make(VisitedSet, len(g.nodes))
}

// Visit marks id and reports whether it was unvisited before.
func (v VisitedSet) Visit(id NodeID) bool {
	if v[id] {
		return false
	}
	v[id] = true
	return true
}

// Seen reports whether id was visited.
func (v VisitedSet) Seen(id NodeID) bool {
	return v[id]
}

// Reaches reports whether to is reachable from from along dependent edges.
func (g *Graph) Reaches(from, to NodeID, visited VisitedSet) bool {
	stack := []NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if !visited.Visit(id) {
			continue
		}
		stack = append(stack, g.nodes[id].dependents...)
	}
	return false
}

// Traverse calls fn for every node reachable from start along dependent edges,
// breadth first, skipping nodes already in visited.
func (g *Graph) Traverse(start NodeID, visited VisitedSet, fn func(n *Node)) {
	if !visited.Visit(start) {
		return
	}
	queue := []NodeID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		fn(g.nodes[id])
		for _, next := range g.nodes[id].dependents {
			if visited.Visit(next) {
				queue = append(queue, next)
			}
		}
	}
}

// TopologicalOrder returns node ids ordered so every node follows its
// dependencies. Ties are broken by id.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	indegree := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		indegree[n.ID] = len(n.dependencies)
	}
	var ready []NodeID
	for _, n := range g.nodes {
		if indegree[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}
	order := make([]NodeID, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, next := range g.nodes[id].dependents {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("graph %s: %w", g.Name, ErrCycle)
	}
	return order, nil
}

// Validate checks the structural invariants the simulator relies on: a root
// without predecessors, every other node with at least one, and no cycles.
func (g *Graph) Validate() error {
	if g.root == NoNode || int(g.root) >= len(g.nodes) {
		return fmt.Errorf("graph %s: missing root", g.Name)
	}
	if len(g.nodes[g.root].dependencies) != 0 {
		return fmt.Errorf("graph %s: root has predecessors", g.Name)
	}
	for _, n := range g.nodes {
		if n.ID != g.root && len(n.dependencies) == 0 {
			return fmt.Errorf("graph %s: node %s: %w", g.Name, n.Key, ErrOrphan)
		}
	}
	_, err := g.TopologicalOrder()
	return err
}

type jsonNode struct {
	ID           NodeID   `json:"id"`
	Key          string   `json:"key"`
	Kind         string   `json:"kind"`
	Label        string   `json:"label"`
	StartTime    float64  `json:"startTime"`
	EndTime      float64  `json:"endTime,omitempty"`
	Finished     bool     `json:"finished"`
	Priority     float64  `json:"weightedPriority,omitempty"`
	Dependencies []NodeID `json:"dependencies"`
}

// MarshalJSON renders the graph for debug output.
func (g *Graph) MarshalJSON() ([]byte, error) {
	nodes := make([]jsonNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		deps := n.dependencies
		if deps == nil {
			deps = []NodeID{}
		}
		nodes = append(nodes, jsonNode{
			ID:           n.ID,
			Key:          n.Key,
			Kind:         n.Kind.String(),
			Label:        n.Label(),
			StartTime:    n.StartTime,
			EndTime:      n.EndTime,
			Finished:     n.Finished,
			Priority:     n.WeightedPriority(),
			Dependencies: deps,
		})
	}
	return json.Marshal(struct {
		Name         string     `json:"name"`
		Root         NodeID     `json:"root"`
		MainDocument NodeID     `json:"mainDocument"`
		Nodes        []jsonNode `json:"nodes"`
	}{g.Name, g.root, g.mainDocument, nodes})
}
