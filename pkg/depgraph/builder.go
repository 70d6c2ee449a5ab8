package depgraph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/ports"
)

var (
	// ErrUnknownPredecessor is returned when a record references a request or
	// task that is not part of the input.
	ErrUnknownPredecessor = errors.New("unknown predecessor")
	// ErrDuplicateID is returned when two records or tasks share an id.
	ErrDuplicateID = errors.New("duplicate id")
)

// InputError reports a malformed record or task.
type InputError struct {
	ID  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("malformed input %s: %v", e.ID, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// DefaultIgnoredSchemes are pseudo-schemes whose records never enter the graph.
var DefaultIgnoredSchemes = []string{"data", "about", "javascript", "chrome-extension"}

// Builder constructs dependency graphs from recorded page loads.
type Builder struct {
	logger         ports.Logger
	ignoredSchemes map[string]bool
	priorityDecay  float64
	diagnostics    []string
}

// Option configures a Builder.
type Option func(*Builder)

// WithIgnoredSchemes replaces the set of URL schemes whose records are skipped.
func WithIgnoredSchemes(schemes ...string) Option {
	return func(b *Builder) {
		b.ignoredSchemes = make(map[string]bool, len(schemes))
		for _, s := range schemes {
			b.ignoredSchemes[s] = true
		}
	}
}

// WithPriorityDecay sets the time constant of the priority blend, in seconds.
func WithPriorityDecay(seconds float64) Option {
	return func(b *Builder) {
		b.priorityDecay = seconds
	}
}

// NewBuilder creates a Builder.
func NewBuilder(logger ports.Logger, opts ...Option) *Builder {
	b := &Builder{
		logger:        logger.WithComponent("builder"),
		priorityDecay: DefaultPriorityDecay,
	}
	WithIgnoredSchemes(DefaultIgnoredSchemes...)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Diagnostics returns the non-fatal problems found by the last Build.
func (b *Builder) Diagnostics() []string {
	return b.diagnostics
}

// buildState is the bookkeeping of one Build call.
type buildState struct {
	g          *Graph
	byRequest  map[string]NodeID
	byTask     map[string]NodeID
	byURL      map[string][]NodeID // network nodes per URL, in start order
	skipped    map[string]bool
	redirected map[NodeID]bool
}

// Build creates the dependency graph of one page load.
func (b *Builder) Build(name string, records []netrecord.Record, tasks []netrecord.Task) (*Graph, error) {
	b.diagnostics = nil

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, &InputError{ID: records[i].RequestID, Err: err}
		}
	}
	for i := range tasks {
		if err := tasks[i].Validate(); err != nil {
			return nil, &InputError{ID: tasks[i].ID, Err: err}
		}
	}

	st := &buildState{
		g:          New(name),
		byRequest:  make(map[string]NodeID),
		byTask:     make(map[string]NodeID),
		byURL:      make(map[string][]NodeID),
		skipped:    make(map[string]bool),
		redirected: make(map[NodeID]bool),
	}

	sorted := append([]netrecord.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartTime != sorted[j].StartTime {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].RequestID < sorted[j].RequestID
	})
	for i := range sorted {
		r := &sorted[i]
		if _, dup := st.byRequest[r.RequestID]; dup || st.skipped[r.RequestID] {
			return nil, &InputError{ID: r.RequestID, Err: ErrDuplicateID}
		}
		if b.ignoredSchemes[r.Scheme()] {
			st.skipped[r.RequestID] = true
			b.logger.Debug("Skipping %s record %s", r.Scheme(), r.RequestID)
			continue
		}
		id := st.g.AddNode(NewNetworkNode(*r, BlendPriority(r, b.priorityDecay)))
		st.byRequest[r.RequestID] = id
		st.byURL[r.URL] = append(st.byURL[r.URL], id)
	}

	sortedTasks := append([]netrecord.Task(nil), tasks...)
	sort.SliceStable(sortedTasks, func(i, j int) bool {
		if sortedTasks[i].StartTime != sortedTasks[j].StartTime {
			return sortedTasks[i].StartTime < sortedTasks[j].StartTime
		}
		return sortedTasks[i].ID < sortedTasks[j].ID
	})
	for i := range sortedTasks {
		t := sortedTasks[i]
		if _, dup := st.byTask[t.ID]; dup || t.ID == RootKey {
			return nil, &InputError{ID: t.ID, Err: ErrDuplicateID}
		}
		st.byTask[t.ID] = st.g.AddNode(NewCPUNode(t))
	}

	st.g.SetMainDocument(b.findMainDocument(st))
	st.g.MarkWarmOrigins()

	if err := b.linkRedirects(st); err != nil {
		return nil, err
	}
	if err := b.linkInitiators(st); err != nil {
		return nil, err
	}
	b.linkTasks(st)
	b.adoptOrphans(st)

	b.logger.Debug("Built graph %s: %d nodes (%d records skipped, %d diagnostics)",
		name, st.g.Len(), len(st.skipped), len(b.diagnostics))
	return st.g, nil
}

// findMainDocument picks the earliest document request and follows its
// redirect chain to the final hop.
func (b *Builder) findMainDocument(st *buildState) NodeID {
	current := NoNode
	for _, n := range st.g.Nodes() {
		if n.Kind == KindNetwork && n.Network.Record.ResourceType == netrecord.ResourceDocument {
			current = n.ID
			break
		}
	}
	if current == NoNode {
		return NoNode
	}
	seen := st.g.NewVisitedSet()
	for seen.Visit(current) {
		next, ok := st.byRequest[st.g.Node(current).Network.Record.RedirectDestination]
		if !ok {
			break
		}
		current = next
	}
	return current
}

// linkRedirects chains every redirect hop to its destination.
func (b *Builder) linkRedirects(st *buildState) error {
	for _, n := range st.g.Nodes() {
		if n.Kind != KindNetwork {
			continue
		}
		r := &n.Network.Record
		if r.RedirectSource != "" {
			src, ok := st.byRequest[r.RedirectSource]
			if !ok {
				return &InputError{ID: r.RequestID, Err: fmt.Errorf("redirect source %s: %w", r.RedirectSource, ErrUnknownPredecessor)}
			}
			b.addEdge(st, src, n.ID)
			st.redirected[n.ID] = true
		}
		if r.RedirectDestination != "" {
			dst, ok := st.byRequest[r.RedirectDestination]
			if !ok {
				return &InputError{ID: r.RequestID, Err: fmt.Errorf("redirect destination %s: %w", r.RedirectDestination, ErrUnknownPredecessor)}
			}
			b.addEdge(st, n.ID, dst)
			st.redirected[dst] = true
		}
	}
	return nil
}

// linkInitiators adds an edge from whatever caused each request.
func (b *Builder) linkInitiators(st *buildState) error {
	for _, n := range st.g.Nodes() {
		if n.Kind != KindNetwork || st.redirected[n.ID] {
			continue
		}
		r := &n.Network.Record
		from, err := b.resolveInitiator(st, n)
		if err != nil {
			return &InputError{ID: r.RequestID, Err: err}
		}
		b.addEdge(st, from, n.ID)
	}
	return nil
}

func (b *Builder) resolveInitiator(st *buildState, n *Node) (NodeID, error) {
	initiator := n.Network.Record.Initiator
	switch {
	case initiator.RequestID != "":
		if id, ok := st.byRequest[initiator.RequestID]; ok {
			return id, nil
		}
		if st.skipped[initiator.RequestID] {
			return st.g.Root(), nil
		}
		return NoNode, fmt.Errorf("initiator request %s: %w", initiator.RequestID, ErrUnknownPredecessor)
	case initiator.TaskID != "":
		if id, ok := st.byTask[initiator.TaskID]; ok {
			return id, nil
		}
		return NoNode, fmt.Errorf("initiator task %s: %w", initiator.TaskID, ErrUnknownPredecessor)
	case initiator.URL != "":
		if id := latestBefore(st, initiator.URL, n.StartTime, n.ID, false); id != NoNode {
			return id, nil
		}
	}
	return st.g.Root(), nil
}

// latestBefore returns the latest network node fetching url that started no
// later than t, excluding self. With finished set, only nodes whose original
// fetch completed by t qualify.
func latestBefore(st *buildState, url string, t float64, self NodeID, finished bool) NodeID {
	candidates := st.byURL[url]
	for i := len(candidates) - 1; i >= 0; i-- {
		n := st.g.Node(candidates[i])
		if n.ID == self || n.StartTime > t {
			continue
		}
		if finished && (!n.Finished || n.EndTime > t) {
			continue
		}
		return n.ID
	}
	return NoNode
}

// linkTasks makes each main-thread task wait for the data it consumes: the
// script it evaluates, else the main document, else navigation start.
func (b *Builder) linkTasks(st *buildState) {
	mainDoc := st.g.MainDocument()
	for _, n := range st.g.Nodes() {
		if n.Kind != KindCPU || n.ID == st.g.Root() {
			continue
		}
		from := NoNode
		if n.CPU.URL != "" {
			from = latestBefore(st, n.CPU.URL, n.StartTime, n.ID, true)
			if from == NoNode {
				from = latestBefore(st, n.CPU.URL, n.StartTime, n.ID, false)
			}
		}
		if from == NoNode && mainDoc != NoNode && st.g.Node(mainDoc).StartTime <= n.StartTime {
			from = mainDoc
		}
		if from == NoNode {
			from = st.g.Root()
		}
		b.addEdge(st, from, n.ID)
	}
}

// adoptOrphans hangs every node left without a predecessor off the root.
// Nodes end up here when all their edges were dropped to break cycles.
func (b *Builder) adoptOrphans(st *buildState) {
	root := st.g.Root()
	for _, n := range st.g.Nodes() {
		if n.ID != root && len(n.Dependencies()) == 0 {
			st.g.AddEdge(root, n.ID)
		}
	}
}

// addEdge adds from -> to unless it would close a cycle, in which case the edge
// is dropped and a diagnostic recorded.
func (b *Builder) addEdge(st *buildState, from, to NodeID) {
	if from == to || st.g.Reaches(to, from, st.g.NewVisitedSet()) {
		msg := fmt.Sprintf("dropped edge %s -> %s: it would close a dependency cycle",
			st.g.Node(from).Key, st.g.Node(to).Key)
		b.diagnostics = append(b.diagnostics, msg)
		b.logger.Warn("Dropped edge %s -> %s to break a dependency cycle", st.g.Node(from).Key, st.g.Node(to).Key)
		return
	}
	st.g.AddEdge(from, to)
}
