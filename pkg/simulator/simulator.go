// Package simulator replays a dependency graph under synthetic network and CPU
// constraints with a deterministic discrete-event loop.
package simulator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/user/loadsim/pkg/depgraph"
	"github.com/user/loadsim/pkg/ports"
)

// ErrInvariant marks a run aborted because the graph or the simulation state
// broke an assumption the event loop relies on.
var ErrInvariant = errors.New("simulation invariant violated")

// epsilon absorbs floating point residue when a phase is due to end.
const epsilon = 1e-9

// Timing is the simulated schedule of one node.
type Timing struct {
	ID      depgraph.NodeID `json:"id"`
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Kind    string          `json:"kind"`
	StartMs float64         `json:"start_ms"`
	EndMs   float64         `json:"end_ms"`
}

// Result is the timing table of one scenario run. It is never modified after
// Simulate returns.
type Result struct {
	Scenario string                     `json:"scenario"`
	Settings Settings                   `json:"settings"`
	Timings  map[depgraph.NodeID]Timing `json:"timings"`
	TotalMs  float64                    `json:"total_completion_ms"`
}

// Ordered returns the timings sorted by simulated start, then id.
func (r *Result) Ordered() []Timing {
	out := make([]Timing, 0, len(r.Timings))
	for _, t := range r.Timings {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartMs != out[j].StartMs {
			return out[i].StartMs < out[j].StartMs
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Simulator runs graphs under throttling settings.
type Simulator struct {
	logger ports.Logger
	policy PriorityPolicy
	cache  *Cache
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithPolicy replaces the priority policy used to order ready nodes.
func WithPolicy(p PriorityPolicy) Option {
	return func(s *Simulator) {
		s.policy = p
	}
}

// WithCache makes the simulator reuse results for graph and settings pairs it
// has already run.
func WithCache(c *Cache) Option {
	return func(s *Simulator) {
		s.cache = c
	}
}

// New creates a Simulator.
func New(logger ports.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		logger: logger.WithComponent("simulator"),
		policy: DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate computes the timing table of g under settings. Results are cached
// by graph name when a cache is configured.
func (s *Simulator) Simulate(g *depgraph.Graph, settings Settings) (*Result, error) {
	if s.cache == nil {
		return s.run(g, settings)
	}
	return s.cache.GetOrCompute(Key{Graph: g.Name, Settings: settings}, func() (*Result, error) {
		return s.run(g, settings)
	})
}

func (s *Simulator) run(g *depgraph.Graph, settings Settings) (*Result, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	r := newRun(g, settings, s.policy)
	if err := r.loop(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", g.Name, err)
	}

	res := &Result{
		Scenario: g.Name,
		Settings: settings,
		Timings:  make(map[depgraph.NodeID]Timing, g.Len()),
	}
	for _, n := range g.Nodes() {
		st := &r.states[n.ID]
		res.Timings[n.ID] = Timing{
			ID:      n.ID,
			Key:     n.Key,
			Label:   n.Label(),
			Kind:    n.Kind.String(),
			StartMs: st.startMs,
			EndMs:   st.endMs,
		}
		if st.endMs > res.TotalMs {
			res.TotalMs = st.endMs
		}
	}
	s.logger.Debug("Simulated %s: %d nodes, %.1f ms (%s)", g.Name, g.Len(), res.TotalMs, settings)
	return res, nil
}

type nodeState struct {
	pendingDeps int
	readyMs     float64
	startMs     float64
	endMs       float64
}

// flight is a node holding a resource.
type flight struct {
	node *depgraph.Node
	pool *pool

	// fixedMs is the remaining duration of CPU work and connectionless requests.
	fixedMs   float64
	setupMs   float64
	bytesLeft float64
	transfer  bool
	cpu       bool
}

func (f *flight) transferring() bool {
	return f.transfer && f.setupMs <= 0 && f.bytesLeft > 0
}

func (f *flight) done() bool {
	if f.transfer {
		return f.setupMs <= 0 && f.bytesLeft <= 0
	}
	return f.fixedMs <= 0
}

// remainingMs is the time until the flight's current phase ends at rate.
func (f *flight) remainingMs(rate float64) float64 {
	switch {
	case !f.transfer:
		return f.fixedMs
	case f.setupMs > 0:
		return f.setupMs
	default:
		return f.bytesLeft / rate
	}
}

// run is the mutable state of one simulation. Nothing in it is shared.
type run struct {
	g        *depgraph.Graph
	settings Settings
	policy   PriorityPolicy
	rate     float64

	clock    float64
	states   []nodeState
	ready    []depgraph.NodeID
	flights  []*flight
	pools    map[string]*pool
	cpuBusy  bool
	finished int
}

func newRun(g *depgraph.Graph, settings Settings, policy PriorityPolicy) *run {
	r := &run{
		g:        g,
		settings: settings,
		policy:   policy,
		rate:     settings.bytesPerMs(),
		states:   make([]nodeState, g.Len()),
		pools:    buildPools(g, settings.connections()),
	}
	for _, n := range g.Nodes() {
		r.states[n.ID].pendingDeps = len(n.Dependencies())
	}
	r.ready = append(r.ready, g.Root())
	return r
}

func (r *run) loop() error {
	// Every iteration ends at least one phase, and a node has at most two.
	maxSteps := 3*r.g.Len() + 1
	for step := 0; r.finished < r.g.Len(); step++ {
		if step > maxSteps {
			return fmt.Errorf("%w: no progress after %d steps", ErrInvariant, step)
		}
		if err := r.startReady(); err != nil {
			return err
		}
		if len(r.flights) == 0 {
			return fmt.Errorf("%w: %d nodes can never become ready", ErrInvariant, r.g.Len()-r.finished)
		}
		r.advance()
		if err := r.commit(); err != nil {
			return err
		}
	}
	return nil
}

// startReady hands free resources to ready nodes in priority order.
func (r *run) startReady() error {
	if len(r.ready) == 0 {
		return nil
	}
	type candidate struct {
		id       depgraph.NodeID
		priority float64
	}
	candidates := make([]candidate, len(r.ready))
	for i, id := range r.ready {
		candidates[i] = candidate{id: id, priority: r.policy.Priority(r.g.Node(id), r.clock-r.states[id].readyMs)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		na, nb := r.g.Node(a.id), r.g.Node(b.id)
		if na.StartTime != nb.StartTime {
			return na.StartTime < nb.StartTime
		}
		return a.id < b.id
	})

	waiting := r.ready[:0]
	for _, c := range candidates {
		started, err := r.tryStart(r.g.Node(c.id))
		if err != nil {
			return err
		}
		if !started {
			waiting = append(waiting, c.id)
		}
	}
	r.ready = waiting
	return nil
}

func (r *run) tryStart(n *depgraph.Node) (bool, error) {
	f := &flight{node: n}
	switch n.Kind {
	case depgraph.KindCPU:
		if r.cpuBusy {
			return false, nil
		}
		d := n.CPU.Duration * 1000 * r.settings.CPUSlowdownMultiplier
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return false, fmt.Errorf("%w: node %s has duration %v ms", ErrInvariant, n.Key, d)
		}
		r.cpuBusy = true
		f.cpu = true
		f.fixedMs = d
	case depgraph.KindNetwork:
		if n.IsConnectionless() {
			f.fixedMs = ConnectionlessCostMs
			break
		}
		rec := &n.Network.Record
		p := r.pools[rec.Origin()]
		if p == nil {
			return false, fmt.Errorf("%w: no connection pool for %s", ErrInvariant, rec.Origin())
		}
		setup, ok := p.acquire(r.clock, r.settings.RTTMs)
		if !ok {
			return false, nil
		}
		f.transfer = true
		f.pool = p
		f.setupMs = setup
		f.bytesLeft = float64(rec.TransferSize)
		if math.IsInf(r.rate, 1) {
			f.bytesLeft = 0
		}
	default:
		panic(fmt.Sprintf("simulator: unknown node kind %d", n.Kind))
	}

	r.states[n.ID].startMs = r.clock
	r.flights = append(r.flights, f)
	return true, nil
}

// advance moves the clock to the next phase end and progresses every flight,
// splitting the bandwidth evenly among transfers active over the interval.
func (r *run) advance() {
	active := 0
	for _, f := range r.flights {
		if f.transferring() {
			active++
		}
	}
	rate := r.rate
	if active > 0 {
		rate /= float64(active)
	}

	dt := math.Inf(1)
	for _, f := range r.flights {
		if d := f.remainingMs(rate); d < dt {
			dt = d
		}
	}
	if dt < 0 {
		dt = 0
	}

	for _, f := range r.flights {
		due := f.remainingMs(rate)-dt <= epsilon
		switch {
		case !f.transfer:
			f.fixedMs -= dt
			if due {
				f.fixedMs = 0
			}
		case f.setupMs > 0:
			f.setupMs -= dt
			if due {
				f.setupMs = 0
			}
		case f.bytesLeft > 0:
			f.bytesLeft -= rate * dt
			if due {
				f.bytesLeft = 0
			}
		}
	}
	r.clock += dt
}

// commit records every flight that finished at the current instant, frees its
// resource, and readies the dependents whose last dependency it was.
func (r *run) commit() error {
	remaining := r.flights[:0]
	var done []*flight
	for _, f := range r.flights {
		if f.done() {
			done = append(done, f)
		} else {
			remaining = append(remaining, f)
		}
	}
	r.flights = remaining

	for _, f := range done {
		st := &r.states[f.node.ID]
		if r.clock < st.startMs {
			return fmt.Errorf("%w: node %s ends at %v before its start %v", ErrInvariant, f.node.Key, r.clock, st.startMs)
		}
		st.endMs = r.clock
		r.finished++
		if f.cpu {
			r.cpuBusy = false
		}
		if f.pool != nil {
			f.pool.release()
		}
		for _, next := range f.node.Dependents() {
			ns := &r.states[next]
			ns.pendingDeps--
			if ns.pendingDeps == 0 {
				ns.readyMs = r.clock
				r.ready = append(r.ready, next)
			}
		}
	}
	return nil
}
