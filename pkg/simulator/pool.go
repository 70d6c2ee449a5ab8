package simulator

import (
	"math"
	"sort"

	"github.com/user/loadsim/pkg/depgraph"
)

// pool tracks the connections of one origin during a run.
type pool struct {
	origin      string
	capacity    int
	multiplexed bool
	secure      bool
	// startWarm is set when the recorded load found one of the origin's
	// sockets already open.
	startWarm bool

	inUse    int
	warmIdle int
	// opened and handshakeEnd describe a multiplexed origin's single connection.
	opened       bool
	handshakeEnd float64
}

// acquire takes a connection slot at simulated time now and returns the
// connection setup still owed before the transfer can begin. ok is false when
// every slot is busy.
func (p *pool) acquire(now, rttMs float64) (setupMs float64, ok bool) {
	if p.multiplexed {
		p.inUse++
		if !p.opened {
			p.opened = true
			p.handshakeEnd = now
			if !p.startWarm {
				p.handshakeEnd += p.setupMs(rttMs)
			}
		}
		return math.Max(0, p.handshakeEnd-now), true
	}
	if p.warmIdle > 0 {
		p.warmIdle--
		p.inUse++
		return 0, true
	}
	if p.inUse+p.warmIdle >= p.capacity {
		return 0, false
	}
	p.inUse++
	return p.setupMs(rttMs), true
}

// release returns a slot; its connection stays open and warm.
func (p *pool) release() {
	p.inUse--
	if !p.multiplexed {
		p.warmIdle++
	}
}

// setupMs is the cost of opening a connection: DNS, TCP, and TLS when secure.
func (p *pool) setupMs(rttMs float64) float64 {
	trips := 2.0
	if p.secure {
		trips++
	}
	return trips * rttMs
}

// buildPools creates one pool per origin of the graph's socket-bound requests.
// A warm origin starts with one idle open connection.
func buildPools(g *depgraph.Graph, capacity int) map[string]*pool {
	var nodes []*depgraph.Node
	for _, n := range g.Nodes() {
		if n.Kind == depgraph.KindNetwork && !n.IsConnectionless() {
			nodes = append(nodes, n)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].StartTime != nodes[j].StartTime {
			return nodes[i].StartTime < nodes[j].StartTime
		}
		return nodes[i].ID < nodes[j].ID
	})

	pools := make(map[string]*pool)
	for _, n := range nodes {
		r := &n.Network.Record
		origin := r.Origin()
		p, ok := pools[origin]
		if !ok {
			p = &pool{
				origin:    origin,
				capacity:  capacity,
				secure:    r.IsSecure(),
				startWarm: g.IsWarmOrigin(origin),
			}
			if p.startWarm {
				p.warmIdle = 1
			}
			pools[origin] = p
		}
		if r.IsMultiplexed() {
			p.multiplexed = true
		}
	}
	return pools
}
