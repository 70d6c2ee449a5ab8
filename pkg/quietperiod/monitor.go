package quietperiod

import (
	"sync"
	"time"

	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/ports"
)

// DefaultQuietWindow is how long a quiet period must last before the monitor
// reports it.
const DefaultQuietWindow = 500 * time.Millisecond

// Monitor tracks a growing set of live request records and signals when the
// network has been idle, or mostly idle, for the quiet window. It is safe for
// concurrent use.
type Monitor struct {
	logger ports.Logger
	window time.Duration

	mu      sync.Mutex
	records []netrecord.Record
	index   map[string]int

	idle      chan struct{}
	quasiIdle chan struct{}
	idleOnce  sync.Once
	quasiOnce sync.Once
}

// NewMonitor creates a Monitor. A non-positive window uses DefaultQuietWindow.
func NewMonitor(logger ports.Logger, window time.Duration) *Monitor {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	return &Monitor{
		logger:    logger.WithComponent("quiet"),
		window:    window,
		index:     make(map[string]int),
		idle:      make(chan struct{}),
		quasiIdle: make(chan struct{}),
	}
}

// Update inserts or replaces the record with r's request id.
func (m *Monitor) Update(r netrecord.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.index[r.RequestID]; ok {
		m.records[i] = r
		return
	}
	m.index[r.RequestID] = len(m.records)
	m.records = append(m.records, r)
}

// Records returns a snapshot of the tracked records.
func (m *Monitor) Records() []netrecord.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]netrecord.Record(nil), m.records...)
}

// IsIdle reports whether no request has been in flight for the quiet window
// as of now, in seconds since navigation start.
func (m *Monitor) IsIdle(now float64) bool {
	return m.quietFor(now, IdleThreshold)
}

// IsQuasiIdle reports whether at most two requests have been in flight for the
// quiet window as of now.
func (m *Monitor) IsQuasiIdle(now float64) bool {
	return m.quietFor(now, QuasiIdleThreshold)
}

func (m *Monitor) quietFor(now float64, allowed int) bool {
	last, ok := Latest(Find(m.Records(), allowed, m.logger))
	if !ok || !last.Ongoing {
		return false
	}
	return now*1000-last.StartMs >= float64(m.window)/float64(time.Millisecond)
}

// Check evaluates both conditions at now and closes the matching channels the
// first time each holds.
func (m *Monitor) Check(now float64) {
	if m.IsQuasiIdle(now) {
		m.quasiOnce.Do(func() {
			m.logger.Debug("Network quasi-idle at %.0f ms", now*1000)
			close(m.quasiIdle)
		})
	}
	if m.IsIdle(now) {
		m.idleOnce.Do(func() {
			m.logger.Debug("Network idle at %.0f ms", now*1000)
			close(m.idle)
		})
	}
}

// Idle is closed once the network has been idle for the quiet window.
func (m *Monitor) Idle() <-chan struct{} {
	return m.idle
}

// QuasiIdle is closed once at most two requests have been in flight for the
// quiet window.
func (m *Monitor) QuasiIdle() <-chan struct{} {
	return m.quasiIdle
}
