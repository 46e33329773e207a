package regl

import (
	"time"

	"github.com/plotly/regl-go/gl"
)

// Stats accumulates profiling counters for one command. GPUTime trails
// reality: timer query results arrive asynchronously and are folded in
// by Poll.
type Stats struct {
	// Count is the number of times the command body ran (batch items
	// count individually).
	Count int

	// CPUTime is total wall time spent issuing the command's GL calls.
	CPUTime time.Duration

	// GPUTime is total GPU execution time, when timer queries are
	// available.
	GPUTime time.Duration
}

type pendingQuery struct {
	q   gl.Query
	dst *Stats
}

// timerManager leases GPU timer queries around profiled draws and polls
// their results. Queries cannot nest; an inner profiled draw simply goes
// untimed.
type timerManager struct {
	r       *Regl
	pool    []gl.Query
	pending []pendingQuery
	active  bool
}

func newTimerManager(r *Regl) *timerManager {
	return &timerManager{r: r}
}

// begin starts a timer query whose result will accumulate into dst.
// Returns false when timing is unavailable or a query is already active.
func (m *timerManager) begin(dst *Stats) bool {
	if !m.r.gl.Caps().TimerQuery || m.active || m.r.lost {
		return false
	}
	var q gl.Query
	if n := len(m.pool); n > 0 {
		q = m.pool[n-1]
		m.pool = m.pool[:n-1]
	} else {
		q = m.r.gl.CreateQuery()
	}
	m.r.gl.BeginQuery(gl.TimeElapsed, q)
	m.pending = append(m.pending, pendingQuery{q: q, dst: dst})
	m.active = true
	return true
}

func (m *timerManager) end() {
	m.r.gl.EndQuery(gl.TimeElapsed)
	m.active = false
}

// update folds finished query results into their stats and returns the
// queries to the pool. Called from Poll.
func (m *timerManager) update() {
	if len(m.pending) == 0 {
		return
	}
	g := m.r.gl
	kept := m.pending[:0]
	for _, p := range m.pending {
		if !g.QueryResultAvailable(p.q) {
			kept = append(kept, p)
			continue
		}
		p.dst.GPUTime += time.Duration(g.QueryResult(p.q))
		m.pool = append(m.pool, p.q)
	}
	m.pending = kept
}

// onContextLost drops all queries; their results are unrecoverable.
func (m *timerManager) onContextLost() {
	m.pool = nil
	m.pending = nil
	m.active = false
}

func (m *timerManager) destroyAll() {
	if !m.r.lost {
		g := m.r.gl
		for _, q := range m.pool {
			g.DeleteQuery(q)
		}
		for _, p := range m.pending {
			g.DeleteQuery(p.q)
		}
	}
	m.pool = nil
	m.pending = nil
	m.active = false
}
