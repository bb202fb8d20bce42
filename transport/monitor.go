package transport

import (
	"sync"
	"time"
)

// IntervalFunc supplies the next tick interval, or ok=false to stop the
// monitor naturally once the sequence is exhausted.
type IntervalFunc func() (time.Duration, bool)

// Monitor is the scheduled-callback abstraction described in spec.md §5: it
// fires callbacks, in subscription order, at intervals drawn from an
// IntervalFunc, and can be paused, resumed, reset, or stopped. A callback
// that panics stops the monitor, unlike Observable's isolate-and-continue
// subscriber semantics.
//
// Grounded on the teacher's session.Manager cleanup ticker
// (core/session/manager.go's time.NewTicker + runCleanup goroutine),
// generalized from a fixed interval to a caller-supplied interval sequence
// and from one cleanup func to an ordered set of callbacks.
type Monitor struct {
	mu        sync.Mutex
	next      IntervalFunc
	callbacks []func()
	timer     *time.Timer
	stopped   bool
	paused    bool
}

// NewMonitor creates a Monitor that will draw intervals from next. cb, if
// non-nil, is registered as the first callback.
func NewMonitor(next IntervalFunc, cb func()) *Monitor {
	m := &Monitor{next: next}
	if cb != nil {
		m.callbacks = append(m.callbacks, cb)
	}
	return m
}

// OnTick registers an additional callback, fired after all previously
// registered callbacks on the same tick.
func (m *Monitor) OnTick(cb func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Start schedules the first tick.
func (m *Monitor) Start() {
	m.scheduleNext()
}

// Pause cancels the pending tick without discarding the interval sequence.
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	if m.timer != nil {
		m.timer.Stop()
	}
}

// Resume draws the next interval from the sequence and reschedules; it does
// not replay the interval that was pending at Pause.
func (m *Monitor) Resume() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	m.scheduleNext()
}

// Reset replaces the interval sequence and restarts scheduling from it.
func (m *Monitor) Reset(next IntervalFunc) {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.next = next
	m.stopped = false
	m.paused = false
	m.mu.Unlock()
	m.scheduleNext()
}

// Stop cancels the pending tick permanently; no further callbacks fire.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
	}
}

func (m *Monitor) scheduleNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.paused {
		return
	}
	d, ok := m.next()
	if !ok {
		m.stopped = true
		return
	}
	m.timer = time.AfterFunc(d, m.fire)
}

func (m *Monitor) fire() {
	m.mu.Lock()
	cbs := make([]func(), len(m.callbacks))
	copy(cbs, m.callbacks)
	m.mu.Unlock()

	for _, cb := range cbs {
		if !runProtected(cb) {
			m.Stop()
			return
		}
	}

	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if !stopped {
		m.scheduleNext()
	}
}

// runProtected runs cb, reporting via its return value whether cb completed
// without panicking.
func runProtected(cb func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	cb()
	return true
}
