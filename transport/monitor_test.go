package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantInterval(d time.Duration) IntervalFunc {
	return func() (time.Duration, bool) { return d, true }
}

func TestMonitorFiresCallbacksInRegistrationOrder(t *testing.T) {
	done := make(chan struct{})
	var order []int
	m := NewMonitor(constantInterval(5*time.Millisecond), func() { order = append(order, 1) })
	m.OnTick(func() { order = append(order, 2) })
	m.OnTick(func() { order = append(order, 3); close(done) })
	m.Start()
	defer m.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor never fired")
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestMonitorStopsOnPanickingCallback(t *testing.T) {
	fired := make(chan struct{}, 10)
	m := NewMonitor(constantInterval(5*time.Millisecond), func() {
		fired <- struct{}{}
		panic("boom")
	})
	m.Start()
	defer m.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("monitor never fired")
	}

	// Give a would-be second tick time to land; it must not, since the
	// panicking callback stops the monitor.
	select {
	case <-fired:
		t.Fatal("monitor fired again after a panicking callback")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMonitorPauseResume(t *testing.T) {
	fired := make(chan struct{}, 10)
	m := NewMonitor(constantInterval(10*time.Millisecond), func() { fired <- struct{}{} })
	m.Start()
	<-fired
	m.Pause()

	select {
	case <-fired:
		t.Fatal("monitor fired while paused")
	case <-time.After(30 * time.Millisecond):
	}

	m.Resume()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("monitor never resumed")
	}
	m.Stop()
}

func TestMonitorStopsWhenIntervalsExhausted(t *testing.T) {
	calls := 0
	remaining := 2
	next := func() (time.Duration, bool) {
		if remaining == 0 {
			return 0, false
		}
		remaining--
		return time.Millisecond, true
	}
	done := make(chan struct{})
	m := NewMonitor(next, func() {
		calls++
		if calls == 2 {
			close(done)
		}
	})
	m.Start()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor never completed its two ticks")
	}
	require.Equal(t, 2, calls)
}
