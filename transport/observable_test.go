package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservableDeliversInSubscriptionOrder(t *testing.T) {
	o := NewObservable[int](nil)
	var order []int
	o.Subscribe(func(v int) { order = append(order, 1*100+v) })
	o.Subscribe(func(v int) { order = append(order, 2*100+v) })
	o.Subscribe(func(v int) { order = append(order, 3*100+v) })

	o.Publish(1)

	assert.Equal(t, []int{101, 201, 301}, order)
}

func TestObservableSkipsSubscribersAddedDuringPublish(t *testing.T) {
	o := NewObservable[int](nil)
	var seen []int
	o.Subscribe(func(v int) {
		seen = append(seen, v)
		o.Subscribe(func(v int) { seen = append(seen, 1000+v) })
	})

	o.Publish(1)
	assert.Equal(t, []int{1}, seen)

	o.Publish(2)
	assert.Equal(t, []int{1, 2, 1002}, seen)
}

func TestObservableCancelDuringPublishTakesEffectImmediately(t *testing.T) {
	o := NewObservable[int](nil)
	var sub2 *Subscription
	var seen []int
	o.Subscribe(func(v int) {
		seen = append(seen, v)
		sub2.Cancel()
	})
	sub2 = o.Subscribe(func(v int) { seen = append(seen, -v) })
	o.Subscribe(func(v int) { seen = append(seen, v*10) })

	o.Publish(1)

	assert.Equal(t, []int{1, 10}, seen)
}

func TestObservableIsolatesPanickingSubscriber(t *testing.T) {
	failures := NewObservable[FailureEvent](nil)
	var failed []FailureEvent
	failures.Subscribe(func(f FailureEvent) { failed = append(failed, f) })

	o := NewObservable[int](failures)
	var seen []int
	o.Subscribe(func(v int) { panic("boom") })
	o.Subscribe(func(v int) { seen = append(seen, v) })

	o.Publish(42)

	assert.Equal(t, []int{42}, seen)
	require.Len(t, failed, 1)
	assert.Equal(t, "subscriber panic", failed[0].Context)
}

func TestObservableRequireSubscribersReportsUnsubscribedPublish(t *testing.T) {
	failures := NewObservable[FailureEvent](nil)
	var failed []FailureEvent
	failures.Subscribe(func(f FailureEvent) { failed = append(failed, f) })

	o := NewObservable[int](failures)
	o.RequireSubscribers = true

	o.Publish(1)

	require.Len(t, failed, 1)
	assert.Equal(t, "unsubscribed publish", failed[0].Context)
}
