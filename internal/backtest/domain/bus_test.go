package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusRoutesToMatchingSubscriptions(t *testing.T) {
	bus := NewEventBus()

	var all, r1, r2, progress []Event
	bus.SubscribeAll(func(e Event) { all = append(all, e) })
	bus.SubscribeRun("R1", func(e Event) { r1 = append(r1, e) })
	bus.SubscribeRun("R2", func(e Event) { r2 = append(r2, e) })
	bus.SubscribeType(EventProgress, func(e Event) { progress = append(progress, e) })

	bus.Publish(NewEvent(EventProgress, "R1", ProgressData{RunID: "R1", BarsProcessed: 5}))

	assert.Len(t, all, 1)
	assert.Len(t, r1, 1)
	assert.Empty(t, r2, "subscriber scoped to another run must not receive the event")
	assert.Len(t, progress, 1)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus()

	received := 0
	unsubscribe := bus.SubscribeRun("R1", func(e Event) { received++ })

	bus.Publish(NewEvent(EventProgress, "R1", nil))
	assert.Equal(t, 1, received)

	unsubscribe()
	bus.Publish(NewEvent(EventProgress, "R1", nil))
	assert.Equal(t, 1, received, "unsubscribed callback must not fire again")
}

func TestBusUnsubscribeAffectsOnlyOneSubscription(t *testing.T) {
	bus := NewEventBus()

	var first, second int
	u1 := bus.SubscribeRun("R1", func(e Event) { first++ })
	bus.SubscribeRun("R1", func(e Event) { second++ })

	u1()
	bus.Publish(NewEvent(EventProgress, "R1", nil))

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestBusDeliveryOrderWithinSet(t *testing.T) {
	bus := NewEventBus()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.SubscribeRun("R1", func(e Event) { order = append(order, i) })
	}

	bus.Publish(NewEvent(EventProgress, "R1", nil))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order, "delivery follows registration order within a set")
}

func TestBusLateSubscriberReceivesNothing(t *testing.T) {
	bus := NewEventBus()

	bus.Publish(NewEvent(EventStarted, "R1", nil))

	received := 0
	bus.SubscribeRun("R1", func(e Event) { received++ })
	assert.Zero(t, received, "no replay for late subscribers")
}

func TestBusManyRunScopedSubscriptions(t *testing.T) {
	bus := NewEventBus()

	counts := make([]int, 100)
	for i := 0; i < 100; i++ {
		i := i
		runID := fmt.Sprintf("R%d", i)
		bus.SubscribeRun(runID, func(e Event) { counts[i]++ })
	}
	assert.Equal(t, 100, bus.SubscriptionCount())

	for i := 0; i < 100; i++ {
		bus.Publish(NewEvent(EventProgress, fmt.Sprintf("R%d", i), nil))
	}
	for i, count := range counts {
		require.Equal(t, 1, count, "run R%d dropped an event", i)
	}
}

func TestBusConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	received := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(NewEvent(EventProgress, fmt.Sprintf("R%d", n), nil))
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			unsubscribe := bus.SubscribeRun(fmt.Sprintf("R%d", n), func(e Event) {})
			unsubscribe()
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1000, received)
}

type countingGauge struct {
	value float64
}

func (g *countingGauge) Set(v float64) {
	g.value = v
}

func TestBusSubscriptionGauge(t *testing.T) {
	bus := NewEventBus()
	gauge := &countingGauge{}
	bus.SetSubscriptionGauge(gauge)

	u1 := bus.SubscribeAll(func(e Event) {})
	u2 := bus.SubscribeRun("R1", func(e Event) {})
	assert.Equal(t, 2.0, gauge.value)

	u1()
	u2()
	assert.Equal(t, 0.0, gauge.value)
}
