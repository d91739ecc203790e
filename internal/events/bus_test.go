package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/reelsmith/internal/types"
)

func TestEmitAssignsMonotonicIDsPerRun(t *testing.T) {
	bus := NewBus(8)

	a1 := bus.Emit("run-a", types.EventStageTransition, map[string]any{"stage": "analysis"})
	a2 := bus.Emit("run-a", types.EventStageCompleted, nil)
	b1 := bus.Emit("run-b", types.EventRunStatus, nil)

	assert.Equal(t, int64(1), a1.ID)
	assert.Equal(t, int64(2), a2.ID)
	assert.Equal(t, int64(1), b1.ID)
	assert.Equal(t, int64(2), bus.LastID("run-a"))
	assert.Equal(t, int64(0), bus.LastID("run-c"))
}

func TestSubscribeReceivesLiveEvents(t *testing.T) {
	bus := NewBus(8)
	ch, cancel := bus.Subscribe("run-a", 0)
	defer cancel()

	bus.Emit("run-a", types.EventLog, map[string]any{"message": "hello"})
	bus.Emit("run-b", types.EventLog, nil) // different run, must not arrive

	ev := <-ch
	assert.Equal(t, types.EventLog, ev.Type)
	assert.Equal(t, "run-a", ev.RunID)
	assert.Len(t, ch, 0)
}

func TestSubscribeReplaysFromLastSeenID(t *testing.T) {
	bus := NewBus(8)
	for i := 0; i < 5; i++ {
		bus.Emit("run-a", types.EventLog, map[string]any{"n": i})
	}

	ch, cancel := bus.Subscribe("run-a", 3)
	defer cancel()

	ev := <-ch
	assert.Equal(t, int64(4), ev.ID)
	ev = <-ch
	assert.Equal(t, int64(5), ev.ID)
	assert.Len(t, ch, 0)
}

func TestRingEvictsOldestAtCapacity(t *testing.T) {
	bus := NewBus(3)
	for i := 1; i <= 5; i++ {
		bus.Emit("run-a", types.EventLog, map[string]any{"n": i})
	}

	hist := bus.History("run-a", 0)
	require.Len(t, hist, 3)
	assert.Equal(t, int64(3), hist[0].ID)
	assert.Equal(t, int64(5), hist[2].ID)

	// IDs stay monotonic across eviction.
	ev := bus.Emit("run-a", types.EventLog, nil)
	assert.Equal(t, int64(6), ev.ID)
}

func TestHistoryAfterID(t *testing.T) {
	bus := NewBus(8)
	bus.Emit("run-a", types.EventLog, nil)
	bus.Emit("run-a", types.EventLog, nil)

	assert.Len(t, bus.History("run-a", 1), 1)
	assert.Empty(t, bus.History("run-a", 2))
	assert.Nil(t, bus.History("ghost", 0))
}

func TestSlowSubscriberIsPruned(t *testing.T) {
	bus := NewBus(1024)
	ch, cancel := bus.Subscribe("run-a", 0)
	defer cancel()
	require.Equal(t, 1, bus.SubscriberCount("run-a"))

	// Overflow the subscriber channel without draining it.
	for i := 0; i < subscriberBuffer+1; i++ {
		bus.Emit("run-a", types.EventLog, map[string]any{"n": fmt.Sprint(i)})
	}

	assert.Equal(t, 0, bus.SubscriberCount("run-a"))
	// The channel was closed by the bus; drain to the close.
	for range ch {
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	bus := NewBus(8)
	_, cancel := bus.Subscribe("run-a", 0)
	cancel()
	cancel()
	assert.Equal(t, 0, bus.SubscriberCount("run-a"))
}
