// Package events implements the per-run event stream bus: a bounded
// in-memory ring buffer with fan-out to live subscribers and replay
// from a last-seen event id. Event history lives only for the process
// lifetime; the checkpoint store remains the source of truth.
package events

import (
	"sync"
	"time"

	"github.com/kweiss/reelsmith/internal/types"
)

// DefaultCapacity is the per-run ring buffer size when none is given.
const DefaultCapacity = 256

// subscriberBuffer is the channel depth per subscriber. A subscriber
// whose channel is full is considered dead and pruned on the next emit.
const subscriberBuffer = 64

// Bus fans run events out to subscribers.
type Bus struct {
	mu       sync.Mutex
	capacity int
	runs     map[string]*runLog
}

type runLog struct {
	nextID int64
	buf    []types.RunEvent // oldest first, len <= capacity
	subs   map[chan types.RunEvent]struct{}
}

// NewBus creates a bus with the given per-run buffer capacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		runs:     map[string]*runLog{},
	}
}

// Emit appends an event to the run's history and pushes it to every
// live subscriber. Subscribers that cannot keep up are pruned. Returns
// the emitted event with its assigned id.
func (b *Bus) Emit(runID string, typ types.EventType, payload map[string]any) types.RunEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	rl := b.runs[runID]
	if rl == nil {
		rl = &runLog{nextID: 1, subs: map[chan types.RunEvent]struct{}{}}
		b.runs[runID] = rl
	}

	ev := types.RunEvent{
		ID:        rl.nextID,
		RunID:     runID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	rl.nextID++

	rl.buf = append(rl.buf, ev)
	if len(rl.buf) > b.capacity {
		rl.buf = rl.buf[len(rl.buf)-b.capacity:]
	}

	for ch := range rl.subs {
		select {
		case ch <- ev:
		default:
			// Slow or abandoned subscriber; drop it.
			delete(rl.subs, ch)
			close(ch)
		}
	}

	return ev
}

// Subscribe returns a channel of events for the run, replaying every
// buffered event with id greater than lastSeenID before live push. The
// returned cancel function detaches the subscriber and closes the
// channel; it is safe to call more than once.
func (b *Bus) Subscribe(runID string, lastSeenID int64) (<-chan types.RunEvent, func()) {
	b.mu.Lock()

	rl := b.runs[runID]
	if rl == nil {
		rl = &runLog{nextID: 1, subs: map[chan types.RunEvent]struct{}{}}
		b.runs[runID] = rl
	}

	var replay []types.RunEvent
	for _, ev := range rl.buf {
		if ev.ID > lastSeenID {
			replay = append(replay, ev)
		}
	}

	ch := make(chan types.RunEvent, subscriberBuffer+len(replay))
	for _, ev := range replay {
		ch <- ev
	}
	rl.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := rl.subs[ch]; ok {
				delete(rl.subs, ch)
				close(ch)
			}
			if len(rl.subs) == 0 && len(rl.buf) == 0 {
				delete(b.runs, runID)
			}
		})
	}
	return ch, cancel
}

// LastID returns the id of the most recently emitted event for the run,
// or zero when none have been emitted.
func (b *Bus) LastID(runID string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	rl := b.runs[runID]
	if rl == nil {
		return 0
	}
	return rl.nextID - 1
}

// History returns a copy of the buffered events for a run with id
// greater than afterID, oldest first.
func (b *Bus) History(runID string, afterID int64) []types.RunEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	rl := b.runs[runID]
	if rl == nil {
		return nil
	}
	var out []types.RunEvent
	for _, ev := range rl.buf {
		if ev.ID > afterID {
			out = append(out, ev)
		}
	}
	return out
}

// SubscriberCount reports the number of live subscribers for a run.
func (b *Bus) SubscriberCount(runID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	rl := b.runs[runID]
	if rl == nil {
		return 0
	}
	return len(rl.subs)
}
