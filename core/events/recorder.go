package events

import (
	"sync"

	"pegvault/core/types"
)

// PayloadEvent is implemented by events that carry a transport payload.
type PayloadEvent interface {
	Event() *types.Event
}

const defaultRecorderCapacity = 256

// Recorder is an Emitter keeping the most recent payload events in a fixed
// ring so they can be inspected over the HTTP surface. Events without a
// payload are counted as emitted but not retained.
type Recorder struct {
	mu   sync.Mutex
	ring []*types.Event
	next int
	full bool
}

// NewRecorder constructs a recorder retaining up to capacity events. A
// non-positive capacity falls back to the default.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultRecorderCapacity
	}
	return &Recorder{ring: make([]*types.Event, capacity)}
}

// Emit implements Emitter.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	payload, ok := evt.(PayloadEvent)
	if !ok {
		return
	}
	event := payload.Event()
	if event == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ring[r.next] = event
	r.next++
	if r.next == len(r.ring) {
		r.next = 0
		r.full = true
	}
}

// Recent returns up to limit retained events, newest first. A non-positive
// limit returns everything retained.
func (r *Recorder) Recent(limit int) []*types.Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	size := r.next
	if r.full {
		size = len(r.ring)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]*types.Event, 0, limit)
	idx := r.next
	for i := 0; i < limit; i++ {
		idx--
		if idx < 0 {
			idx = len(r.ring) - 1
		}
		out = append(out, r.ring[idx])
	}
	return out
}
