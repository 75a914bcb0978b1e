package events

import (
	"strconv"
	"testing"

	"pegvault/core/types"
)

type payloadStub struct {
	evt *types.Event
}

func (p payloadStub) EventType() string { return p.evt.Type }
func (p payloadStub) Event() *types.Event {
	return p.evt
}

type bareStub struct{}

func (bareStub) EventType() string { return "bare" }

func TestRecorderKeepsNewestFirst(t *testing.T) {
	r := NewRecorder(3)
	for i := 0; i < 5; i++ {
		r.Emit(payloadStub{evt: &types.Event{Type: "evt." + strconv.Itoa(i)}})
	}

	recent := r.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("retained = %d, want 3", len(recent))
	}
	for i, want := range []string{"evt.4", "evt.3", "evt.2"} {
		if recent[i].Type != want {
			t.Fatalf("recent[%d] = %q, want %q", i, recent[i].Type, want)
		}
	}

	limited := r.Recent(1)
	if len(limited) != 1 || limited[0].Type != "evt.4" {
		t.Fatalf("limited = %v", limited)
	}
}

func TestRecorderIgnoresBareEvents(t *testing.T) {
	r := NewRecorder(2)
	r.Emit(bareStub{})
	r.Emit(nil)
	if got := r.Recent(0); len(got) != 0 {
		t.Fatalf("retained %d events, want 0", len(got))
	}
}
