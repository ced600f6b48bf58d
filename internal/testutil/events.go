package testutil

import (
	"context"
	"sync"

	"github.com/adityav2131/major-project-sub000/internal/app/notify"
)

// Recorder is a synchronous notify.Emitter that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Emit implements notify.Emitter.
func (r *Recorder) Emit(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

// OfType returns the emitted events of type typ.
func (r *Recorder) OfType(typ notify.Type) []notify.Event {
	var out []notify.Event
	for _, ev := range r.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
