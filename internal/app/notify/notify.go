// Package notify fans engine events out to side-channel sinks.
//
// Events are emitted after the unit of work that produced them committed.
// Delivery is fire-and-forget: each Emit runs in its own goroutine, sink
// failures are logged and counted, and nothing is reported to the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type names an event.
type Type string

const (
	MentorAssigned    Type = "mentor_assigned"
	PhaseAdvanced     Type = "phase_advanced"
	RevisionRequested Type = "revision_requested"
	PanelAssigned     Type = "panel_assigned"
	TeamSuspended     Type = "team_suspended"
	ProjectCompleted  Type = "project_completed"
)

// Event is one notification. Recipients are actor ids; the surrounding
// application turns them into e-mails or pushes.
type Event struct {
	ID         string            `bson:"_id" json:"id"`
	Type       Type              `bson:"type" json:"type"`
	ActorID    string            `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	TeamID     string            `bson:"team_id,omitempty" json:"team_id,omitempty"`
	ProjectID  string            `bson:"project_id,omitempty" json:"project_id,omitempty"`
	PanelID    string            `bson:"panel_id,omitempty" json:"panel_id,omitempty"`
	MentorID   string            `bson:"mentor_id,omitempty" json:"mentor_id,omitempty"`
	Phase      models.Phase      `bson:"phase,omitempty" json:"phase,omitempty"`
	Recipients []string          `bson:"recipients,omitempty" json:"recipients,omitempty"`
	Details    map[string]string `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt  time.Time         `bson:"created_at" json:"created_at"`
}

// Sink delivers events somewhere.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Emitter is what the engine components depend on.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Dispatcher is the Emitter used in production. A nil *Dispatcher drops
// every event.
type Dispatcher struct {
	sinks     []Sink
	log       *zap.Logger
	timeout   time.Duration
	onFailure func(sink string)
	wg        sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each delivery. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(x *Dispatcher) { x.timeout = d }
}

// WithFailureHook is called with the sink name after each failed delivery.
func WithFailureHook(fn func(sink string)) Option {
	return func(x *Dispatcher) { x.onFailure = fn }
}

// NewDispatcher returns a dispatcher over sinks.
func NewDispatcher(logger *zap.Logger, sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{sinks: sinks, log: logger, timeout: 5 * time.Second}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Emit schedules delivery of ev to every sink and returns immediately.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || len(d.sinks) == 0 {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	// Delivery must outlive the request that caused it.
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, s := range d.sinks {
			dctx, cancel := context.WithTimeout(base, d.timeout)
			err := s.Deliver(dctx, ev)
			cancel()
			if err != nil {
				d.log.Warn("notification delivery failed",
					zap.String("sink", s.Name()),
					zap.String("event_type", string(ev.Type)),
					zap.String("event_id", ev.ID),
					zap.Error(err))
				if d.onFailure != nil {
					d.onFailure(s.Name())
				}
			}
		}
	}()
}

// Flush blocks until every scheduled delivery finished.
func (d *Dispatcher) Flush() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// Close waits for pending deliveries or until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.Flush()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) {}
