// internal/app/store/store.go

// Package store defines the persistence contract the engine runs against.
//
// All mutation happens inside a unit of work (Store.Atomically). A unit of
// work sees a consistent snapshot, and its writes commit together or not at
// all. Every update is guarded by the document version that was read, so a
// unit of work that raced another one on the same document fails with
// ErrConflict instead of overwriting it.
package store

import (
	"context"
	"errors"

	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
)

var (
	// ErrNotFound is returned by lookups that match no document.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned by inserts whose key already exists.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrConflict means the unit of work lost a race and applied nothing.
	ErrConflict = errors.New("store: write conflict")
)

// NotFoundAs turns ErrNotFound into a NotFound engine error naming what.
// Other errors, and nil, pass through unchanged.
func NotFoundAs(err error, what string) error {
	if errors.Is(err, ErrNotFound) {
		return errs.NotFound(what)
	}
	return err
}

// TeamFilter narrows ListTeams. Zero fields match everything.
type TeamFilter struct {
	Status   models.TeamStatus
	MentorID string
}

// PanelFilter narrows ListPanels. Zero fields match everything.
type PanelFilter struct {
	Type   models.PanelType
	Status models.PanelStatus
}

// Reader is the read side shared by units of work and plain views.
type Reader interface {
	Actor(ctx context.Context, id string) (models.Actor, error)
	ListActors(ctx context.Context, role models.Role) ([]models.Actor, error)

	Team(ctx context.Context, id string) (models.Team, error)
	ListTeams(ctx context.Context, f TeamFilter) ([]models.Team, error)
	MembershipOf(ctx context.Context, actorID string) (models.TeamMembership, error)

	MentorCapacity(ctx context.Context, mentorID string) (models.MentorCapacity, error)
	ListMentorCapacities(ctx context.Context) ([]models.MentorCapacity, error)

	Project(ctx context.Context, id string) (models.Project, error)
	ProjectByTeam(ctx context.Context, teamID string) (models.Project, error)

	Panel(ctx context.Context, id string) (models.EvaluationPanel, error)
	ListPanels(ctx context.Context, f PanelFilter) ([]models.EvaluationPanel, error)
	PanelsForProject(ctx context.Context, projectID string) ([]models.EvaluationPanel, error)

	Submission(ctx context.Context, projectID string, phase models.Phase) (models.Submission, error)
}

// Tx is a unit of work. Insert* set Version to 1; Update*/Put* require the
// version that was read and bump it on success.
type Tx interface {
	Reader

	InsertActor(ctx context.Context, a models.Actor) error

	InsertTeam(ctx context.Context, t *models.Team) error
	UpdateTeam(ctx context.Context, t *models.Team) error
	InsertMembership(ctx context.Context, m models.TeamMembership) error
	DeleteMembership(ctx context.Context, actorID string) error

	// PutMentorCapacity inserts when c.Version is 0, else updates.
	PutMentorCapacity(ctx context.Context, c *models.MentorCapacity) error

	InsertProject(ctx context.Context, p *models.Project) error
	UpdateProject(ctx context.Context, p *models.Project) error

	InsertPanel(ctx context.Context, p *models.EvaluationPanel) error
	UpdatePanel(ctx context.Context, p *models.EvaluationPanel) error

	// PutSubmission inserts when s.Version is 0, else updates.
	PutSubmission(ctx context.Context, s *models.Submission) error
}

// Store is a persistent document store with serializable units of work.
// Reads on Store itself are not part of any unit of work and may be stale.
type Store interface {
	Reader

	// Atomically runs fn as one unit of work. If fn returns an error nothing
	// is committed and the error is returned unchanged. A lost race is
	// reported as ErrConflict.
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
