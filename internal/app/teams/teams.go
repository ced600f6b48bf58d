// internal/app/teams/teams.go

// Package teams manages student teams: creation, membership, leadership
// and the team-size cap.
package teams

import (
	"context"
	"errors"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/notify"
	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/htmlsanitize"
	"github.com/adityav2131/major-project-sub000/internal/app/system/policyfile"
	"github.com/adityav2131/major-project-sub000/internal/app/system/txn"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Releaser frees a team's mentor slot inside an open unit of work and
// writes the team. mentors.Allocator implements it.
type Releaser interface {
	ReleaseInTx(ctx context.Context, tx store.Tx, team *models.Team) (bool, error)
}

// Registry is the team component.
type Registry struct {
	st         store.Store
	rel        Releaser
	em         notify.Emitter
	log        *zap.Logger
	defaultMax int
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultMaxMembers sets the cap used when CreateTeam gets 0.
func WithDefaultMaxMembers(n int) Option {
	return func(r *Registry) { r.defaultMax = n }
}

// WithClock replaces the time source used for join timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New returns a Registry.
func New(st store.Store, rel Releaser, em notify.Emitter, logger *zap.Logger, opts ...Option) *Registry {
	if em == nil {
		em = notify.Discard
	}
	r := &Registry{
		st:         st,
		rel:        rel,
		em:         em,
		log:        logger,
		defaultMax: policyfile.DefaultMaxMembers,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func alreadyInTeam(actorID, teamID string) error {
	return errs.New(errs.KindAlreadyInTeam, "%s already belongs to team %s", actorID, teamID)
}

// CreateTeam creates a forming team led by the calling student.
// maxMembers 0 selects the configured default.
func (r *Registry) CreateTeam(ctx context.Context, a authz.Actor, name, domain string, maxMembers int) (models.Team, error) {
	if err := authz.RequireRole(a, models.RoleStudent); err != nil {
		return models.Team{}, err
	}
	name = htmlsanitize.PlainText(name)
	if name == "" {
		return models.Team{}, errs.Validation("team name is required")
	}
	if maxMembers == 0 {
		maxMembers = r.defaultMax
	}
	if maxMembers < 1 {
		return models.Team{}, errs.Validation("max members must be at least 1")
	}

	now := r.now()
	team := models.Team{
		ID:         uuid.NewString(),
		Name:       name,
		Domain:     htmlsanitize.PlainText(domain),
		Members:    []models.TeamMember{{ActorID: a.ID, JoinedAt: now}},
		LeaderID:   a.ID,
		MaxMembers: maxMembers,
		Status:     models.TeamForming,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := txn.Run(ctx, r.st, r.log, "teams.create", func(ctx context.Context, tx store.Tx) error {
		if m, err := tx.MembershipOf(ctx, a.ID); err == nil {
			return alreadyInTeam(a.ID, m.TeamID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		team.Version = 0
		if err := tx.InsertTeam(ctx, &team); err != nil {
			return err
		}
		return tx.InsertMembership(ctx, models.TeamMembership{ActorID: a.ID, TeamID: team.ID, JoinedAt: now})
	})
	if errors.Is(err, store.ErrDuplicate) {
		return models.Team{}, errs.New(errs.KindAlreadyInTeam, "%s already belongs to a team", a.ID)
	}
	if err != nil {
		return models.Team{}, err
	}

	r.log.Info("team created",
		zap.String("team_id", team.ID),
		zap.String("leader_id", a.ID),
		zap.Int("max_members", maxMembers))
	return team, nil
}

// JoinTeam adds the calling student to teamID. The seat check and the
// insert are one unit of work: when several students race for the last
// seat exactly one gets it and the rest see CapacityExceeded.
func (r *Registry) JoinTeam(ctx context.Context, a authz.Actor, teamID string) (models.Team, error) {
	if err := authz.RequireRole(a, models.RoleStudent); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	err := txn.Run(ctx, r.st, r.log, "teams.join", func(ctx context.Context, tx store.Tx) error {
		var err error
		if team, err = tx.Team(ctx, teamID); err != nil {
			return store.NotFoundAs(err, "team")
		}
		if team.Closed() {
			return errs.InvalidState("team is %s", team.Status)
		}
		if m, err := tx.MembershipOf(ctx, a.ID); err == nil {
			return alreadyInTeam(a.ID, m.TeamID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if team.Full() {
			return errs.New(errs.KindCapacityExceeded, "team is full (%d of %d members)", len(team.Members), team.MaxMembers)
		}

		now := r.now()
		team.Members = append(team.Members, models.TeamMember{ActorID: a.ID, JoinedAt: now})
		team.UpdatedAt = now
		if err := tx.UpdateTeam(ctx, &team); err != nil {
			return err
		}
		return tx.InsertMembership(ctx, models.TeamMembership{ActorID: a.ID, TeamID: teamID, JoinedAt: now})
	})
	if errors.Is(err, store.ErrDuplicate) {
		return models.Team{}, errs.New(errs.KindAlreadyInTeam, "%s already belongs to a team", a.ID)
	}
	if err != nil {
		return models.Team{}, err
	}

	r.log.Info("team joined",
		zap.String("team_id", teamID),
		zap.String("actor_id", a.ID),
		zap.Int("members", len(team.Members)))
	return team, nil
}

// LeaveTeam removes memberID from the team (the caller when memberID is
// empty). Only the member or an admin may do this.
//
// A departing leader hands over to the remaining member who joined first.
// When the last member leaves the team is suspended and its mentor slot is
// freed in the same unit of work.
func (r *Registry) LeaveTeam(ctx context.Context, a authz.Actor, teamID, memberID string) (models.Team, error) {
	if memberID == "" {
		memberID = a.ID
	}
	if err := authz.RequireSelfOrAdmin(a, memberID); err != nil {
		return models.Team{}, err
	}

	var (
		team      models.Team
		suspended bool
		mentorID  string
	)
	err := txn.Run(ctx, r.st, r.log, "teams.leave", func(ctx context.Context, tx store.Tx) error {
		var err error
		if team, err = tx.Team(ctx, teamID); err != nil {
			return store.NotFoundAs(err, "team")
		}
		if !team.RemoveMember(memberID) {
			return errs.NotFound("team member")
		}
		if team.Status == models.TeamCompleted {
			return errs.InvalidState("team is completed")
		}
		if err := tx.DeleteMembership(ctx, memberID); err != nil {
			return err
		}
		team.UpdatedAt = r.now()
		suspended, mentorID = false, team.MentorID

		switch {
		case len(team.Members) == 0:
			suspended = true
			team.Status = models.TeamSuspended
			team.LeaderID = ""
			if released, err := r.rel.ReleaseInTx(ctx, tx, &team); err != nil || released {
				return err
			}
		case team.LeaderID == memberID:
			next, _ := team.EarliestMember()
			team.LeaderID = next.ActorID
		}
		return tx.UpdateTeam(ctx, &team)
	})
	if err != nil {
		return models.Team{}, err
	}

	r.log.Info("team left",
		zap.String("team_id", teamID),
		zap.String("actor_id", memberID),
		zap.String("leader_id", team.LeaderID),
		zap.Bool("suspended", suspended))
	if suspended {
		ev := notify.Event{Type: notify.TeamSuspended, ActorID: a.ID, TeamID: teamID, MentorID: mentorID}
		if mentorID != "" {
			ev.Recipients = []string{mentorID}
		}
		r.em.Emit(ctx, ev)
	}
	return team, nil
}

// SetMaxMembers changes the team-size cap. Admin only; the cap may not drop
// below the current member count.
func (r *Registry) SetMaxMembers(ctx context.Context, a authz.Actor, teamID string, newMax int) (models.Team, error) {
	if err := authz.RequireAdmin(a); err != nil {
		return models.Team{}, err
	}
	if newMax < 1 {
		return models.Team{}, errs.Validation("max members must be at least 1")
	}

	var team models.Team
	err := txn.Run(ctx, r.st, r.log, "teams.set_max_members", func(ctx context.Context, tx store.Tx) error {
		var err error
		if team, err = tx.Team(ctx, teamID); err != nil {
			return store.NotFoundAs(err, "team")
		}
		if newMax < len(team.Members) {
			return errs.Validation("team has %d members; cannot lower the cap to %d", len(team.Members), newMax)
		}
		if team.MaxMembers == newMax {
			return nil
		}
		team.MaxMembers = newMax
		team.UpdatedAt = r.now()
		return tx.UpdateTeam(ctx, &team)
	})
	if err != nil {
		return models.Team{}, err
	}
	r.log.Info("team cap set", zap.String("team_id", teamID), zap.Int("max_members", newMax))
	return team, nil
}

// TransferLeadership hands leadership to another current member. The
// current leader or an admin may do this.
func (r *Registry) TransferLeadership(ctx context.Context, a authz.Actor, teamID, newLeaderID string) (models.Team, error) {
	var team models.Team
	err := txn.Run(ctx, r.st, r.log, "teams.transfer_leadership", func(ctx context.Context, tx store.Tx) error {
		var err error
		if team, err = tx.Team(ctx, teamID); err != nil {
			return store.NotFoundAs(err, "team")
		}
		if a.ID != team.LeaderID && !a.IsAdmin() {
			return errs.PermissionDenied("only the team leader may hand over leadership")
		}
		if team.Closed() {
			return errs.InvalidState("team is %s", team.Status)
		}
		if !team.HasMember(newLeaderID) {
			return errs.Validation("%s is not a member of the team", newLeaderID)
		}
		if team.LeaderID == newLeaderID {
			return nil
		}
		team.LeaderID = newLeaderID
		team.UpdatedAt = r.now()
		return tx.UpdateTeam(ctx, &team)
	})
	if err != nil {
		return models.Team{}, err
	}
	r.log.Info("team leadership transferred", zap.String("team_id", teamID), zap.String("leader_id", newLeaderID))
	return team, nil
}

// Get returns one team.
func (r *Registry) Get(ctx context.Context, teamID string) (models.Team, error) {
	t, err := r.st.Team(ctx, teamID)
	return t, store.NotFoundAs(err, "team")
}

// List returns teams matching f, oldest first.
func (r *Registry) List(ctx context.Context, f store.TeamFilter) ([]models.Team, error) {
	return r.st.ListTeams(ctx, f)
}

// TeamOf returns the team actorID belongs to.
func (r *Registry) TeamOf(ctx context.Context, actorID string) (models.Team, error) {
	m, err := r.st.MembershipOf(ctx, actorID)
	if err != nil {
		return models.Team{}, store.NotFoundAs(err, "team")
	}
	return r.Get(ctx, m.TeamID)
}
