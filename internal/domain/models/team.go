// internal/domain/models/team.go
package models

import (
	"sort"
	"time"
)

// TeamStatus is the lifecycle state of a team.
type TeamStatus string

const (
	TeamForming   TeamStatus = "forming"
	TeamActive    TeamStatus = "active"
	TeamCompleted TeamStatus = "completed"
	TeamSuspended TeamStatus = "suspended"
)

// TeamMember is one seat on a team.
type TeamMember struct {
	ActorID  string    `bson:"actor_id" json:"actor_id"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

// Team is a student project team.
//
// NOTE:
//   - Members are embedded so the seat count and the leader can be checked
//     and written in one document; team_memberships is the per-actor index
//     that enforces "one team per actor".
//   - Version is bumped on every write and guards compare-and-swap updates.
type Team struct {
	ID         string       `bson:"_id" json:"id"`
	Name       string       `bson:"name" json:"name"`
	Domain     string       `bson:"domain" json:"domain"`
	Members    []TeamMember `bson:"members" json:"members"`
	LeaderID   string       `bson:"leader_id" json:"leader_id"`
	MentorID   string       `bson:"mentor_id,omitempty" json:"mentor_id,omitempty"`
	MaxMembers int          `bson:"max_members" json:"max_members"`
	Status     TeamStatus   `bson:"status" json:"status"`
	Version    int64        `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether actorID holds a seat.
func (t Team) HasMember(actorID string) bool {
	for _, m := range t.Members {
		if m.ActorID == actorID {
			return true
		}
	}
	return false
}

// Full reports whether every seat is taken.
func (t Team) Full() bool { return len(t.Members) >= t.MaxMembers }

// HasMentor reports whether a mentor is assigned.
func (t Team) HasMentor() bool { return t.MentorID != "" }

// Closed reports whether the team no longer accepts changes.
func (t Team) Closed() bool { return t.Status == TeamSuspended || t.Status == TeamCompleted }

// RemoveMember drops actorID and reports whether it was present.
func (t *Team) RemoveMember(actorID string) bool {
	for i, m := range t.Members {
		if m.ActorID == actorID {
			t.Members = append(t.Members[:i:i], t.Members[i+1:]...)
			return true
		}
	}
	return false
}

// EarliestMember returns the member with the earliest join time. Ties are
// broken by actor id so the choice never depends on slice order.
func (t Team) EarliestMember() (TeamMember, bool) {
	if len(t.Members) == 0 {
		return TeamMember{}, false
	}
	ms := append([]TeamMember(nil), t.Members...)
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].JoinedAt.Equal(ms[j].JoinedAt) {
			return ms[i].JoinedAt.Before(ms[j].JoinedAt)
		}
		return ms[i].ActorID < ms[j].ActorID
	})
	return ms[0], true
}

// Clone returns a copy that shares no slices with t.
func (t Team) Clone() Team {
	t.Members = append([]TeamMember(nil), t.Members...)
	return t
}

// TeamMembership is the per-actor index: an actor holds at most one.
type TeamMembership struct {
	ActorID  string    `bson:"_id" json:"actor_id"`
	TeamID   string    `bson:"team_id" json:"team_id"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

// Activate moves a forming team to active once a mentor is assigned and a
// project exists. It reports whether the status changed.
func (t *Team) Activate(hasProject bool) bool {
	if t.Status != TeamForming || !t.HasMentor() || !hasProject {
		return false
	}
	t.Status = TeamActive
	return true
}
