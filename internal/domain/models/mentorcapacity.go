// internal/domain/models/mentorcapacity.go
package models

import "time"

// MentorCapacity is the per-faculty bookkeeping of supervised teams.
// A faculty member without a record has the configured default capacity
// and zero teams.
type MentorCapacity struct {
	MentorID          string `bson:"_id" json:"mentor_id"`
	MaxTeamsAllowed   int    `bson:"max_teams_allowed" json:"max_teams_allowed"`
	CurrentTeamsCount int    `bson:"current_teams_count" json:"current_teams_count"`
	Version           int64  `bson:"version" json:"version"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Available reports whether another team can be taken on.
func (c MentorCapacity) Available() bool {
	return c.CurrentTeamsCount < c.MaxTeamsAllowed
}

// FreeSlots returns how many more teams fit.
func (c MentorCapacity) FreeSlots() int {
	if n := c.MaxTeamsAllowed - c.CurrentTeamsCount; n > 0 {
		return n
	}
	return 0
}
