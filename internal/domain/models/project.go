// internal/domain/models/project.go
package models

import "time"

// PhaseState is the per-phase slot on a project.
type PhaseState struct {
	Phase        Phase       `bson:"phase" json:"phase"`
	Status       PhaseStatus `bson:"status" json:"status"`
	SubmissionID string      `bson:"submission_id,omitempty" json:"submission_id,omitempty"`
}

// Project is the single project a team carries through the phases.
type Project struct {
	ID           string       `bson:"_id" json:"id"`
	TeamID       string       `bson:"team_id" json:"team_id"`
	Title        string       `bson:"title" json:"title"`
	Description  string       `bson:"description" json:"description"`
	CurrentPhase Phase        `bson:"current_phase" json:"current_phase"`
	Phases       []PhaseState `bson:"phases" json:"phases"`
	Completed    bool         `bson:"completed" json:"completed"`
	Version      int64        `bson:"version" json:"version"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// NewPhaseStates returns the initial state: every phase not submitted.
func NewPhaseStates() []PhaseState {
	out := make([]PhaseState, PhaseCount)
	for i := range out {
		out[i] = PhaseState{Phase: Phase(i + 1), Status: StatusNotSubmitted}
	}
	return out
}

// State returns a pointer to the slot for p, or nil when p is out of range.
func (p *Project) State(ph Phase) *PhaseState {
	if !ph.Valid() || len(p.Phases) < int(ph) {
		return nil
	}
	return &p.Phases[ph-1]
}

// StatusOf returns the sub-status of ph.
func (p Project) StatusOf(ph Phase) PhaseStatus {
	if s := p.State(ph); s != nil {
		return s.Status
	}
	return ""
}

// Clone returns a copy that shares no slices with p.
func (p Project) Clone() Project {
	p.Phases = append([]PhaseState(nil), p.Phases...)
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		p.CompletedAt = &at
	}
	return p
}
