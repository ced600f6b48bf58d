// internal/domain/models/panel.go
package models

import "time"

// PanelType names the phase family a panel evaluates.
type PanelType string

const (
	PanelSynopsis PanelType = "synopsis"
	PanelPhase1   PanelType = "phase1"
	PanelPhase2   PanelType = "phase2"
	PanelPhase3   PanelType = "phase3"
	PanelPhase4   PanelType = "phase4"
)

// Valid reports whether t is a known panel type.
func (t PanelType) Valid() bool {
	switch t {
	case PanelSynopsis, PanelPhase1, PanelPhase2, PanelPhase3, PanelPhase4:
		return true
	}
	return false
}

// PanelStatus toggles whether a panel takes assignments and reviews.
type PanelStatus string

const (
	PanelActive   PanelStatus = "active"
	PanelInactive PanelStatus = "inactive"
)

// PanelSize is the fixed number of faculty on a panel.
const PanelSize = 4

// EvaluationPanel is a group of four faculty evaluating assigned projects.
// ExcludedMentorIDs is derived: the mentors of the assigned projects' teams.
type EvaluationPanel struct {
	ID                string      `bson:"_id" json:"id"`
	Name              string      `bson:"name" json:"name"`
	Type              PanelType   `bson:"type" json:"type"`
	FacultyIDs        []string    `bson:"faculty_ids" json:"faculty_ids"`
	ExcludedMentorIDs []string    `bson:"excluded_mentor_ids" json:"excluded_mentor_ids"`
	ProjectIDs        []string    `bson:"project_ids" json:"project_ids"`
	Status            PanelStatus `bson:"status" json:"status"`
	Version           int64       `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasFaculty reports whether actorID sits on the panel.
func (p EvaluationPanel) HasFaculty(actorID string) bool {
	return contains(p.FacultyIDs, actorID)
}

// HasProject reports whether projectID is assigned.
func (p EvaluationPanel) HasProject(projectID string) bool {
	return contains(p.ProjectIDs, projectID)
}

// Clone returns a copy that shares no slices with p.
func (p EvaluationPanel) Clone() EvaluationPanel {
	p.FacultyIDs = append([]string(nil), p.FacultyIDs...)
	p.ExcludedMentorIDs = append([]string(nil), p.ExcludedMentorIDs...)
	p.ProjectIDs = append([]string(nil), p.ProjectIDs...)
	return p
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
