// internal/domain/models/submission.go
package models

import "time"

// SubmissionKind is the artifact family of a submission.
type SubmissionKind string

const (
	KindAbstract     SubmissionKind = "abstract"
	KindSynopsis     SubmissionKind = "synopsis"
	KindPresentation SubmissionKind = "presentation"
	KindFinalReport  SubmissionKind = "final_report"
)

// Attempt is one submit (and its review, once recorded).
type Attempt struct {
	ArtifactRef string     `bson:"artifact_ref" json:"artifact_ref"`
	SubmittedBy string     `bson:"submitted_by" json:"submitted_by"`
	SubmittedAt time.Time  `bson:"submitted_at" json:"submitted_at"`
	Late        bool       `bson:"late" json:"late"`
	Decision    Decision   `bson:"decision,omitempty" json:"decision,omitempty"`
	Feedback    string     `bson:"feedback,omitempty" json:"feedback,omitempty"`
	ReviewerID  string     `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ReviewedAt  *time.Time `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
}

// Submission is the artifact record for one (project, phase). Resubmits
// after a revision cycle update it in place and append to History.
//
// ArtifactRef is an opaque blob-store reference; the engine never reads it.
type Submission struct {
	ID            string         `bson:"_id" json:"id"`
	ProjectID     string         `bson:"project_id" json:"project_id"`
	Phase         Phase          `bson:"phase" json:"phase"`
	Kind          SubmissionKind `bson:"kind" json:"kind"`
	ArtifactRef   string         `bson:"artifact_ref" json:"artifact_ref"`
	SubmittedBy   string         `bson:"submitted_by" json:"submitted_by"`
	ReviewerID    string         `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	PanelID       string         `bson:"panel_id,omitempty" json:"panel_id,omitempty"`
	Decision      Decision       `bson:"decision,omitempty" json:"decision,omitempty"`
	Feedback      string         `bson:"feedback,omitempty" json:"feedback,omitempty"`
	RevisionCount int            `bson:"revision_count" json:"revision_count"`
	Late          bool           `bson:"late" json:"late"`
	History       []Attempt      `bson:"history" json:"history"`
	Version       int64          `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Clone returns a copy that shares no slices with s.
func (s Submission) Clone() Submission {
	h := make([]Attempt, len(s.History))
	for i, a := range s.History {
		if a.ReviewedAt != nil {
			at := *a.ReviewedAt
			a.ReviewedAt = &at
		}
		h[i] = a
	}
	s.History = h
	return s
}
