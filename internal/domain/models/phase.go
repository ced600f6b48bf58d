// internal/domain/models/phase.go
package models

import "fmt"

// Phase is one of the seven ordered project milestones.
type Phase int

const (
	PhaseAbstract      Phase = 1
	PhaseSynopsis      Phase = 2
	PhasePresentation1 Phase = 3
	PhasePresentation2 Phase = 4
	PhasePresentation3 Phase = 5
	PhasePresentation4 Phase = 6
	PhaseFinalReport   Phase = 7

	PhaseCount = 7
)

// Valid reports whether p is within 1..7.
func (p Phase) Valid() bool { return p >= PhaseAbstract && p <= PhaseFinalReport }

// Key is the configuration/wire name of the phase.
func (p Phase) Key() string {
	switch p {
	case PhaseAbstract:
		return "abstract"
	case PhaseSynopsis:
		return "synopsis"
	case PhasePresentation1, PhasePresentation2, PhasePresentation3, PhasePresentation4:
		return fmt.Sprintf("presentation%d", p.PresentationNumber())
	case PhaseFinalReport:
		return "final_report"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) String() string { return p.Key() }

// PresentationNumber maps phases 3..6 to presentations 1..4, else 0.
func (p Phase) PresentationNumber() int {
	if p >= PhasePresentation1 && p <= PhasePresentation4 {
		return int(p-PhasePresentation1) + 1
	}
	return 0
}

// PresentationPhase maps presentation n (1..4) to its phase.
func PresentationPhase(n int) (Phase, bool) {
	if n < 1 || n > 4 {
		return 0, false
	}
	return PhasePresentation1 + Phase(n-1), true
}

// PanelType returns the panel type that evaluates p. Abstract and final
// report are mentor-evaluated and report false.
func (p Phase) PanelType() (PanelType, bool) {
	switch {
	case p == PhaseSynopsis:
		return PanelSynopsis, true
	case p.PresentationNumber() > 0:
		return PanelType(fmt.Sprintf("phase%d", p.PresentationNumber())), true
	}
	return "", false
}

// SubmissionKind names the artifact submitted for p.
func (p Phase) SubmissionKind() SubmissionKind {
	switch {
	case p == PhaseAbstract:
		return KindAbstract
	case p == PhaseSynopsis:
		return KindSynopsis
	case p == PhaseFinalReport:
		return KindFinalReport
	}
	return KindPresentation
}

// PhaseStatus is the review sub-status of one phase.
type PhaseStatus string

const (
	StatusNotSubmitted   PhaseStatus = "not_submitted"
	StatusPendingReview  PhaseStatus = "pending_review"
	StatusApproved       PhaseStatus = "approved"
	StatusRejected       PhaseStatus = "rejected"
	StatusRevisionNeeded PhaseStatus = "revision_needed"
)

// Decision is a review outcome.
type Decision string

const (
	DecisionApproved       Decision = "approved"
	DecisionRejected       Decision = "rejected"
	DecisionRevisionNeeded Decision = "revision_needed"
)

// Valid reports whether d is a known outcome.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected || d == DecisionRevisionNeeded
}

// PhaseByKey is the inverse of Phase.Key.
func PhaseByKey(key string) (Phase, bool) {
	for p := PhaseAbstract; p <= PhaseFinalReport; p++ {
		if p.Key() == key {
			return p, true
		}
	}
	return 0, false
}
