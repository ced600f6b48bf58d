// internal/app/features/teams/handler.go
package teams

import (
	"github.com/adityav2131/major-project-sub000/internal/app/mentors"
	"github.com/adityav2131/major-project-sub000/internal/app/system/metrics"
	"github.com/adityav2131/major-project-sub000/internal/app/teams"
	"go.uber.org/zap"
)

// Handler serves the team endpoints, including mentor selection.
type Handler struct {
	Teams   *teams.Registry
	Mentors *mentors.Allocator
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// NewHandler constructs a teams Handler.
func NewHandler(reg *teams.Registry, alloc *mentors.Allocator, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{Teams: reg, Mentors: alloc, Metrics: m, Log: logger}
}

type createRequest struct {
	Name       string `json:"name" validate:"notblank,max=120"`
	Domain     string `json:"domain" validate:"max=120"`
	MaxMembers int    `json:"max_members" validate:"gte=0,lte=50"`
}

type leaveRequest struct {
	// MemberID lets an admin remove someone else; empty means the caller.
	MemberID string `json:"member_id"`
}

type leaderRequest struct {
	LeaderID string `json:"leader_id" validate:"required"`
}

type maxMembersRequest struct {
	MaxMembers int `json:"max_members" validate:"gte=1,lte=50"`
}

type mentorRequest struct {
	MentorID string `json:"mentor_id" validate:"required"`
}
