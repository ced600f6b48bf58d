// internal/app/features/projects/handler.go
package projects

import (
	"strconv"

	"github.com/adityav2131/major-project-sub000/internal/app/features/apierr"
	"github.com/adityav2131/major-project-sub000/internal/app/phasegate"
	"github.com/adityav2131/major-project-sub000/internal/app/submissions"
	"github.com/adityav2131/major-project-sub000/internal/app/system/metrics"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves projects and their phase submissions.
type Handler struct {
	Gate    *phasegate.Gate
	Gateway *submissions.Gateway
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// NewHandler constructs a projects Handler.
func NewHandler(gate *phasegate.Gate, gw *submissions.Gateway, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{Gate: gate, Gateway: gw, Metrics: m, Log: logger}
}

type createRequest struct {
	TeamID      string `json:"team_id" validate:"required"`
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=4000"`
}

type submitRequest struct {
	ArtifactRef string `json:"artifact_ref" validate:"notblank,max=2048"`
}

type reviewRequest struct {
	Decision models.Decision `json:"decision" validate:"required,oneof=approved rejected revision_needed"`
	Feedback string          `json:"feedback" validate:"max=8000"`
}

// parsePhase accepts a phase number ("3") or its key ("presentation1").
func parsePhase(s string) (models.Phase, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if ph := models.Phase(n); ph.Valid() {
			return ph, nil
		}
		return 0, apierr.PathError("phase", s)
	}
	if ph, ok := models.PhaseByKey(s); ok {
		return ph, nil
	}
	return 0, apierr.PathError("phase", s)
}
