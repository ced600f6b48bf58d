// internal/app/features/panels/handler.go
package panels

import (
	"github.com/adityav2131/major-project-sub000/internal/app/panels"
	"github.com/adityav2131/major-project-sub000/internal/app/system/metrics"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves evaluation panel administration.
type Handler struct {
	Panels  *panels.Builder
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

func NewHandler(b *panels.Builder, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{Panels: b, Metrics: m, Log: logger}
}

type createRequest struct {
	Name       string           `json:"name" validate:"notblank,max=120"`
	Type       models.PanelType `json:"type" validate:"required,oneof=synopsis phase1 phase2 phase3 phase4"`
	FacultyIDs []string         `json:"faculty_ids" validate:"len=4,dive,required"`
}

type assignRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
}

type statusRequest struct {
	Status models.PanelStatus `json:"status" validate:"required,oneof=active inactive"`
}
