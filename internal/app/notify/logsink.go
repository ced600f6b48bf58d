package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes each event as one structured log line.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink returns a sink that logs through logger.
func NewLogSink(logger *zap.Logger) *LogSink { return &LogSink{log: logger} }

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.Bool("notification", true),
		zap.String("event_type", string(ev.Type)),
		zap.String("event_id", ev.ID),
	}
	if ev.ActorID != "" {
		fields = append(fields, zap.String("actor_id", ev.ActorID))
	}
	if ev.TeamID != "" {
		fields = append(fields, zap.String("team_id", ev.TeamID))
	}
	if ev.ProjectID != "" {
		fields = append(fields, zap.String("project_id", ev.ProjectID))
	}
	if ev.PanelID != "" {
		fields = append(fields, zap.String("panel_id", ev.PanelID))
	}
	if ev.MentorID != "" {
		fields = append(fields, zap.String("mentor_id", ev.MentorID))
	}
	if ev.Phase != 0 {
		fields = append(fields, zap.String("phase", ev.Phase.Key()))
	}
	if len(ev.Recipients) > 0 {
		fields = append(fields, zap.Strings("recipients", ev.Recipients))
	}
	for k, v := range ev.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	s.log.Info("notification", fields...)
	return nil
}
