package rabbitmq

import (
	"context"
	"log/slog"

	"github.com/GoArmGo/CineRadar/internal/messaging/payloads"
)

// NoopPublisher используется, когда RABBITMQ_URL не задан: события только логируются.
type NoopPublisher struct {
	logger *slog.Logger
}

func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) PublishActivity(ctx context.Context, payload payloads.ActivityPayload) error {
	p.logger.Debug("activity publishing disabled", "action", payload.Action, "user_id", payload.UserID)
	return nil
}
