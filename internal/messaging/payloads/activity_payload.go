package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ActivityPayload представляет событие активности пользователя,
// передаваемое через RabbitMQ.
type ActivityPayload struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Action     string    `json:"action"`
	MediaID    *int64    `json:"media_id,omitempty"`
	MediaKind  string    `json:"media_kind,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
