package ports

import (
	"context"

	"github.com/GoArmGo/CineRadar/internal/messaging/payloads"
)

// ActivityPublisher публикует события активности пользователей.
// Используется usecase-слоем сервера.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, payload payloads.ActivityPayload) error
}

// ActivityConsumer потребляет события активности из очереди.
// Используется воркером.
type ActivityConsumer interface {
	// StartConsumingActivity начинает прослушивание очереди и вызывает handler
	// для каждого полученного сообщения
	StartConsumingActivity(ctx context.Context, handler func(context.Context, payloads.ActivityPayload) error) error
}
