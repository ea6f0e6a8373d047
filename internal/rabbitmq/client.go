package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/CineRadar/internal/config"
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/GoArmGo/CineRadar/internal/messaging/payloads"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Client представляет собой клиент RabbitMQ.
// Реализует ports.ActivityPublisher и ports.ActivityConsumer.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *slog.Logger
}

// NewClient создает и инициализирует новый клиент RabbitMQ
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	client := &Client{logger: logger}

	conn, err := amqp.Dial(cfg.RabbitMQ.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	client.conn = conn
	logger.Info("connected to RabbitMQ")

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	client.channel = ch

	// Объявление очереди идемпотентно
	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.RabbitMQQueueName, // name
		true,                           // durable
		false,                          // delete when unused
		false,                          // exclusive
		false,                          // no-wait
		nil,                            // arguments
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	client.queue = q
	logger.Info("queue declared", "queue", q.Name, "messages", q.Messages)

	return client, nil
}

// Close закрывает канал и соединение RabbitMQ
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("failed to close RabbitMQ channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("close RabbitMQ connection: %w", err)
		}
	}
	c.logger.Info("RabbitMQ connection closed")
	return nil
}

// PublishActivity публикует событие активности в очередь.
func (c *Client) PublishActivity(ctx context.Context, payload payloads.ActivityPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    payload.ID.String(),
			Timestamp:    payload.OccurredAt,
			Type:         payload.Action,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish activity: %w", err)
	}
	c.logger.Debug("activity published",
		"queue", c.queue.Name,
		"activity_id", payload.ID,
		"action", payload.Action,
	)
	return nil
}

// StartConsumingActivity начинает потребление событий из очереди.
// Обработка идёт в отдельной горутине до отмены ctx или закрытия канала.
func (c *Client) StartConsumingActivity(ctx context.Context, handler func(context.Context, payloads.ActivityPayload) error) error {
	msgs, err := c.channel.Consume(
		c.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack (подтверждаем вручную)
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	c.logger.Info("consumer registered, waiting for messages", "queue", c.queue.Name)

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("RabbitMQ delivery channel closed, stopping consumer")
					return
				}
				c.settle(msg, process(ctx, msg.Body, handler, c.logger))
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping RabbitMQ consumer")
				return
			}
		}
	}()

	return nil
}

func (c *Client) settle(msg amqp.Delivery, o outcome) {
	var err error
	switch o {
	case outcomeAck:
		err = msg.Ack(false)
	case outcomeRequeue:
		err = msg.Nack(false, true)
	case outcomeDiscard:
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.logger.Error("failed to settle message", "outcome", o, "error", err)
	}
}

// outcome: что сделать с доставкой после обработки.
type outcome string

const (
	outcomeAck     outcome = "ack"
	outcomeRequeue outcome = "requeue"
	outcomeDiscard outcome = "discard"
)

// process разбирает сообщение и вызывает handler. Неразбираемое сообщение
// отбрасывается без возврата в очередь, иначе оно зациклится.
// Ошибка обработчика возвращает сообщение в очередь, кроме ошибок валидации.
func process(ctx context.Context, body []byte, handler func(context.Context, payloads.ActivityPayload) error, logger *slog.Logger) outcome {
	var payload payloads.ActivityPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Warn("failed to unmarshal activity message", "error", err, "bytes", len(body))
		return outcomeDiscard
	}

	if err := handler(ctx, payload); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			logger.Warn("discarding invalid activity message", "activity_id", payload.ID, "error", err)
			return outcomeDiscard
		}
		logger.Error("failed to process activity message",
			"activity_id", payload.ID,
			"user_id", payload.UserID,
			"error", err,
		)
		return outcomeRequeue
	}
	return outcomeAck
}
