// Package messaging publishes scene lifecycle events to RabbitMQ so that
// push channels (websocket gateways, notification workers) can tell clients
// a scene is ready without polling.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SceneReadyPayload is the body of a scene-ready event.
type SceneReadyPayload struct {
	StoryID     uuid.UUID `json:"story_id"`
	SceneKey    string    `json:"scene_key"`
	SceneNumber int       `json:"scene_number"`
	Prefetch    bool      `json:"prefetch"`
	GameOver    bool      `json:"game_over"`
}

// ScenePublisher announces freshly persisted scenes.
type ScenePublisher interface {
	PublishSceneReady(ctx context.Context, payload SceneReadyPayload) error
	Close() error
}

type rabbitMQPublisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

var _ ScenePublisher = (*rabbitMQPublisher)(nil)

// NewRabbitMQPublisher connects to RabbitMQ and declares the scene update
// queue.
func NewRabbitMQPublisher(url, queueName string, logger *zap.Logger) (ScenePublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}

	return &rabbitMQPublisher{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
		logger:    logger.Named("ScenePublisher"),
	}, nil
}

func (p *rabbitMQPublisher) PublishSceneReady(ctx context.Context, payload SceneReadyPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode scene ready event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish scene ready event: %w", err)
	}

	p.logger.Debug("Published scene ready event",
		zap.String("story_id", payload.StoryID.String()),
		zap.String("scene_key", payload.SceneKey),
		zap.Bool("prefetch", payload.Prefetch))
	return nil
}

func (p *rabbitMQPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to close RabbitMQ channel: %w", err)
	}
	return p.conn.Close()
}

// NoopPublisher discards events. Used when RabbitMQ is not configured.
type NoopPublisher struct{}

var _ ScenePublisher = (*NoopPublisher)(nil)

func (NoopPublisher) PublishSceneReady(ctx context.Context, payload SceneReadyPayload) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
