package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/clipforge/clipforge/internal/config"
)

const (
	ProcessQueueName = "compose_jobs"
	ExchangeName     = "clipforge"
)

// ProcessMessage is the payload published for one accepted process request.
// The project record itself stays authoritative; the message only names it.
type ProcessMessage struct {
	ProjectID string    `json:"project_id"`
	QueuedAt  time.Time `json:"queued_at"`
}

// Queue dispatches process requests through RabbitMQ for the two-binary
// deployment where workers run separately from the API.
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New creates a new queue client.
func New(cfg config.QueueConfig) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		ProcessQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		ProcessQueueName,
		ProcessQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Queue{
		conn:    conn,
		channel: channel,
	}, nil
}

// Close closes the queue connection.
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// Dispatch publishes a process request for the project.
func (q *Queue) Dispatch(ctx context.Context, projectID string) error {
	body, err := json.Marshal(ProcessMessage{
		ProjectID: projectID,
		QueuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal process message: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		ExchangeName,
		ProcessQueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish process message: %w", err)
	}

	return nil
}

// Consume starts consuming process requests. Prefetch bounds the number of
// unacknowledged deliveries, so handler concurrency never exceeds it.
func (q *Queue) Consume(ctx context.Context, prefetch int, handler func(context.Context, ProcessMessage) error) error {
	if prefetch < 1 {
		prefetch = 1
	}

	if err := q.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		ProcessQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var pm ProcessMessage
				if err := json.Unmarshal(msg.Body, &pm); err != nil {
					msg.Nack(false, false)
					continue
				}

				go func(delivery amqp.Delivery, pm ProcessMessage) {
					if err := handler(ctx, pm); err != nil {
						delivery.Nack(false, false)
						return
					}
					delivery.Ack(false)
				}(msg, pm)
			}
		}
	}()

	return nil
}

// Depth returns the number of messages waiting in the queue.
func (q *Queue) Depth() (int, error) {
	info, err := q.channel.QueueInspect(ProcessQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}
	return info.Messages, nil
}
