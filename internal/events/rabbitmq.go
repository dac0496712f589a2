package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueuePublisher sends JSON payloads to named queues.
type QueuePublisher interface {
	PublishJSON(ctx context.Context, queue string, value interface{}) error
}

// RabbitClient owns one connection and one channel to a RabbitMQ server.
type RabbitClient struct {
	conn *amqp.Connection
	chn  *amqp.Channel
}

// NewRabbitClient dials url and opens a channel.
func NewRabbitClient(url string) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	return &RabbitClient{conn: conn, chn: chn}, nil
}

// Close closes the channel, then the connection.
func (r *RabbitClient) Close() error {
	if err := r.chn.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// CreateQueue declares a durable queue.
func (r *RabbitClient) CreateQueue(name string) error {
	_, err := r.chn.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

// Publish sends a persistent message to queue via the default exchange.
func (r *RabbitClient) Publish(ctx context.Context, queue string, body []byte) error {
	return r.chn.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// PublishJSON marshals value and publishes it to queue.
func (r *RabbitClient) PublishJSON(ctx context.Context, queue string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal queue payload: %w", err)
	}
	return r.Publish(ctx, queue, body)
}
