package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const contentTypeJSON = "application/json"

// QueuePublisher publishes raw JSON payloads to a durable queue.
type QueuePublisher struct {
	channel *amqp.Channel
	queue   string
}

func NewQueuePublisher(conn *amqp.Connection, queue string) (*QueuePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	return &QueuePublisher{
		channel: ch,
		queue:   queue,
	}, nil
}

func (p *QueuePublisher) Publish(ctx context.Context, body []byte) error {
	if err := p.channel.PublishWithContext(
		ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish to %q: %w", p.queue, err)
	}

	return nil
}

func (p *QueuePublisher) Close() error {
	return p.channel.Close()
}

// BroadcastPublisher publishes to a durable fanout exchange; anyone interested
// in the messages binds their own queue.
type BroadcastPublisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewBroadcastPublisher(conn *amqp.Connection, exchange string) (*BroadcastPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &BroadcastPublisher{
		channel:  ch,
		exchange: exchange,
	}, nil
}

func (p *BroadcastPublisher) Publish(ctx context.Context, body []byte) error {
	if err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish to exchange %q: %w", p.exchange, err)
	}

	return nil
}

func (p *BroadcastPublisher) Close() error {
	return p.channel.Close()
}
