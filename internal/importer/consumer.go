package importer

import (
	"context"
	"fmt"
	"log/slog"

	"catalog-service/internal/catalog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "catalog-importer"

type Writer interface {
	Create(ctx context.Context, rec catalog.Record) (catalog.Item, error)
}

type Notifier interface {
	Notify(ctx context.Context, created []catalog.Item)
}

// Consumer drains the import queue in bounded batches and writes each row to
// the catalog.
type Consumer struct {
	channel   *amqp.Channel
	queue     string
	batchSize int
	writer    Writer
	notifier  Notifier
	logger    *slog.Logger
}

func NewConsumer(conn *amqp.Connection, queue string, batchSize int, writer Writer, notifier Notifier, logger *slog.Logger) (*Consumer, error) {
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

	if err := ch.Qos(batchSize, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set prefetch %d: %w", batchSize, err)
	}

	return &Consumer{
		channel:   ch,
		queue:     queue,
		batchSize: batchSize,
		writer:    writer,
		notifier:  notifier,
		logger:    logger,
	}, nil
}

func (c *Consumer) Listen(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			batch := c.drain(msgs, msg)
			if err := c.process(ctx, batch); err != nil {
				c.logger.Error("import batch failed", "batch_size", len(batch), "error", err)
			}
		}
	}
}

// drain takes up to batchSize deliveries: the blocking first one plus
// whatever the prefetch buffer already holds.
func (c *Consumer) drain(msgs <-chan amqp.Delivery, first amqp.Delivery) []amqp.Delivery {
	batch := []amqp.Delivery{first}
	for len(batch) < c.batchSize {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return batch
			}
			batch = append(batch, msg)
		default:
			return batch
		}
	}
	return batch
}

// process handles one batch sequentially and fail-fast: the first bad message
// stops the invocation, everything from it onward is requeued, and nothing is
// notified. Messages written before the failure stay committed and acked.
// After a fully successful batch the notifier is invoked once with every
// created product.
func (c *Consumer) process(ctx context.Context, batch []amqp.Delivery) error {
	created := make([]catalog.Item, 0, len(batch))
	for i, msg := range batch {
		item, err := c.handle(ctx, msg.Body)
		if err != nil {
			for _, remaining := range batch[i:] {
				_ = remaining.Nack(false, true)
			}
			return fmt.Errorf("message %d of %d: %w", i+1, len(batch), err)
		}

		_ = msg.Ack(false)
		created = append(created, item)
	}

	if len(created) > 0 {
		c.notifier.Notify(ctx, created)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, body []byte) (catalog.Item, error) {
	rec, err := catalog.ParseRecord(body)
	if err != nil {
		return catalog.Item{}, err
	}

	item, err := c.writer.Create(ctx, rec)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("write product: %w", err)
	}
	return item, nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
