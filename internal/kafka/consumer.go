package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Consumer polls a consumer group and hands every record to a Handler,
// committing records only after they were handled.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	topics  []string
}

// NewConsumer creates a group consumer for topics. Extra client options are
// appended to the defaults.
func NewConsumer(
	brokers []string, group string, topics []string, handler Handler, opts ...kgo.Opt,
) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if group == "" {
		return nil, fmt.Errorf("consumer group is required")
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	clientOpts := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}, opts...)

	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &Consumer{client: client, handler: handler, topics: topics}, nil
}

// Run polls until ctx is cancelled or the client is closed. It returns nil
// on a clean shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("Starting kafka consumer", "topics", c.topics)
	defer slog.Info("Kafka consumer stopped", "topics", c.topics)

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}

		for _, fetchErr := range fetches.Errors() {
			if errors.Is(fetchErr.Err, context.Canceled) {
				return nil
			}
			slog.Error("Kafka fetch failed",
				"topic", fetchErr.Topic,
				"partition", fetchErr.Partition,
				"error", fetchErr.Err)
		}

		handled := c.process(ctx, fetches.Records())
		if len(handled) == 0 {
			continue
		}
		// Commit with a fresh context so records handled before shutdown are not redelivered
		if err := c.client.CommitRecords(context.WithoutCancel(ctx), handled...); err != nil {
			slog.Error("Failed to commit kafka offsets", "count", len(handled), "error", err)
		}
	}
}

// process hands records to the handler in order and returns the ones that
// may be committed. Handling stops at the first record interrupted by ctx
// and that record is left uncommitted so it is delivered again.
func (c *Consumer) process(ctx context.Context, records []*kgo.Record) []*kgo.Record {
	handled := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		if ctx.Err() != nil {
			break
		}
		msg := messageFromRecord(r)
		err := c.handler.Handle(ctx, msg)
		if ctx.Err() != nil {
			slog.Warn("Kafka message handling interrupted, leaving it uncommitted",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset)
			break
		}
		if err != nil {
			slog.Error("Failed to handle kafka message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err)
		}
		handled = append(handled, r)
	}
	return handled
}

// Ping checks that at least one broker is reachable
func (c *Consumer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close leaves the group and closes the client
func (c *Consumer) Close() {
	c.client.Close()
}
