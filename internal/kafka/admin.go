package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// EnsureTopics creates the topics that do not exist yet. Existing topics are
// left untouched.
func EnsureTopics(
	ctx context.Context, brokers []string, partitions int32, replicationFactor int16, topics ...string,
) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer client.Close()

	admin := kadm.NewClient(client)
	responses, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, topics...)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	var errs []error
	for _, topic := range topics {
		resp, ok := responses[topic]
		if !ok {
			continue
		}
		switch {
		case resp.Err == nil:
			slog.Info("Created kafka topic", "topic", topic, "partitions", partitions)
		case errors.Is(resp.Err, kerr.TopicAlreadyExists):
			slog.Debug("Kafka topic already exists", "topic", topic)
		default:
			errs = append(errs, fmt.Errorf("topic %s: %w", topic, resp.Err))
		}
	}
	return errors.Join(errs...)
}
