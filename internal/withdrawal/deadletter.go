package withdrawal

import (
	"context"
	"encoding/json"
	"fmt"
)

// DeadLetter is published for every failed step so operators can replay it
type DeadLetter struct {
	OriginalKey     string  `json:"originalKey"`
	OriginalPayload string  `json:"originalPayload"`
	Process         Process `json:"process"`
	Error           string  `json:"error"`
}

// DeadLetterPublisher forwards failed steps to the dead-letter channel
//
//go:generate mockgen -destination=mocks/mock_dead_letter.go -package=mocks -source=deadletter.go DeadLetterPublisher
type DeadLetterPublisher interface {
	Publish(ctx context.Context, letter DeadLetter) error
}

// Producer writes a keyed record to a topic. *kafka.Producer implements it.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type topicPublisher struct {
	producer Producer
	topic    string
}

// NewTopicPublisher publishes dead letters as JSON to topic, keyed by the
// key of the original event.
func NewTopicPublisher(producer Producer, topic string) DeadLetterPublisher {
	return &topicPublisher{producer: producer, topic: topic}
}

func (p *topicPublisher) Publish(ctx context.Context, letter DeadLetter) error {
	value, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}
	return p.producer.Publish(ctx, p.topic, []byte(letter.OriginalKey), value)
}
