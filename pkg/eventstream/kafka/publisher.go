// Package kafka publishes sample events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/authorid/authorid/pkg/eventstream"
)

// Writer is the subset of *kafkago.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher writes each event as a JSON message keyed by user ID, so events
// for one user land on one partition in order.
type Publisher struct {
	writer Writer
	topic  string
}

// NewPublisher creates a publisher backed by a kafka-go Writer.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	return NewPublisherWithWriter(w, cfg.Topic), nil
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w Writer, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// PublishSample serializes the event and writes it synchronously.
func (p *Publisher) PublishSample(ctx context.Context, event *eventstream.SampleEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling sample event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", event.EventType, p.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
