package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 5 * time.Second

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
	// topic overrides the per-call topic when non-empty.
	topic string
}

// NewProducer returns an async producer: PublishEvent only enqueues, and
// delivery failures surface through l once the batch completes.
func NewProducer(brokers []string, topic string, l *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             logCompletion(l),
	}
	return NewProducerWithWriter(w, topic)
}

func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

// PublishEvent writes event as JSON. Messages with the same key land on the
// same partition, so events of one order stay ordered.
func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}
	if p.topic != "" {
		msg.Topic = p.topic
		msg.Headers = []kafka.Header{{Key: "stream", Value: []byte(topic)}}
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s failed: %w", msg.Topic, err)
	}
	return nil
}

func logCompletion(l *slog.Logger) func([]kafka.Message, error) {
	if l == nil {
		l = slog.Default()
	}
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			l.Error("kafka_publish_error", "topic", m.Topic, "key", string(m.Key), "error", err)
		}
	}
}

// Close flushes pending async batches.
func (p *Producer) Close() error {
	return p.writer.Close()
}
