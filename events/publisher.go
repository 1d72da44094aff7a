// Package events publishes twin telemetry to an external bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type Kind string

const (
	KindReading Kind = "reading"
	KindAction  Kind = "action"
	KindPlant   Kind = "plant_state"
	KindFactory Kind = "factory_state"
)

// Envelope wraps every published payload.
type Envelope struct {
	Twin      string    `json:"twin"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Nop drops everything. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }
func (Nop) Close() error                            { return nil }

// KafkaPublisher writes envelopes to one topic, keyed by twin so each twin's
// events stay ordered within a partition.
type KafkaPublisher struct {
	w   *kafka.Writer
	log *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Error("kafka write failed", "err", err, "messages", len(messages))
				}
			},
		},
		log: log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	msg, err := Message(env)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Message encodes env as a kafka message.
func Message(env Envelope) (kafka.Message, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", env.Kind, err)
	}
	return kafka.Message{Key: []byte(env.Twin), Value: b, Time: env.Timestamp}, nil
}
