package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// HeaderMessageType carries the event or notification type, so consumers
// and tooling can route without decoding the payload.
const HeaderMessageType = "message-type"

// ErrMissingKey is returned for a message without a partition key. Order
// events rely on the key to stay in append order.
var ErrMissingKey = errors.New("kafka message needs a key")

// Typed is implemented by payloads that name their own type.
type Typed interface {
	MessageType() string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON messages to one topic, hash-partitioned by key so all
// messages about one order land on one partition.
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

func NewProducer(brokers []string, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic, now: time.Now}
}

// Publish implements store.Publisher and notification.Publisher.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	if key == "" {
		return ErrMissingKey
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode message for %s: %w", p.topic, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  p.now(),
	}
	if t, ok := event.(Typed); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: HeaderMessageType, Value: []byte(t.MessageType())})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
