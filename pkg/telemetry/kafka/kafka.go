// Package kafka publishes telemetry records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

const sinkName = "kafka"

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "ragloop.exchanges"

// Config configures the Kafka sink.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds each produce call (defaults to 10s).
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Sink writes each record as a JSON message keyed by trace ID.
type Sink struct {
	writer messageWriter
	topic  string
}

// New creates a Kafka sink backed by a kafka-go Writer.
func New(c Config) (*Sink, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           c.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return &Sink{writer: w, topic: c.Topic}, nil
}

// NewWithWriter creates a sink over an existing writer.
func NewWithWriter(w messageWriter, topic string) *Sink {
	return &Sink{writer: w, topic: topic}
}

// Record produces rec to the topic. Messages with the same trace ID land on
// the same partition.
func (s *Sink) Record(ctx context.Context, rec *telemetry.Record) error {
	if rec == nil {
		return telemetry.ErrNilRecord
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("marshal record: %w", err))
	}

	msg := kafkago.Message{
		Key:   []byte(rec.TraceID),
		Value: value,
		Time:  rec.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(rec.EventType)},
			{Key: "status", Value: []byte(rec.Status)},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("write to topic %s: %w", s.topic, err))
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

var _ telemetry.Sink = (*Sink)(nil)
