// Package notify publishes insight lifecycle events to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"garden_insights/internal/logger"
	"garden_insights/internal/models"

	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	InsightCreated  EventType = "insight.created"
	InsightResolved EventType = "insight.resolved"
)

// Event is the JSON payload written per insight transition.
type Event struct {
	Type       EventType      `json:"type"`
	Insight    models.Insight `json:"insight"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Key groups every event of a (zone, metric) pair on one partition.
func (e Event) Key() string {
	return e.Insight.ZoneID + "|" + e.Insight.MetricKey
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
func (Nop) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic, keyed by pair.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    *logger.Logger
}

const writeTimeout = 10 * time.Second

// NewKafkaPublisher builds a publisher over a kafka.Writer. Topics are not
// auto-created.
func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
		WriteTimeout:           writeTimeout,
	}
	return newKafkaPublisher(w, topic, log), nil
}

func newKafkaPublisher(w messageWriter, topic string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log.Named("notify")}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event for %s: %w", ev.Type, ev.Insight.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Key()),
			Value: body,
			Time:  ev.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(ev.Type)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d events to %s: %w", len(msgs), p.topic, err)
	}
	p.log.Debugw("events_published", "topic", p.topic, "count", len(msgs))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
