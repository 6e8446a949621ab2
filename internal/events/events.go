// Package events publishes domain events about tasks and todos.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Tomlord1122/space-todo/internal/logger"
)

// Type names a domain event.
type Type string

const (
	TaskCreated   Type = "task.created"
	TodoCreated   Type = "todo.created"
	TodoCompleted Type = "todo.completed"
	TodoReopened  Type = "todo.reopened"
	TodoDeleted   Type = "todo.deleted"
)

// Event is the message payload written to the topic.
type Event struct {
	Type     Type      `json:"type"`
	EntityID string    `json:"entity_id"`
	SpaceID  string    `json:"space_id,omitempty"`
	ListID   string    `json:"list_id,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	At       time.Time `json:"at"`
}

// Decode parses a message value into an Event.
func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Kafka publishes events keyed by space (or list) so related events stay ordered.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(ctx context.Context, brokers []string, topic string) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	logger.Info(ctx, "Kafka producer initialized", "topic", topic, "brokers", brokers)
	return &Kafka{writer: w}
}

func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := ev.SpaceID
	if key == "" {
		key = ev.ListID
	}
	if key == "" {
		key = ev.EntityID
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// EnsureTopic creates topic when missing. Failures are logged, not returned,
// so the application still starts without a reachable broker.
func EnsureTopic(ctx context.Context, brokers []string, topic string, partitions int) {
	if len(brokers) == 0 {
		return
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		logger.Warn(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Warn(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Warn(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug(ctx, "Kafka create topic failed (topic may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", topic, "partitions", partitions)
}
