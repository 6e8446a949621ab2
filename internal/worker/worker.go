// Package worker consumes domain events and keeps caches coherent.
package worker

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/Tomlord1122/space-todo/internal/cache"
	"github.com/Tomlord1122/space-todo/internal/events"
	"github.com/Tomlord1122/space-todo/internal/logger"
)

// Reader is the subset of *kafka.Reader the worker uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader returns a consumer-group reader for the events topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Run reads events until ctx is done and invalidates cached task lists.
func Run(ctx context.Context, reader Reader, c cache.Cache) {
	defer reader.Close()

	logger.Info(ctx, "Event consumer started")
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				logger.Info(ctx, "Event consumer stopped")
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := Handle(ctx, msg.Value, c); err != nil {
			// Commit anyway so a poison message does not block the partition.
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}

// Handle applies one event payload.
func Handle(ctx context.Context, payload []byte, c cache.Cache) error {
	ev, err := events.Decode(payload)
	if err != nil {
		return err
	}
	switch ev.Type {
	case events.TaskCreated:
		if ev.SpaceID != "" {
			c.Invalidate(ctx, cache.TasksKey(ev.SpaceID))
		}
	default:
		logger.Debug(ctx, "Ignoring event", "type", ev.Type, "id", ev.EntityID)
	}
	return nil
}
