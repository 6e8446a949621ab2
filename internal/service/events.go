package service

import (
	"context"

	"github.com/Tomlord1122/space-todo/internal/events"
	"github.com/Tomlord1122/space-todo/internal/logger"
)

// publish never fails the calling mutation; the event stream is best effort.
func publish(ctx context.Context, pub events.Publisher, ev events.Event) {
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "Publishing event failed", "type", ev.Type, "id", ev.EntityID, "error", err)
	}
}
