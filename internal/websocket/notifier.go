package websocket

import (
	"context"
	"log/slog"
	"time"

	"licensegate/pkg/contracts/domain"
	"licensegate/pkg/contracts/events"
)

const notifyTimeout = time.Second

// HubNotifier pushes guard events to every connected client.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier broadcasting on hub
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// Notify implements notify.Notifier
func (n *HubNotifier) Notify(ctx context.Context, event domain.GuardEvent) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := n.hub.Broadcast(ctx, events.TypeGuardEvent, event); err != nil {
		n.hub.logger.WarnContext(ctx, "Failed to broadcast guard event",
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}
