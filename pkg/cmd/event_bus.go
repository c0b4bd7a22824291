package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/ckpd/flowcanvas/pkg/channels/gochannel"
	"github.com/ckpd/flowcanvas/pkg/eventbus"
)

// NewEventBus creates the in-process event bus used by editor sessions.
func NewEventBus(logger *slog.Logger) (eventbus.EventBus, error) {
	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create pub/sub channel: %w", err)
	}

	return eventbus.NewWatermillEventBus(pub, sub), nil
}
