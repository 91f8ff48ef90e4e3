package events

import (
	"context"
	"encoding/json"

	"ai-hovertip-be/internal/pkg/logger"
	internalWS "ai-hovertip-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Relay bridges the in-process usage bus to the websocket hub: every
// gate state change is pushed to the install it concerns.
type Relay struct {
	sub    message.Subscriber
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewRelay(sub message.Subscriber, hub *internalWS.Hub, log logger.ILogger) *Relay {
	return &Relay{
		sub:    sub,
		hub:    hub,
		logger: log,
	}
}

// Start consumes the usage topic until ctx is cancelled. Run it in its
// own goroutine.
func (r *Relay) Start(ctx context.Context) error {
	messages, err := r.sub.Subscribe(ctx, TopicUsage)
	if err != nil {
		return err
	}

	for msg := range messages {
		var env Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			r.logger.Warn("EVENTS", "Dropping malformed bus message", map[string]interface{}{
				"error": err.Error(),
			})
			msg.Ack()
			continue
		}

		r.hub.Send(env.InstallID, env.Type, env.Data)
		msg.Ack()
	}

	return nil
}
