package events

import (
	"context"
	"encoding/json"

	"ai-hovertip-be/internal/pkg/logger"
	pkgEvents "ai-hovertip-be/pkg/events"
	pktNats "ai-hovertip-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TopicUsage is the in-process bus topic all gate state changes land
// on. The websocket relay subscribes to it.
const TopicUsage = "usage-events"

// Publisher abstracts event publishing for gate and settings state
// changes. Small primitive signatures keep the gate free of event-bus
// types.
type Publisher interface {
	PublishUsageUpdated(ctx context.Context, installID, plan string, used, limit, remaining int)
	PublishTierExhausted(ctx context.Context, installID string, used, limit int)
	PublishPlanChanged(ctx context.Context, installID, oldPlan, newPlan string)
}

// Envelope is the wire shape on the in-process bus.
type Envelope struct {
	Type      string                 `json:"type"`
	InstallID string                 `json:"install_id"`
	Data      map[string]interface{} `json:"data"`
}

// BusPublisher fans events out to the watermill bus and, when
// configured, mirrors them to NATS for out-of-process consumers.
type BusPublisher struct {
	bus    message.Publisher
	nats   *pktNats.Publisher
	logger logger.ILogger
}

func NewBusPublisher(bus message.Publisher, natsPub *pktNats.Publisher, log logger.ILogger) *BusPublisher {
	return &BusPublisher{
		bus:    bus,
		nats:   natsPub,
		logger: log,
	}
}

func (p *BusPublisher) PublishUsageUpdated(ctx context.Context, installID, plan string, used, limit, remaining int) {
	p.publish(ctx, pkgEvents.TypeUsageUpdated, installID, map[string]interface{}{
		"plan":      plan,
		"used":      used,
		"limit":     limit,
		"remaining": remaining,
	})
}

func (p *BusPublisher) PublishTierExhausted(ctx context.Context, installID string, used, limit int) {
	p.publish(ctx, pkgEvents.TypeTierExhausted, installID, map[string]interface{}{
		"used":  used,
		"limit": limit,
	})
}

func (p *BusPublisher) PublishPlanChanged(ctx context.Context, installID, oldPlan, newPlan string) {
	p.publish(ctx, pkgEvents.TypePlanChanged, installID, map[string]interface{}{
		"old_plan": oldPlan,
		"new_plan": newPlan,
	})
}

func (p *BusPublisher) publish(ctx context.Context, eventType, installID string, data map[string]interface{}) {
	payload, err := json.Marshal(Envelope{
		Type:      eventType,
		InstallID: installID,
		Data:      data,
	})
	if err != nil {
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.bus.Publish(TopicUsage, msg); err != nil {
		p.logger.Error("EVENTS", "Failed to publish to bus", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}

	if p.nats != nil {
		evt := pkgEvents.NewUsageEvent(eventType, installID, data)
		if err := p.nats.Publish(ctx, evt); err != nil {
			p.logger.Warn("EVENTS", "Failed to mirror event to NATS", map[string]interface{}{
				"type":  eventType,
				"error": err.Error(),
			})
		}
	}
}

// NoopPublisher drops everything. Tests and the simulation use it.
type NoopPublisher struct{}

func (NoopPublisher) PublishUsageUpdated(context.Context, string, string, int, int, int) {}
func (NoopPublisher) PublishTierExhausted(context.Context, string, int, int)             {}
func (NoopPublisher) PublishPlanChanged(context.Context, string, string, string)         {}
