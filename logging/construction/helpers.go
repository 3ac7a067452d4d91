// Package construction publishes web-building lifecycle events.
package construction

import (
	"context"

	"github.com/GroggNorvek/RaSpider/logging"
)

const (
	EventOrderCreated   logging.EventType = "construction.order_created"
	EventOrderRejected  logging.EventType = "construction.order_rejected"
	EventOrderAssigned  logging.EventType = "construction.order_assigned"
	EventOrderAbandoned logging.EventType = "construction.order_abandoned"
	EventOrderCompleted logging.EventType = "construction.order_completed"
)

type OrderCreatedPayload struct {
	Type         string  `json:"type"`
	Length       float64 `json:"length"`
	SilkRequired int     `json:"silkRequired"`
}

type OrderRejectedPayload struct {
	Reason string `json:"reason"`
}

type OrderAssignedPayload struct {
	Distance float64 `json:"distance"`
	Silk     float64 `json:"silk"`
}

type OrderAbandonedPayload struct {
	Progress     float64 `json:"progress"`
	SilkRequired int     `json:"silkRequired"`
}

type OrderCompletedPayload struct {
	Type       string `json:"type"`
	NodesAdded int    `json:"nodesAdded"`
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryConstruction
	pub.Publish(ctx, event)
}

func OrderCreated(ctx context.Context, pub logging.Publisher, tick uint64, order logging.EntityRef, payload OrderCreatedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventOrderCreated,
		Tick:     tick,
		Actor:    order,
		Severity: logging.SeverityInfo,
		Payload:  payload,
		Extra:    extra,
	})
}

// OrderRejected reports a drag or order request that could not become an
// order, such as a zero-length segment.
func OrderRejected(ctx context.Context, pub logging.Publisher, tick uint64, payload OrderRejectedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventOrderRejected,
		Tick:     tick,
		Actor:    logging.World(),
		Severity: logging.SeverityWarn,
		Payload:  payload,
		Extra:    extra,
	})
}

func OrderAssigned(ctx context.Context, pub logging.Publisher, tick uint64, order, spider logging.EntityRef, payload OrderAssignedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventOrderAssigned,
		Tick:     tick,
		Actor:    order,
		Targets:  []logging.EntityRef{spider},
		Severity: logging.SeverityInfo,
		Payload:  payload,
		Extra:    extra,
	})
}

func OrderAbandoned(ctx context.Context, pub logging.Publisher, tick uint64, order, spider logging.EntityRef, payload OrderAbandonedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventOrderAbandoned,
		Tick:     tick,
		Actor:    spider,
		Targets:  []logging.EntityRef{order},
		Severity: logging.SeverityInfo,
		Payload:  payload,
		Extra:    extra,
	})
}

func OrderCompleted(ctx context.Context, pub logging.Publisher, tick uint64, order, web logging.EntityRef, payload OrderCompletedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventOrderCompleted,
		Tick:     tick,
		Actor:    order,
		Targets:  []logging.EntityRef{web},
		Severity: logging.SeverityInfo,
		Payload:  payload,
		Extra:    extra,
	})
}
