package prey

import (
	"context"

	"github.com/GroggNorvek/RaSpider/logging"
)

const (
	EventSpawned logging.EventType = "prey.spawned"
	EventTrapped logging.EventType = "prey.trapped"
	EventStored  logging.EventType = "prey.stored"
	EventEscaped logging.EventType = "prey.escaped"
)

type PositionPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type StoredPayload struct {
	Stored   int `json:"stored"`
	Capacity int `json:"capacity"`
}

func Spawned(ctx context.Context, pub logging.Publisher, tick uint64, prey logging.EntityRef, payload PositionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSpawned,
		Tick:     tick,
		Actor:    prey,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryPrey,
		Payload:  payload,
	})
}

func Trapped(ctx context.Context, pub logging.Publisher, tick uint64, prey, web logging.EntityRef, payload PositionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTrapped,
		Tick:     tick,
		Actor:    prey,
		Targets:  []logging.EntityRef{web},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPrey,
		Payload:  payload,
	})
}

func Stored(ctx context.Context, pub logging.Publisher, tick uint64, prey, web logging.EntityRef, payload StoredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStored,
		Tick:     tick,
		Actor:    prey,
		Targets:  []logging.EntityRef{web},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPrey,
		Payload:  payload,
	})
}

// Escaped is emitted when a flying mosquito leaves the play area.
func Escaped(ctx context.Context, pub logging.Publisher, tick uint64, prey logging.EntityRef, payload PositionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEscaped,
		Tick:     tick,
		Actor:    prey,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryPrey,
		Payload:  payload,
	})
}
