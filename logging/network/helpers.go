package network

import (
	"context"

	"github.com/GroggNorvek/RaSpider/logging"
)

const (
	EventSessionOpened logging.EventType = "network.session_opened"
	EventSessionClosed logging.EventType = "network.session_closed"
	EventBadMessage    logging.EventType = "network.bad_message"
)

type SessionPayload struct {
	Encoding string `json:"encoding"`
	Remote   string `json:"remote,omitempty"`
}

type BadMessagePayload struct {
	Error string `json:"error"`
}

func Session(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindSession}
}

func SessionOpened(ctx context.Context, pub logging.Publisher, tick uint64, session logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionOpened,
		Tick:     tick,
		Actor:    session,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func SessionClosed(ctx context.Context, pub logging.Publisher, tick uint64, session logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionClosed,
		Tick:     tick,
		Actor:    session,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func BadMessage(ctx context.Context, pub logging.Publisher, tick uint64, session logging.EntityRef, payload BadMessagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBadMessage,
		Tick:     tick,
		Actor:    session,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
