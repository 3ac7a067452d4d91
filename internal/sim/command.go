package sim

import (
	"time"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
)

type CommandType string

const (
	CommandCreateOrder CommandType = "CreateOrder"
	CommandDrag        CommandType = "Drag"
	CommandSetDebug    CommandType = "SetDebug"
)

// OrderCommand asks for a thread between two already resolved points.
type OrderCommand struct {
	Start geometry.Vec2     `json:"start"`
	End   geometry.Vec2     `json:"end"`
	Type  webtask.OrderType `json:"type"`
}

// DragCommand carries a raw drag gesture. Both endpoints are resolved
// against the surfaces when the command is applied.
type DragCommand struct {
	Start geometry.Vec2 `json:"start"`
	End   geometry.Vec2 `json:"end"`
}

type DebugCommand struct {
	Enabled bool `json:"enabled"`
}

// Command is an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64        `json:"originTick"`
	ActorID    string        `json:"actorId"`
	Type       CommandType   `json:"type"`
	IssuedAt   time.Time     `json:"issuedAt"`
	Order      *OrderCommand `json:"order,omitempty"`
	Drag       *DragCommand  `json:"drag,omitempty"`
	Debug      *DebugCommand `json:"debug,omitempty"`
}

// Valid reports whether the command carries the payload its type needs.
func (c Command) Valid() bool {
	switch c.Type {
	case CommandCreateOrder:
		return c.Order != nil
	case CommandDrag:
		return c.Drag != nil
	case CommandSetDebug:
		return c.Debug != nil
	default:
		return false
	}
}

// CommandOutcome records what applying a command did.
type CommandOutcome struct {
	Command Command `json:"command"`
	OrderID int     `json:"orderId,omitempty"`
	Err     error   `json:"-"`
}
