// Package logging carries structured simulation events from the tick loop to
// pluggable sinks without blocking the simulation.
package logging

import (
	"fmt"
	"strings"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity accepts the names produced by String, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return SeverityDebug, nil
	case "", "info":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", name)
	}
}

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindSpider  EntityKind = "spider"
	EntityKindOrder   EntityKind = "order"
	EntityKindWeb     EntityKind = "web"
	EntityKindPrey    EntityKind = "prey"
	EntityKindSession EntityKind = "session"
	EntityKindWorld   EntityKind = "world"
)

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

func Spider(id int) EntityRef {
	return EntityRef{ID: fmt.Sprintf("spider-%d", id), Kind: EntityKindSpider}
}

func Order(id int) EntityRef {
	return EntityRef{ID: fmt.Sprintf("order-%d", id), Kind: EntityKindOrder}
}

func Web(id int) EntityRef {
	return EntityRef{ID: fmt.Sprintf("web-%d", id), Kind: EntityKindWeb}
}

func Prey(id int) EntityRef {
	return EntityRef{ID: fmt.Sprintf("prey-%d", id), Kind: EntityKindPrey}
}

func World() EntityRef { return EntityRef{ID: "world", Kind: EntityKindWorld} }

const (
	CategoryConstruction = "construction"
	CategoryNavigation   = "navigation"
	CategoryPrey         = "prey"
	CategorySimulation   = "simulation"
	CategoryNetwork      = "network"
)

type Event struct {
	Type      EventType      `json:"type"`
	Tick      uint64         `json:"tick"`
	Time      time.Time      `json:"time"`
	Actor     EntityRef      `json:"actor"`
	Targets   []EntityRef    `json:"targets,omitempty"`
	Severity  Severity       `json:"severity"`
	Category  string         `json:"category,omitempty"`
	Payload   any            `json:"payload,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
	TraceID   string         `json:"traceId,omitempty"`
	CommandID string         `json:"commandId,omitempty"`
}

func (e Event) WithExtra(key string, value any) Event {
	e = e.clone()
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}

// clone copies the slices and maps so sinks never share mutable state with
// the publisher.
func (e Event) clone() Event {
	out := e
	if len(e.Targets) > 0 {
		out.Targets = append([]EntityRef(nil), e.Targets...)
	}
	if e.Extra != nil {
		out.Extra = make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Clone is exported for sinks that retain events.
func (e Event) Clone() Event {
	return e.clone()
}

func (e Event) withDefaults(fields map[string]any) Event {
	if len(fields) == 0 {
		return e
	}
	out := e.clone()
	if out.Extra == nil {
		out.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, exists := out.Extra[k]; !exists {
			out.Extra[k] = v
		}
	}
	return out
}
