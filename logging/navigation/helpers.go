// Package navigation publishes navigation mesh mutations.
package navigation

import (
	"context"

	"github.com/GroggNorvek/RaSpider/logging"
)

const (
	EventMeshBuilt       logging.EventType = "navigation.mesh_built"
	EventWebLinked       logging.EventType = "navigation.web_linked"
	EventSiteAdded       logging.EventType = "navigation.site_added"
	EventSiteRemoved     logging.EventType = "navigation.site_removed"
	EventPathUnavailable logging.EventType = "navigation.path_unavailable"
)

// MeshPayload mirrors the mesh statistics at the time of the event.
type MeshPayload struct {
	Nodes      int    `json:"nodes"`
	Walkable   int    `json:"walkable"`
	Edges      int    `json:"edges"`
	Sites      int    `json:"sites"`
	Generation uint64 `json:"generation"`
}

type WebLinkedPayload struct {
	NodesTouched int    `json:"nodesTouched"`
	Generation   uint64 `json:"generation"`
}

type SitePayload struct {
	Nodes      int    `json:"nodes"`
	Generation uint64 `json:"generation"`
}

type PathUnavailablePayload struct {
	FromX float64 `json:"fromX"`
	FromY float64 `json:"fromY"`
	ToX   float64 `json:"toX"`
	ToY   float64 `json:"toY"`
}

func MeshBuilt(ctx context.Context, pub logging.Publisher, tick uint64, payload MeshPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMeshBuilt,
		Tick:     tick,
		Actor:    logging.World(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

func WebLinked(ctx context.Context, pub logging.Publisher, tick uint64, web logging.EntityRef, payload WebLinkedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWebLinked,
		Tick:     tick,
		Actor:    web,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

func SiteAdded(ctx context.Context, pub logging.Publisher, tick uint64, order logging.EntityRef, payload SitePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSiteAdded,
		Tick:     tick,
		Actor:    order,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

func SiteRemoved(ctx context.Context, pub logging.Publisher, tick uint64, order logging.EntityRef, payload SitePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSiteRemoved,
		Tick:     tick,
		Actor:    order,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

// PathUnavailable reports a worker that fell back to direct movement because
// the mesh had no route.
func PathUnavailable(ctx context.Context, pub logging.Publisher, tick uint64, spider logging.EntityRef, payload PathUnavailablePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathUnavailable,
		Tick:     tick,
		Actor:    spider,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}
