package logging

import "context"

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

type fieldPublisher struct {
	next   Publisher
	fields map[string]any
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	p.next.Publish(ctx, event.withDefaults(p.fields))
}

// WithFields decorates every event published through p with the given extra
// fields. Fields already present on an event win.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &fieldPublisher{next: p, fields: copied}
}

// Fanout publishes every event to each non-nil publisher in order.
func Fanout(pubs ...Publisher) Publisher {
	active := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return NopPublisher()
	}
	if len(active) == 1 {
		return active[0]
	}
	return PublisherFunc(func(ctx context.Context, event Event) {
		for _, p := range active {
			p.Publish(ctx, event)
		}
	})
}
