// Package telemetry carries free-text operational logs and process counters.
// Structured simulation events go through the logging package instead.
package telemetry

import (
	"log"
	"sort"
	"sync"
)

// Logger is the Printf surface every component logs through.
type Logger interface {
	Printf(format string, args ...any)
}

type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger. A nil logger discards output.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Metrics is the counter surface the simulation reports into.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Registry is an in-process Metrics implementation keyed by name.
type Registry struct {
	mu     sync.Mutex
	values map[string]uint64
}

func NewRegistry() *Registry {
	return &Registry{values: make(map[string]uint64)}
}

func (r *Registry) Add(key string, delta uint64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.values[key] += delta
	r.mu.Unlock()
}

func (r *Registry) Store(key string, value uint64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.values[key] = value
	r.mu.Unlock()
}

func (r *Registry) Value(key string) uint64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key]
}

// Snapshot copies every metric.
func (r *Registry) Snapshot() map[string]uint64 {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]uint64, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Keys lists metric names in sorted order.
func (r *Registry) Keys() []string {
	snap := r.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
