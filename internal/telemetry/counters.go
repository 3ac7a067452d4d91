package telemetry

import (
	"sync/atomic"
	"time"
)

// Counters tracks the hub's broadcast and tick timing figures for the
// diagnostics endpoint.
type Counters struct {
	bytesSent          atomic.Uint64
	snapshotsSent      atomic.Uint64
	lastBroadcastBytes atomic.Uint64
	tickDurationMicros atomic.Int64
	tickOverruns       atomic.Uint64
	sessionsOpened     atomic.Uint64
	sessionsClosed     atomic.Uint64
}

type Snapshot struct {
	BytesSent          uint64 `json:"bytesSent"`
	SnapshotsSent      uint64 `json:"snapshotsSent"`
	LastBroadcastBytes uint64 `json:"lastBroadcastBytes"`
	TickDurationMicros int64  `json:"tickDurationMicros"`
	TickOverruns       uint64 `json:"tickOverruns"`
	ActiveSessions     uint64 `json:"activeSessions"`
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) RecordBroadcast(bytes, recipients int) {
	if bytes < 0 {
		bytes = 0
	}
	if recipients < 0 {
		recipients = 0
	}
	c.bytesSent.Add(uint64(bytes) * uint64(recipients))
	c.snapshotsSent.Add(uint64(recipients))
	c.lastBroadcastBytes.Store(uint64(bytes))
}

func (c *Counters) RecordTickDuration(d time.Duration) {
	micros := d.Microseconds()
	if micros < 0 {
		micros = 0
	}
	c.tickDurationMicros.Store(micros)
}

func (c *Counters) IncrementOverrun() {
	c.tickOverruns.Add(1)
}

func (c *Counters) SessionOpened() {
	c.sessionsOpened.Add(1)
}

func (c *Counters) SessionClosed() {
	c.sessionsClosed.Add(1)
}

func (c *Counters) Snapshot() Snapshot {
	opened := c.sessionsOpened.Load()
	closed := c.sessionsClosed.Load()
	active := uint64(0)
	if opened > closed {
		active = opened - closed
	}
	return Snapshot{
		BytesSent:          c.bytesSent.Load(),
		SnapshotsSent:      c.snapshotsSent.Load(),
		LastBroadcastBytes: c.lastBroadcastBytes.Load(),
		TickDurationMicros: c.tickDurationMicros.Load(),
		TickOverruns:       c.tickOverruns.Load(),
		ActiveSessions:     active,
	}
}
