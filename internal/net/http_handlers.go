package net

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"github.com/GroggNorvek/RaSpider/internal/hub"
	"github.com/GroggNorvek/RaSpider/internal/net/proto"
	"github.com/GroggNorvek/RaSpider/internal/net/ws"
	"github.com/GroggNorvek/RaSpider/internal/telemetry"
	"github.com/GroggNorvek/RaSpider/logging"
)

// RouterStats is satisfied by *logging.Router.
type RouterStats interface {
	Stats() logging.RouterStats
}

type HTTPHandlerConfig struct {
	Logger           telemetry.Logger
	Publisher        logging.Publisher
	Router           RouterStats
	Metrics          *telemetry.Registry
	EnablePprof      bool
	ReadLimit        int64
	HeartbeatTimeout time.Duration
}

func NewHTTPHandler(h *hub.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string                   `json:"status"`
			RunID      string                   `json:"runId"`
			ServerTime int64                    `json:"serverTime"`
			Tick       uint64                   `json:"tick"`
			TickRate   int                      `json:"tickRate"`
			Pending    int                      `json:"pendingCommands"`
			Sessions   []hub.DiagnosticsSession `json:"sessions"`
			Telemetry  telemetry.Snapshot       `json:"telemetry"`
			Metrics    map[string]uint64        `json:"metrics,omitempty"`
			Logging    *logging.RouterStats     `json:"logging,omitempty"`
		}{
			Status:     "ok",
			RunID:      h.RunID(),
			ServerTime: time.Now().UnixMilli(),
			Tick:       h.Tick(),
			TickRate:   h.TickRate(),
			Pending:    h.Pending(),
			Sessions:   h.DiagnosticsSnapshot(),
			Telemetry:  h.Counters().Snapshot(),
			Metrics:    cfg.Metrics.Snapshot(),
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/state", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, proto.NewStateMessage(time.Now().UnixMilli(), h.State()))
	})

	mux.HandleFunc("/world", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, proto.NewWorldMessage(h.RunID(), h.Static()))
	})

	sessions := ws.NewHandler(h, ws.HandlerConfig{
		Logger:           logger,
		Publisher:        cfg.Publisher,
		ReadLimit:        cfg.ReadLimit,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
	})
	mux.HandleFunc("/ws", sessions.Handle)

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
