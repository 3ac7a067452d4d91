package ws

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GroggNorvek/RaSpider/internal/hub"
	"github.com/GroggNorvek/RaSpider/internal/net/proto"
	"github.com/GroggNorvek/RaSpider/internal/telemetry"
	"github.com/GroggNorvek/RaSpider/logging"
	"github.com/GroggNorvek/RaSpider/logging/network"
)

const (
	defaultReadLimit        = 4096
	defaultHeartbeatTimeout = 30 * time.Second
)

type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	ReadLimit int64
	// HeartbeatTimeout closes a session that stays silent this long.
	HeartbeatTimeout time.Duration
}

type Handler struct {
	hub      *hub.Hub
	logger   telemetry.Logger
	pub      logging.Publisher
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub, cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaultReadLimit
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	return &Handler{
		hub:    h,
		logger: cfg.Logger,
		pub:    cfg.Publisher,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the request and serves the session until the client goes
// away. ?encoding=msgpack switches server frames to binary msgpack.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	encoding, err := proto.ParseEncoding(r.URL.Query().Get("encoding"))
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub, err := h.hub.Subscribe(conn, encoding, r.RemoteAddr)
	if err != nil {
		h.logger.Printf("failed to send initial state to %s: %v", r.RemoteAddr, err)
		conn.Close()
		return
	}
	h.serve(r.Context(), sub, conn)
}

func (h *Handler) serve(ctx context.Context, sub *hub.Subscriber, conn *websocket.Conn) {
	defer h.hub.Disconnect(sub.ID)
	conn.SetReadLimit(h.cfg.ReadLimit)
	session := network.Session(sub.ID)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.HeartbeatTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("session %s read ended: %v", sub.ID, err)
			}
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			network.BadMessage(ctx, h.pub, h.hub.Tick(), session, network.BadMessagePayload{Error: err.Error()})
			h.logger.Printf("discarding malformed message from %s: %v", sub.ID, err)
			continue
		}
		sub.Touch(time.Now())

		if msg.Type == proto.TypeHeartbeat {
			if err := sub.Send(proto.NewHeartbeat(time.Now().UnixMilli(), msg.SentAt)); err != nil {
				return
			}
			continue
		}

		seq := uint64(0)
		if msg.Seq != nil && *msg.Seq > 0 {
			seq = *msg.Seq
		}
		if seq > 0 {
			if last := sub.LastCommandSeq(); last > 0 && seq <= last {
				if err := sub.Send(proto.NewCommandAck(seq, 0)); err != nil {
					return
				}
				continue
			}
		}

		cmd, ok, reason := proto.ClientCommand(msg)
		if ok {
			cmd, ok, reason = h.hub.Enqueue(sub.ID, cmd)
		} else if reason == proto.RejectUnsupported {
			network.BadMessage(ctx, h.pub, h.hub.Tick(), session, network.BadMessagePayload{Error: "unknown message type " + msg.Type})
		}
		if seq == 0 {
			continue
		}
		var reply any
		if ok {
			sub.StoreLastCommandSeq(seq)
			reply = proto.NewCommandAck(seq, cmd.OriginTick)
		} else {
			reply = proto.NewCommandReject(seq, reason)
		}
		if err := sub.Send(reply); err != nil {
			return
		}
	}
}
