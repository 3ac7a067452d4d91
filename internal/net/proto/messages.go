// Package proto defines the websocket wire format shared by the hub and the
// session handler.
package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/GroggNorvek/RaSpider/internal/geometry"
	"github.com/GroggNorvek/RaSpider/internal/sim"
	"github.com/GroggNorvek/RaSpider/internal/webtask"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeWorld         = "world"
	typeState         = "state"
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
)

// Client message type identifiers.
const (
	TypeDrag      = "drag"
	TypeOrder     = "order"
	TypeDebug     = "debug"
	TypeHeartbeat = "heartbeat"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeWorld         = typeWorld
	TypeState         = typeState
	TypeCommandAck    = typeCommandAck
	TypeCommandReject = typeCommandReject
)

// Reject reasons produced while decoding, before a command reaches the
// loop.
const (
	RejectMalformed   = "malformed"
	RejectUnsupported = "unsupported"
	RejectMissingArgs = "missing_args"
)

type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding maps a query parameter onto an encoding. Empty selects JSON.
func ParseEncoding(raw string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(EncodingJSON):
		return EncodingJSON, nil
	case string(EncodingMsgpack):
		return EncodingMsgpack, nil
	default:
		return EncodingJSON, fmt.Errorf("unknown encoding %q", raw)
	}
}

// FrameType is the websocket frame an encoding travels in.
func (e Encoding) FrameType() int {
	if e == EncodingMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Marshal renders v in the encoding.
func (e Encoding) Marshal(v any) ([]byte, error) {
	if e == EncodingMsgpack {
		return msgpack.Marshal(v)
	}
	return json.Marshal(v)
}

// ClientMessage captures an inbound websocket message from the client.
// Client messages are always JSON, whatever the snapshot encoding.
type ClientMessage struct {
	Ver     int            `json:"ver,omitempty"`
	Type    string         `json:"type" jsonschema:"required,enum=drag,enum=order,enum=debug,enum=heartbeat"`
	Seq     *uint64        `json:"seq,omitempty" jsonschema:"description=Client command sequence echoed in the ack or reject"`
	Start   *geometry.Vec2 `json:"start,omitempty"`
	End     *geometry.Vec2 `json:"end,omitempty"`
	WebType string         `json:"webType,omitempty" jsonschema:"enum=REGULAR,enum=NEST"`
	Enabled *bool          `json:"enabled,omitempty"`
	SentAt  int64          `json:"sentAt,omitempty"`
}

var ErrUnsupportedVersion = errors.New("unsupported client protocol version")

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("%w %d", ErrUnsupportedVersion, msg.Ver)
	}
	return msg, nil
}

// ClientCommand converts a command-carrying message into a simulation
// command. The reason is set when ok is false.
func ClientCommand(msg ClientMessage) (sim.Command, bool, string) {
	switch msg.Type {
	case TypeDrag:
		if msg.Start == nil || msg.End == nil {
			return sim.Command{}, false, RejectMissingArgs
		}
		return sim.Command{
			Type: sim.CommandDrag,
			Drag: &sim.DragCommand{Start: *msg.Start, End: *msg.End},
		}, true, ""
	case TypeOrder:
		if msg.Start == nil || msg.End == nil {
			return sim.Command{}, false, RejectMissingArgs
		}
		typ := webtask.Regular
		if strings.EqualFold(msg.WebType, string(webtask.Nest)) {
			typ = webtask.Nest
		}
		return sim.Command{
			Type:  sim.CommandCreateOrder,
			Order: &sim.OrderCommand{Start: *msg.Start, End: *msg.End, Type: typ},
		}, true, ""
	case TypeDebug:
		if msg.Enabled == nil {
			return sim.Command{}, false, RejectMissingArgs
		}
		return sim.Command{
			Type:  sim.CommandSetDebug,
			Debug: &sim.DebugCommand{Enabled: *msg.Enabled},
		}, true, ""
	default:
		return sim.Command{}, false, RejectUnsupported
	}
}

// WorldMessage is sent once per session with the static tree.
type WorldMessage struct {
	Ver   int        `json:"ver" msgpack:"ver"`
	Type  string     `json:"type" msgpack:"type"`
	RunID string     `json:"runId" msgpack:"runId"`
	World sim.Static `json:"world" msgpack:"world"`
}

func NewWorldMessage(runID string, static sim.Static) WorldMessage {
	return WorldMessage{Ver: Version, Type: typeWorld, RunID: runID, World: static}
}

type StateMessage struct {
	Ver        int          `json:"ver" msgpack:"ver"`
	Type       string       `json:"type" msgpack:"type"`
	ServerTime int64        `json:"serverTime" msgpack:"serverTime"`
	State      sim.Snapshot `json:"state" msgpack:"state"`
}

func NewStateMessage(serverTime int64, snap sim.Snapshot) StateMessage {
	return StateMessage{Ver: Version, Type: typeState, ServerTime: serverTime, State: snap}
}

type CommandAckMessage struct {
	Ver  int    `json:"ver" msgpack:"ver"`
	Type string `json:"type" msgpack:"type"`
	Seq  uint64 `json:"seq" msgpack:"seq"`
	Tick uint64 `json:"tick,omitempty" msgpack:"tick,omitempty"`
}

func NewCommandAck(seq, tick uint64) CommandAckMessage {
	return CommandAckMessage{Ver: Version, Type: typeCommandAck, Seq: seq, Tick: tick}
}

type CommandRejectMessage struct {
	Ver    int    `json:"ver" msgpack:"ver"`
	Type   string `json:"type" msgpack:"type"`
	Seq    uint64 `json:"seq" msgpack:"seq"`
	Reason string `json:"reason" msgpack:"reason"`
	Retry  bool   `json:"retry,omitempty" msgpack:"retry,omitempty"`
}

// NewCommandReject marks throttling rejections as retryable.
func NewCommandReject(seq uint64, reason string) CommandRejectMessage {
	return CommandRejectMessage{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    seq,
		Reason: reason,
		Retry:  reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull,
	}
}

type HeartbeatMessage struct {
	Ver        int    `json:"ver" msgpack:"ver"`
	Type       string `json:"type" msgpack:"type"`
	ServerTime int64  `json:"serverTime" msgpack:"serverTime"`
	ClientTime int64  `json:"clientTime" msgpack:"clientTime"`
}

func NewHeartbeat(serverTime, clientTime int64) HeartbeatMessage {
	return HeartbeatMessage{Ver: Version, Type: TypeHeartbeat, ServerTime: serverTime, ClientTime: clientTime}
}
