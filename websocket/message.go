package websocket

import (
	"time"

	"github.com/rmitbot/robot-gateway/relay"
	"github.com/rmitbot/robot-gateway/rosbridge"
)

// Request message types accepted from downstream clients.
const (
	TypeCommand          = "command"
	TypeSpeed            = "speed"
	TypeStop             = "stop"
	TypePing             = "ping"
	TypeStatus           = "status"
	TypeSubscribeRelay   = "subscribe_relay"
	TypeUnsubscribeRelay = "unsubscribe_relay"
)

// Request is the single inbound envelope; which fields matter depends on
// Type.
type Request struct {
	Type   string   `json:"type"`
	Action string   `json:"action,omitempty"`
	Value  *float64 `json:"value,omitempty"`
	Relay  string   `json:"relay,omitempty"`
}

// Welcome is the handshake ack sent right after the upgrade.
type Welcome struct {
	Type               string  `json:"type"`
	Message            string  `json:"message"`
	SpeedMultiplier    float64 `json:"speedMultiplier"`
	ROSBridgeConnected bool    `json:"rosBridgeConnected"`
}

// CommandAck echoes the computed velocity vector back to the requester.
type CommandAck struct {
	Type      string  `json:"type"`
	Action    string  `json:"action"`
	LinearX   float64 `json:"linearX"`
	LinearY   float64 `json:"linearY"`
	AngularZ  float64 `json:"angularZ"`
	Timestamp int64   `json:"timestamp"`
}

// SpeedUpdate is broadcast to every session when the multiplier changes.
type SpeedUpdate struct {
	Type            string  `json:"type"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
}

// Stopped acknowledges a stop request.
type Stopped struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// Pong answers a keepalive ping.
type Pong struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// StatusReply is the connectivity snapshot for one session.
type StatusReply struct {
	Type            string           `json:"type"`
	ROSBridge       rosbridge.Status `json:"rosbridge"`
	Relays          []relay.Status   `json:"relays"`
	SpeedMultiplier float64          `json:"speedMultiplier"`
	Timestamp       int64            `json:"timestamp"`
}

// RelayAck confirms joining or leaving a sensor fan-out.
type RelayAck struct {
	Type    string `json:"type"`
	Relay   string `json:"relay"`
	Message string `json:"message"`
}

// ErrorReply is sent whenever a session's own request could not be parsed or
// processed; requests are never dropped silently.
type ErrorReply struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func now() int64 {
	return time.Now().UnixMilli()
}
