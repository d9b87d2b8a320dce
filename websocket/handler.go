package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rmitbot/robot-gateway/auth"
	"github.com/rmitbot/robot-gateway/command"
	"github.com/rmitbot/robot-gateway/relay"
	"github.com/rmitbot/robot-gateway/rosbridge"
	"github.com/rmitbot/robot-gateway/session"
)

var log = logrus.WithField("component", "websocket")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Bridge is the slice of the upstream connection the handler needs for the
// status surface.
type Bridge interface {
	IsConnected() bool
	Status() rosbridge.Status
}

// Handler upgrades downstream connections and speaks the session protocol:
// movement commands, speed changes, keepalives, status queries and relay
// membership.
type Handler struct {
	registry *session.Registry
	gateway  *command.Gateway
	speed    *command.SpeedController
	bridge   Bridge
	relays   map[string]*relay.Relay
	verifier *auth.Verifier // nil disables the token check
}

func NewHandler(registry *session.Registry, gateway *command.Gateway,
	speed *command.SpeedController, bridge Bridge,
	relays map[string]*relay.Relay, verifier *auth.Verifier) *Handler {
	return &Handler{
		registry: registry,
		gateway:  gateway,
		speed:    speed,
		bridge:   bridge,
		relays:   relays,
		verifier: verifier,
	}
}

// HandleWebSocket upgrades the request and runs the session's read loop
// until the client goes away.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.verifier != nil {
		if _, err := h.verifier.VerifyRequest(r); err != nil {
			log.WithError(err).Warn("rejecting unauthenticated session")
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("websocket upgrade failed")
		return
	}

	sess := NewClientSession(uuid.NewString(), conn)
	h.registry.Add(sess)
	log.WithField("session", sess.ID()).Info("session established")

	sess.Send(Welcome{
		Type:               "connected",
		Message:            "Connected to robot gateway",
		SpeedMultiplier:    h.speed.Value(),
		ROSBridgeConnected: h.bridge.IsConnected(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn.SetPongHandler(func(string) error { sess.UpdateActivity(); return nil })
	go sess.StartPingSender(ctx)
	go sess.StartActivityChecker(ctx, func() {
		log.WithField("session", sess.ID()).Warn("session timed out")
		h.drop(sess)
		cancel()
	})

	h.registry.TrackWork()
	defer h.registry.DoneWork()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.WithError(err).WithField("session", sess.ID()).Debug("read loop ended")
			break
		}
		sess.UpdateActivity()
		h.dispatch(sess, data)
	}

	h.drop(sess)
	log.WithField("session", sess.ID()).Info("session closed")
}

// drop removes the session from the shared registry and every relay.
func (h *Handler) drop(sess *ClientSession) {
	for _, r := range h.relays {
		r.Unregister(sess.ID())
	}
	h.registry.Remove(sess.ID())
}

// dispatch routes one inbound frame. Any parse or processing failure earns
// the session an explicit error reply.
func (h *Handler) dispatch(sess *ClientSession, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendError(sess, "invalid message: "+err.Error())
		return
	}

	switch req.Type {
	case TypeCommand:
		h.handleCommand(sess, req)
	case TypeSpeed:
		h.handleSpeed(sess, req)
	case TypeStop:
		h.handleStop(sess)
	case TypePing:
		sess.Send(Pong{Type: "pong", Timestamp: now()})
	case TypeStatus:
		h.handleStatus(sess)
	case TypeSubscribeRelay:
		h.handleSubscribeRelay(sess, req)
	case TypeUnsubscribeRelay:
		h.handleUnsubscribeRelay(sess, req)
	default:
		h.sendError(sess, fmt.Sprintf("unknown message type: %q", req.Type))
	}
}

func (h *Handler) handleCommand(sess *ClientSession, req Request) {
	if req.Action == "" {
		h.sendError(sess, "command requires an action")
		return
	}

	cmd := command.FromAction(req.Action, h.speed.Value())
	if err := h.gateway.Send(cmd); err != nil {
		h.sendError(sess, "failed to send command: "+err.Error())
		return
	}

	sess.Send(CommandAck{
		Type:      "command_ack",
		Action:    cmd.Action,
		LinearX:   cmd.LinearX,
		LinearY:   cmd.LinearY,
		AngularZ:  cmd.AngularZ,
		Timestamp: now(),
	})
}

// handleSpeed adjusts the shared multiplier and broadcasts the new value to
// every live session.
func (h *Handler) handleSpeed(sess *ClientSession, req Request) {
	var value float64
	switch {
	case req.Action == "increase":
		value = h.speed.Increase()
	case req.Action == "decrease":
		value = h.speed.Decrease()
	case req.Value != nil:
		value = h.speed.Set(*req.Value)
	default:
		h.sendError(sess, "speed requires an action or a value")
		return
	}

	h.registry.Broadcast(SpeedUpdate{Type: "speed_update", SpeedMultiplier: value})
}

func (h *Handler) handleStop(sess *ClientSession) {
	if err := h.gateway.SendStop(); err != nil {
		h.sendError(sess, "failed to send stop: "+err.Error())
		return
	}
	sess.Send(Stopped{Type: "stopped", Timestamp: now()})
}

func (h *Handler) handleStatus(sess *ClientSession) {
	statuses := make([]relay.Status, 0, len(h.relays))
	for _, r := range h.relays {
		statuses = append(statuses, r.Status())
	}

	sess.Send(StatusReply{
		Type:            "status",
		ROSBridge:       h.bridge.Status(),
		Relays:          statuses,
		SpeedMultiplier: h.speed.Value(),
		Timestamp:       now(),
	})
}

func (h *Handler) handleSubscribeRelay(sess *ClientSession, req Request) {
	r, ok := h.relays[req.Relay]
	if !ok {
		h.sendError(sess, fmt.Sprintf("unknown relay: %q", req.Relay))
		return
	}

	r.Register(sess)
	sess.Send(RelayAck{
		Type:    "relay_subscribed",
		Relay:   req.Relay,
		Message: "Subscribed to " + req.Relay + " updates",
	})
}

func (h *Handler) handleUnsubscribeRelay(sess *ClientSession, req Request) {
	r, ok := h.relays[req.Relay]
	if !ok {
		h.sendError(sess, fmt.Sprintf("unknown relay: %q", req.Relay))
		return
	}

	r.Unregister(sess.ID())
	sess.Send(RelayAck{
		Type:    "relay_unsubscribed",
		Relay:   req.Relay,
		Message: "Unsubscribed from " + req.Relay + " updates",
	})
}

func (h *Handler) sendError(sess *ClientSession, msg string) {
	if err := sess.Send(ErrorReply{Type: "error", Message: msg, Timestamp: now()}); err != nil {
		log.WithError(err).WithField("session", sess.ID()).Debug("failed to send error reply")
	}
}

// CloseAll force-closes every downstream session, used during shutdown.
func (h *Handler) CloseAll(reason string) {
	h.registry.Range(func(s session.Session) bool {
		if cs, ok := s.(*ClientSession); ok {
			log.WithField("session", cs.ID()).Infof("closing session: %s", reason)
			cs.Close(websocket.CloseGoingAway, reason)
		}
		h.registry.Remove(s.ID())
		return true
	})
}
