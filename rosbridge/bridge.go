package rosbridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "rosbridge")

// ErrNotConnected is returned by topic operations attempted while the
// upstream connection is down. It signals a degraded no-op, not a failure the
// caller has to recover from.
var ErrNotConnected = errors.New("rosbridge: not connected")

// MessageHandler receives inbound messages for a subscribed topic. Handlers
// run synchronously on the read loop and must not block.
type MessageHandler func(topic string, msg json.RawMessage)

// Config holds the upstream connection settings.
type Config struct {
	URI                  string
	Enabled              bool
	ConnectTimeout       time.Duration
	ReconnectDelay       time.Duration
	ReconnectMaxAttempts int
}

// Status is the readiness snapshot exposed over the API.
type Status struct {
	Enabled           bool   `json:"enabled"`
	Connected         bool   `json:"connected"`
	URI               string `json:"uri"`
	ReconnectAttempts int    `json:"reconnectAttempts"`
}

// Bridge owns the single upstream rosbridge connection. It multiplexes topic
// subscriptions and publications over that connection and demultiplexes the
// inbound stream to per-topic handlers.
//
// Subscriptions registered here are not replayed after a reconnect; the
// owning caller re-issues them from the connect hook. A topic has exactly one
// handler: subscribing again replaces the previous one.
type Bridge struct {
	cfg  Config
	dial Dialer

	mu   sync.Mutex
	conn Transport

	connected atomic.Bool
	closing   atomic.Bool
	exhausted atomic.Bool
	dialing   atomic.Bool
	attempts  atomic.Int32

	retryMu sync.Mutex
	retry   backoff.BackOff
	pending atomic.Bool

	handlers  sync.Map // topic -> MessageHandler
	onConnect func()
}

// New builds a Bridge with the default websocket dialer. It does not connect.
func New(cfg Config) *Bridge {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.ReconnectMaxAttempts <= 0 {
		cfg.ReconnectMaxAttempts = 5
	}
	return &Bridge{
		cfg:  cfg,
		dial: DialWebSocket,
		retry: backoff.WithMaxRetries(
			backoff.NewConstantBackOff(cfg.ReconnectDelay),
			uint64(cfg.ReconnectMaxAttempts),
		),
	}
}

// SetOnConnect registers the hook invoked after every successful connect,
// including reconnects. The hook is where outbound topics get re-advertised
// and subscriptions re-issued.
func (b *Bridge) SetOnConnect(fn func()) {
	b.onConnect = fn
}

// Connect dials the upstream broker, blocking up to the configured timeout.
// On failure a reconnect attempt is scheduled. Calling Connect on an already
// connected bridge is a no-op.
func (b *Bridge) Connect(ctx context.Context) error {
	if b.IsConnected() {
		return nil
	}
	if !b.dialing.CompareAndSwap(false, true) {
		return nil
	}
	defer b.dialing.Store(false)

	ctx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
	defer cancel()

	log.WithField("uri", b.cfg.URI).Info("connecting to rosbridge")

	t, err := b.dial(ctx, b.cfg.URI)
	if err != nil {
		log.WithError(err).Error("rosbridge connect failed")
		b.scheduleReconnect()
		return err
	}

	b.mu.Lock()
	b.conn = t
	b.mu.Unlock()

	b.connected.Store(true)
	b.exhausted.Store(false)
	b.attempts.Store(0)

	b.retryMu.Lock()
	b.retry.Reset()
	b.retryMu.Unlock()

	go b.readLoop(t)

	log.Info("connected to rosbridge")
	if b.onConnect != nil {
		b.onConnect()
	}
	return nil
}

// IsConnected reports whether the transport is open and the connect handshake
// completed. Both must agree.
func (b *Bridge) IsConnected() bool {
	if !b.connected.Load() {
		return false
	}
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	return conn != nil && conn.IsOpen()
}

// Exhausted reports whether automatic reconnection gave up. The bridge stays
// usable: an explicit Connect restarts the cycle.
func (b *Bridge) Exhausted() bool {
	return b.exhausted.Load()
}

// Status returns the connection snapshot for the readiness surface.
func (b *Bridge) Status() Status {
	return Status{
		Enabled:           b.cfg.Enabled,
		Connected:         b.IsConnected(),
		URI:               b.cfg.URI,
		ReconnectAttempts: int(b.attempts.Load()),
	}
}

// Publish sends a publish frame for the topic. The protocol has no acks, so
// the only observable failure is a down connection or a broken write.
func (b *Bridge) Publish(topic, msgType string, msg interface{}) error {
	if !b.IsConnected() {
		log.WithField("topic", topic).Warn("publish dropped: not connected")
		return ErrNotConnected
	}
	env, err := NewPublish(topic, msgType, msg)
	if err != nil {
		return err
	}
	return b.send(env)
}

// Subscribe registers the handler for the topic and sends a subscribe frame.
// Last subscriber wins: a second Subscribe for the same topic replaces the
// handler. While disconnected the call is a no-op and nothing is remembered.
func (b *Bridge) Subscribe(topic, msgType string, handler MessageHandler) error {
	if !b.IsConnected() {
		log.WithField("topic", topic).Warn("subscribe dropped: not connected")
		return ErrNotConnected
	}
	b.handlers.Store(topic, handler)
	log.WithField("topic", topic).Info("subscribing")
	return b.send(NewSubscribe(topic, msgType))
}

// Unsubscribe removes the topic's handler regardless of connection state and
// sends an unsubscribe frame when connected.
func (b *Bridge) Unsubscribe(topic string) error {
	b.handlers.Delete(topic)
	if !b.IsConnected() {
		return ErrNotConnected
	}
	log.WithField("topic", topic).Info("unsubscribing")
	return b.send(NewUnsubscribe(topic))
}

// Advertise declares intent to publish on the topic.
func (b *Bridge) Advertise(topic, msgType string) error {
	if !b.IsConnected() {
		return ErrNotConnected
	}
	log.WithField("topic", topic).Info("advertising")
	return b.send(NewAdvertise(topic, msgType))
}

// Unadvertise withdraws a previously advertised topic.
func (b *Bridge) Unadvertise(topic string) error {
	if !b.IsConnected() {
		return ErrNotConnected
	}
	return b.send(NewUnadvertise(topic))
}

// Close shuts the upstream connection down for good; no reconnect is
// scheduled afterwards.
func (b *Bridge) Close() error {
	b.closing.Store(true)
	b.connected.Store(false)

	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (b *Bridge) send(env Envelope) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteJSON(env); err != nil {
		log.WithError(err).WithField("op", env.Op).Error("rosbridge write failed")
		return err
	}
	return nil
}

func (b *Bridge) readLoop(t Transport) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			break
		}
		b.dispatch(data)
	}

	// Only the current transport's read loop may drive the disconnect
	// transition; a stale loop from a replaced connection must not.
	b.mu.Lock()
	current := b.conn == t
	if current {
		b.conn = nil
	}
	b.mu.Unlock()

	if !current {
		return
	}

	b.connected.Store(false)
	if b.closing.Load() {
		return
	}

	log.Warn("rosbridge connection lost")
	b.scheduleReconnect()
}

// dispatch routes one inbound frame to its topic handler. Malformed frames
// and frames for unknown topics are dropped, never surfaced.
func (b *Bridge) dispatch(data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		log.WithError(err).Error("dropping malformed rosbridge frame")
		return
	}

	if in.Topic != "" {
		if h, ok := b.handlers.Load(in.Topic); ok {
			h.(MessageHandler)(in.Topic, in.Msg)
		}
		return
	}

	if in.Op != "" {
		log.WithField("op", in.Op).Trace("ignoring non-topic frame")
		return
	}

	log.Debug("dropping frame with no topic or op")
}

// scheduleReconnect arms a single retry timer per disconnect event. The
// backoff policy caps total retries; once it reports Stop the bridge settles
// in the exhausted state until an external Connect.
func (b *Bridge) scheduleReconnect() {
	if !b.pending.CompareAndSwap(false, true) {
		return
	}

	b.retryMu.Lock()
	d := b.retry.NextBackOff()
	b.retryMu.Unlock()

	if d == backoff.Stop {
		b.pending.Store(false)
		b.exhausted.Store(true)
		log.WithField("maxAttempts", b.cfg.ReconnectMaxAttempts).
			Error("max reconnection attempts reached")
		return
	}

	attempt := b.attempts.Add(1)
	log.WithFields(logrus.Fields{
		"attempt": attempt,
		"max":     b.cfg.ReconnectMaxAttempts,
		"delay":   d,
	}).Info("scheduling rosbridge reconnect")

	time.AfterFunc(d, func() {
		b.pending.Store(false)
		if !b.connected.Load() && !b.closing.Load() {
			b.Connect(context.Background())
		}
	})
}
