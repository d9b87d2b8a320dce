// Package relay fans inbound sensor topics out to downstream sessions. Each
// relay owns a registry of subscribed sessions and a one-slot cache of the
// most recent payload, delivered immediately to late joiners.
package relay

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rmitbot/robot-gateway/rosbridge"
	"github.com/rmitbot/robot-gateway/session"
	"github.com/rmitbot/robot-gateway/store"
)

var log = logrus.WithField("component", "relay")

// Subscriber is the slice of the Bridge a relay needs.
type Subscriber interface {
	Subscribe(topic, msgType string, handler rosbridge.MessageHandler) error
	IsConnected() bool
}

// Config identifies the upstream topic and the downstream message kind.
type Config struct {
	Topic   string // upstream topic, e.g. "/scan"
	MsgType string // upstream message type, e.g. "sensor_msgs/msg/LaserScan"
	Kind    string // downstream "type" tag, e.g. "laser_scan"

	// Startup readiness poll: wait up to ReadyMaxAttempts * ReadyInterval
	// for the upstream connection before subscribing.
	ReadyInterval    time.Duration
	ReadyMaxAttempts int
}

// Update is the frame pushed to downstream sessions.
type Update struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Status is the relay's slice of the readiness surface.
type Status struct {
	Kind          string `json:"kind"`
	Topic         string `json:"topic"`
	Subscribed    bool   `json:"subscribed"`
	ActiveClients int    `json:"activeClients"`
	HasData       bool   `json:"hasData"`
}

// Relay replicates one upstream topic to every registered session.
type Relay struct {
	cfg      Config
	bridge   Subscriber
	sessions *session.Registry
	store    store.LastValueStore // nil when no warm cache is configured

	last       atomic.Value // json.RawMessage
	subscribed atomic.Bool
}

// New builds a relay with its own session registry. The store may be nil.
func New(cfg Config, bridge Subscriber, st store.LastValueStore) *Relay {
	if cfg.ReadyInterval <= 0 {
		cfg.ReadyInterval = time.Second
	}
	if cfg.ReadyMaxAttempts <= 0 {
		cfg.ReadyMaxAttempts = 20
	}
	return &Relay{
		cfg:      cfg,
		bridge:   bridge,
		sessions: session.NewRegistry(),
		store:    st,
	}
}

// Start warms the cache and waits for the upstream connection before
// subscribing. The wait is a bounded one-shot bootstrap: if the connection
// never comes up the topic stays unsubscribed and a warning is logged.
// Intended to run on its own goroutine.
func (r *Relay) Start(ctx context.Context) {
	r.warmCache(ctx)

	for attempt := 0; attempt < r.cfg.ReadyMaxAttempts; attempt++ {
		if r.bridge.IsConnected() {
			if err := r.Subscribe(); err != nil {
				log.WithError(err).WithField("topic", r.cfg.Topic).
					Warn("relay subscribe failed")
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.ReadyInterval):
		}
	}

	log.WithField("topic", r.cfg.Topic).
		Warn("could not subscribe: rosbridge never became ready")
}

// Subscribe issues the upstream subscription. Safe to call again after a
// reconnect; already-subscribed calls are no-ops.
func (r *Relay) Subscribe() error {
	if r.subscribed.Load() {
		return nil
	}
	if err := r.bridge.Subscribe(r.cfg.Topic, r.cfg.MsgType, r.handleMessage); err != nil {
		return err
	}
	r.subscribed.Store(true)
	log.WithField("topic", r.cfg.Topic).Info("relay subscribed")
	return nil
}

// Resubscribe re-issues the subscription after a reconnect.
func (r *Relay) Resubscribe() error {
	r.subscribed.Store(false)
	return r.Subscribe()
}

// Register adds a session to the fan-out set. If a payload is already cached
// the new session receives it immediately rather than waiting for the next
// broker push.
func (r *Relay) Register(s session.Session) {
	r.sessions.Add(s)
	log.WithFields(logrus.Fields{"session": s.ID(), "kind": r.cfg.Kind}).
		Info("session joined relay")

	if data := r.Latest(); data != nil && s.IsOpen() {
		if err := s.Send(Update{Type: r.cfg.Kind, Data: data}); err != nil {
			log.WithError(err).WithField("session", s.ID()).
				Warn("failed to send cached payload")
			r.sessions.Remove(s.ID())
		}
	}
}

// Unregister removes a session from the fan-out set. Idempotent.
func (r *Relay) Unregister(id string) {
	r.sessions.Remove(id)
}

// Latest returns the cached payload, or nil before the first delivery.
func (r *Relay) Latest() json.RawMessage {
	if v := r.last.Load(); v != nil {
		return v.(json.RawMessage)
	}
	return nil
}

// Status reports the relay snapshot for the readiness surface.
func (r *Relay) Status() Status {
	return Status{
		Kind:          r.cfg.Kind,
		Topic:         r.cfg.Topic,
		Subscribed:    r.subscribed.Load(),
		ActiveClients: r.sessions.Len(),
		HasData:       r.Latest() != nil,
	}
}

// handleMessage runs on the bridge read loop: cache first, then one full
// delivery pass over the registry. Dead sessions are pruned by the registry
// after the pass, so one failing session never blocks the rest, and all live
// sessions see this message before the next one is processed.
func (r *Relay) handleMessage(_ string, msg json.RawMessage) {
	r.last.Store(msg)

	if r.store != nil {
		go r.persist(msg)
	}

	r.sessions.Broadcast(Update{Type: r.cfg.Kind, Data: msg})
}

func (r *Relay) warmCache(ctx context.Context) {
	if r.store == nil {
		return
	}
	data, err := r.store.Get(ctx, r.cfg.Topic)
	if err != nil {
		log.WithError(err).WithField("topic", r.cfg.Topic).Warn("cache warm-up failed")
		return
	}
	if data != nil {
		r.last.Store(data)
		log.WithField("topic", r.cfg.Topic).Info("warmed cache from store")
	}
}

// persist writes the payload to the store off the read loop.
func (r *Relay) persist(msg json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.store.Put(ctx, r.cfg.Topic, msg); err != nil {
		log.WithError(err).WithField("topic", r.cfg.Topic).Warn("store write failed")
	}
}
