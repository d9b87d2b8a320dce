package command

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rmitbot/robot-gateway/rosbridge"
)

var log = logrus.WithField("component", "command")

// TwistStampedType is the ROS message type published on the velocity topic.
const TwistStampedType = "geometry_msgs/msg/TwistStamped"

// Publisher is the slice of the Bridge the gateway needs.
type Publisher interface {
	Publish(topic, msgType string, msg interface{}) error
	Advertise(topic, msgType string) error
	Unadvertise(topic string) error
	IsConnected() bool
}

// Gateway publishes velocity commands on the configured topic. It keeps no
// state beyond the scale factor of the last command it sent.
type Gateway struct {
	bridge Publisher
	topic  string

	mu        sync.Mutex
	lastScale float64
}

// NewGateway builds a Gateway publishing on the given velocity topic.
func NewGateway(bridge Publisher, topic string) *Gateway {
	return &Gateway{bridge: bridge, topic: topic, lastScale: 1.0}
}

// Advertise declares the velocity topic upstream. Called from the bridge's
// connect hook so the topic is re-advertised after every reconnect.
func (g *Gateway) Advertise() error {
	return g.bridge.Advertise(g.topic, TwistStampedType)
}

// Unadvertise withdraws the velocity topic, used during shutdown.
func (g *Gateway) Unadvertise() error {
	return g.bridge.Unadvertise(g.topic)
}

// Send publishes the command as a TwistStamped message. A down upstream
// connection drops the command: logged, not queued, not retried.
func (g *Gateway) Send(cmd Command) error {
	g.mu.Lock()
	g.lastScale = cmd.SpeedMultiplier
	g.mu.Unlock()

	err := g.bridge.Publish(g.topic, TwistStampedType, cmd.TwistStamped())
	if errors.Is(err, rosbridge.ErrNotConnected) {
		log.WithField("action", cmd.Action).Warn("command dropped: rosbridge not connected")
		return nil
	}
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"action":   cmd.Action,
		"linearX":  cmd.LinearX,
		"linearY":  cmd.LinearY,
		"angularZ": cmd.AngularZ,
	}).Debug("sent velocity command")
	return nil
}

// SendStop publishes a zero-velocity command at the last-used scale.
func (g *Gateway) SendStop() error {
	return g.Send(FromAction(ActionStop, g.LastScale()))
}

// LastScale returns the scale factor of the most recent command.
func (g *Gateway) LastScale() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastScale
}
