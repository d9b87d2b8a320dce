package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromActionVelocityTable(t *testing.T) {
	tests := []struct {
		action   string
		scale    float64
		linearX  float64
		linearY  float64
		angularZ float64
	}{
		{"w", 1.0, 0.3, 0, 0},
		{"s", 1.0, -0.3, 0, 0},
		{"a", 1.0, 0, 0.3, 0},
		{"d", 1.0, 0, -0.3, 0},
		{"q", 1.0, 0.3, 0.3, 0},
		{"e", 1.0, 0.3, -0.3, 0},
		{"z", 1.0, -0.3, 0.3, 0},
		{"c", 1.0, -0.3, -0.3, 0},
		{"left", 1.0, 0, 0, 0.5},
		{"right", 1.0, 0, 0, -0.5},
		{"stop", 1.0, 0, 0, 0},
		{"w", 2.0, 0.6, 0, 0},
		{"left", 2.0, 0, 0, 1.0},
		{"q", 0.5, 0.15, 0.15, 0},
	}

	for _, tt := range tests {
		cmd := FromAction(tt.action, tt.scale)
		assert.InDelta(t, tt.linearX, cmd.LinearX, 1e-9, "linearX for %q", tt.action)
		assert.InDelta(t, tt.linearY, cmd.LinearY, 1e-9, "linearY for %q", tt.action)
		assert.InDelta(t, tt.angularZ, cmd.AngularZ, 1e-9, "angularZ for %q", tt.action)
		assert.Equal(t, tt.action, cmd.Action)
		assert.Equal(t, tt.scale, cmd.SpeedMultiplier)
	}
}

func TestFromActionUnknownTokenIsZero(t *testing.T) {
	for _, action := range []string{"x", "jump", "", "W SPACE"} {
		cmd := FromAction(action, 2.5)
		assert.True(t, cmd.IsStop(), "action %q should resolve to the zero vector", action)
	}
}

func TestFromActionIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, FromAction("w", 1.0).LinearX, FromAction("W", 1.0).LinearX)
	assert.Equal(t, FromAction("left", 1.0).AngularZ, FromAction("LEFT", 1.0).AngularZ)
}

func TestIsStop(t *testing.T) {
	movers := []string{"w", "s", "a", "d", "q", "e", "z", "c", "left", "right"}
	for _, action := range movers {
		assert.False(t, FromAction(action, 1.0).IsStop(), "%q must not read as stop", action)
	}
	assert.True(t, FromAction("stop", 1.0).IsStop())
	// A zero multiplier is below the clamp range, but IsStop must still hold
	// for the vector it produces.
	assert.True(t, FromAction("w", 0).IsStop())
}

func TestSpeedControllerIncrease(t *testing.T) {
	s := NewSpeedController()
	assert.Equal(t, 1.0, s.Value())

	s.Increase()
	s.Increase()
	v := s.Increase()
	assert.InDelta(t, 1.6, v, 1e-9)
}

func TestSpeedControllerClampHigh(t *testing.T) {
	s := NewSpeedController()
	for i := 0; i < 20; i++ {
		s.Increase()
	}
	assert.InDelta(t, SpeedMax, s.Value(), 1e-9)
	assert.InDelta(t, SpeedMax, s.Increase(), 1e-9)
}

func TestSpeedControllerClampLow(t *testing.T) {
	s := NewSpeedController()
	for i := 0; i < 20; i++ {
		s.Decrease()
	}
	assert.InDelta(t, SpeedMin, s.Value(), 1e-9)
}

func TestSpeedControllerSetClamps(t *testing.T) {
	s := NewSpeedController()
	assert.InDelta(t, SpeedMax, s.Set(99), 1e-9)
	assert.InDelta(t, SpeedMin, s.Set(-1), 1e-9)
	assert.InDelta(t, 1.4, s.Set(1.4), 1e-9)
}

func TestTwistStampedPayload(t *testing.T) {
	cmd := FromAction("e", 1.0)
	msg := cmd.TwistStamped()

	assert.Equal(t, "base_link", msg.Header.FrameID)
	assert.Equal(t, 0, msg.Header.Stamp.Sec)
	assert.Equal(t, 0, msg.Header.Stamp.Nanosec)
	assert.InDelta(t, 0.3, msg.Twist.Linear.X, 1e-9)
	assert.InDelta(t, -0.3, msg.Twist.Linear.Y, 1e-9)
	assert.Equal(t, 0.0, msg.Twist.Linear.Z)
	assert.Equal(t, 0.0, msg.Twist.Angular.X)
	assert.Equal(t, 0.0, msg.Twist.Angular.Y)
	assert.Equal(t, 0.0, msg.Twist.Angular.Z)
}
