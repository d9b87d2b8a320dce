// Package command translates the controller's directional vocabulary into
// velocity commands and publishes them upstream as TwistStamped messages.
package command

import "strings"

// Base magnitudes, matching the robot's gamepad controller bindings.
const (
	baseLinear  = 0.3
	baseAngular = 0.5
)

// Action tokens. Movement keys mirror the WASD layout; q/e/z/c are the
// diagonals, left/right rotate in place.
const (
	ActionForward       = "w"
	ActionBackward      = "s"
	ActionStrafeLeft    = "a"
	ActionStrafeRight   = "d"
	ActionDiagFwdLeft   = "q"
	ActionDiagFwdRight  = "e"
	ActionDiagBackLeft  = "z"
	ActionDiagBackRight = "c"
	ActionRotateLeft    = "left"
	ActionRotateRight   = "right"
	ActionStop          = "stop"
)

// Command is a fully resolved movement command: the action token it came
// from, the scaled velocity components, and the multiplier that was applied.
type Command struct {
	Action          string  `json:"action"`
	LinearX         float64 `json:"linearX"`
	LinearY         float64 `json:"linearY"`
	AngularZ        float64 `json:"angularZ"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
}

// FromAction resolves an action token into a velocity command scaled by the
// multiplier. Unknown tokens resolve to the zero vector, same as "stop".
func FromAction(action string, speedMultiplier float64) Command {
	cmd := Command{Action: action, SpeedMultiplier: speedMultiplier}

	lin := baseLinear * speedMultiplier
	ang := baseAngular * speedMultiplier

	switch strings.ToLower(action) {
	case ActionForward:
		cmd.LinearX = lin
	case ActionBackward:
		cmd.LinearX = -lin
	case ActionStrafeLeft:
		cmd.LinearY = lin
	case ActionStrafeRight:
		cmd.LinearY = -lin
	case ActionDiagFwdLeft:
		cmd.LinearX = lin
		cmd.LinearY = lin
	case ActionDiagFwdRight:
		cmd.LinearX = lin
		cmd.LinearY = -lin
	case ActionDiagBackLeft:
		cmd.LinearX = -lin
		cmd.LinearY = lin
	case ActionDiagBackRight:
		cmd.LinearX = -lin
		cmd.LinearY = -lin
	case ActionRotateLeft:
		cmd.AngularZ = ang
	case ActionRotateRight:
		cmd.AngularZ = -ang
	case ActionStop:
	default:
	}

	return cmd
}

// IsStop reports whether every velocity component is exactly zero. Within the
// current vocabulary only "stop" and unknown tokens produce that.
func (c Command) IsStop() bool {
	return c.LinearX == 0.0 && c.LinearY == 0.0 && c.AngularZ == 0.0
}

// Vocabulary lists the accepted action tokens grouped the way the REST API
// reports them.
func Vocabulary() map[string][]string {
	return map[string][]string{
		"movement": {ActionForward, ActionStrafeLeft, ActionBackward, ActionStrafeRight,
			ActionDiagFwdLeft, ActionDiagFwdRight, ActionDiagBackLeft, ActionDiagBackRight},
		"rotation": {ActionRotateLeft, ActionRotateRight},
		"control":  {ActionStop},
	}
}
