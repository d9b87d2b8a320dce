package command

// TwistStamped mirrors ROS2 geometry_msgs/msg/TwistStamped. The stamp is left
// zeroed; rosbridge fills in receive time on the robot side.
type TwistStamped struct {
	Header Header `json:"header"`
	Twist  Twist  `json:"twist"`
}

type Header struct {
	Stamp   Stamp  `json:"stamp"`
	FrameID string `json:"frame_id"`
}

type Stamp struct {
	Sec     int `json:"sec"`
	Nanosec int `json:"nanosec"`
}

type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TwistStamped builds the wire payload for the command.
func (c Command) TwistStamped() TwistStamped {
	return TwistStamped{
		Header: Header{FrameID: "base_link"},
		Twist: Twist{
			Linear:  Vector3{X: c.LinearX, Y: c.LinearY},
			Angular: Vector3{Z: c.AngularZ},
		},
	}
}
