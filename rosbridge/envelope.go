package rosbridge

import "encoding/json"

// Envelope is the rosbridge protocol frame. Only the fields belonging to the
// operation are ever populated, so the encoded form matches the wire shape
// exactly for each op.
type Envelope struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}

const (
	OpAdvertise   = "advertise"
	OpUnadvertise = "unadvertise"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpPublish     = "publish"
)

func NewAdvertise(topic, msgType string) Envelope {
	return Envelope{Op: OpAdvertise, Topic: topic, Type: msgType}
}

func NewUnadvertise(topic string) Envelope {
	return Envelope{Op: OpUnadvertise, Topic: topic}
}

func NewSubscribe(topic, msgType string) Envelope {
	return Envelope{Op: OpSubscribe, Topic: topic, Type: msgType}
}

func NewUnsubscribe(topic string) Envelope {
	return Envelope{Op: OpUnsubscribe, Topic: topic}
}

// NewPublish builds a publish frame. The payload is marshalled immediately so
// a bad payload surfaces at the call site rather than inside the transport.
func NewPublish(topic, msgType string, msg interface{}) (Envelope, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Op: OpPublish, Topic: topic, Type: msgType, Msg: raw}, nil
}

// Inbound is the delivery shape pushed by the broker for subscribed topics.
// Frames carrying an op but no topic (status, service responses) are ignored
// by the demultiplexer.
type Inbound struct {
	Op    string          `json:"op,omitempty"`
	Topic string          `json:"topic,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}
