package rosbridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalToMap(t *testing.T, env Envelope) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestEnvelopeWireShapes(t *testing.T) {
	tests := []struct {
		name     string
		env      Envelope
		wantKeys []string
	}{
		{
			name:     "advertise",
			env:      NewAdvertise("/cmd_vel", "geometry_msgs/msg/TwistStamped"),
			wantKeys: []string{"op", "topic", "type"},
		},
		{
			name:     "unadvertise",
			env:      NewUnadvertise("/cmd_vel"),
			wantKeys: []string{"op", "topic"},
		},
		{
			name:     "subscribe",
			env:      NewSubscribe("/scan", "sensor_msgs/msg/LaserScan"),
			wantKeys: []string{"op", "topic", "type"},
		},
		{
			name:     "unsubscribe",
			env:      NewUnsubscribe("/scan"),
			wantKeys: []string{"op", "topic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := marshalToMap(t, tt.env)
			assert.Len(t, m, len(tt.wantKeys))
			for _, k := range tt.wantKeys {
				assert.Contains(t, m, k)
			}
			assert.Equal(t, tt.env.Op, m["op"])
			assert.Equal(t, tt.env.Topic, m["topic"])
		})
	}
}

func TestPublishEnvelopeIncludesMsg(t *testing.T) {
	env, err := NewPublish("/cmd_vel", "geometry_msgs/msg/TwistStamped",
		map[string]interface{}{"x": 0.3})
	require.NoError(t, err)

	m := marshalToMap(t, env)
	assert.Len(t, m, 4)
	assert.Equal(t, "publish", m["op"])
	assert.Equal(t, "/cmd_vel", m["topic"])
	assert.Equal(t, "geometry_msgs/msg/TwistStamped", m["type"])
	assert.Contains(t, m, "msg")
}

func TestPublishEnvelopeRoundTrip(t *testing.T) {
	payload := map[string]interface{}{
		"twist": map[string]interface{}{
			"linear": map[string]interface{}{"x": 0.3, "y": -0.3, "z": 0.0},
		},
	}
	env, err := NewPublish("/cmd_vel", "geometry_msgs/msg/TwistStamped", payload)
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, env.Op, decoded.Op)
	assert.Equal(t, env.Topic, decoded.Topic)
	assert.Equal(t, env.Type, decoded.Type)
	assert.JSONEq(t, string(env.Msg), string(decoded.Msg))
}

func TestNewPublishRejectsUnmarshalablePayload(t *testing.T) {
	_, err := NewPublish("/t", "type", make(chan int))
	assert.Error(t, err)
}
