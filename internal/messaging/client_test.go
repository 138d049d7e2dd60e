package messaging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waypoint-sequencer/internal/models"
)

type recordingClient struct {
	topics   []string
	payloads [][]byte
	qos      []byte
}

func (c *recordingClient) Publish(topic string, qos byte, _ bool, payload interface{}) error {
	c.topics = append(c.topics, topic)
	c.qos = append(c.qos, qos)
	c.payloads = append(c.payloads, payload.([]byte))
	return nil
}

func (c *recordingClient) Subscribe(string, byte, MessageHandler) error { return nil }
func (c *recordingClient) Disconnect(uint)                              {}
func (c *recordingClient) IsConnected() bool                            { return true }

type stubMessage struct {
	topic   string
	payload []byte
}

func (m *stubMessage) Duplicate() bool   { return false }
func (m *stubMessage) Qos() byte         { return 1 }
func (m *stubMessage) Retained() bool    { return false }
func (m *stubMessage) Topic() string     { return m.topic }
func (m *stubMessage) MessageID() uint16 { return 1 }
func (m *stubMessage) Payload() []byte   { return m.payload }
func (m *stubMessage) Ack()              {}

func TestPublishJSON(t *testing.T) {
	c := &recordingClient{}

	require.NoError(t, PublishJSON(c, "uagv/v2/Acme/AMR7/order", map[string]string{"orderId": "o-1"}))
	require.Len(t, c.payloads, 1)
	assert.Equal(t, "uagv/v2/Acme/AMR7/order", c.topics[0])
	assert.Equal(t, byte(1), c.qos[0])
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(c.payloads[0]))

	err := PublishJSON(c, "uagv/v2/Acme/AMR7/order", make(chan int))
	assert.Error(t, err)
	assert.Len(t, c.payloads, 1)
}

func TestStateHandler(t *testing.T) {
	var got []*models.RobotStateMessage
	var errs []error
	handler := StateHandler(
		func(s *models.RobotStateMessage) { got = append(got, s) },
		func(err error) { errs = append(errs, err) },
	)

	payload, err := json.Marshal(models.RobotStateMessage{OrderID: "o-1", Driving: true})
	require.NoError(t, err)

	handler(nil, &stubMessage{topic: "state", payload: payload})
	handler(nil, &stubMessage{topic: "state", payload: []byte("{broken")})

	require.Len(t, got, 1)
	assert.Equal(t, "o-1", got[0].OrderID)
	assert.True(t, got[0].Driving)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "state")
}

func TestStateHandlerWithoutErrorCallback(t *testing.T) {
	called := false
	handler := StateHandler(func(*models.RobotStateMessage) { called = true }, nil)

	assert.NotPanics(t, func() {
		handler(nil, &stubMessage{topic: "state", payload: []byte("not json")})
	})
	assert.False(t, called)
}
