package navigation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waypoint-sequencer/internal/common/constants"
	"waypoint-sequencer/internal/config"
	"waypoint-sequencer/internal/messaging"
	"waypoint-sequencer/internal/models"
	"waypoint-sequencer/internal/workflow"
)

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu         sync.Mutex
	published  []published
	handlers   map[string]messaging.MessageHandler
	publishErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]messaging.MessageHandler)}
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{topic: topic, payload: payload.([]byte)})
	return nil
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb messaging.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = cb
	return nil
}

func (c *fakeClient) Disconnect(uint)   {}
func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) sent(topic string) []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []published
	for _, p := range c.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

var _ mqtt.Message = (*fakeMessage)(nil)

type recorder struct {
	mu       sync.Mutex
	events   []string
	feedback []Feedback
	results  []Result
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnActive: func(h GoalHandle) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "active")
		},
		OnFeedback: func(h GoalHandle, fb Feedback) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "feedback")
			r.feedback = append(r.feedback, fb)
		},
		OnDone: func(h GoalHandle, res Result) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "done")
			r.results = append(r.results, res)
		},
	}
}

func (r *recorder) snapshot() ([]string, []Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...), append([]Result(nil), r.results...)
}

func newTestAdapter(t *testing.T, timeout time.Duration) (*MQTTAdapter, *fakeClient, *workflow.OrderBuilder) {
	t.Helper()
	cfg := &config.Config{
		RobotManufacturer:    "Acme",
		RobotSerialNumber:    "AMR7",
		InterfacePrefix:      "uagv/v2",
		GoalReachedTolerance: 0.25,
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	client := newFakeClient()
	builder := workflow.NewOrderBuilder(cfg)
	adapter := NewMQTTAdapter(client, builder, logger, timeout)
	require.NoError(t, adapter.Start())
	return adapter, client, builder
}

func sendTestGoal(t *testing.T, a *MQTTAdapter, c *fakeClient, b *workflow.OrderBuilder, cb Callbacks) models.OrderMessage {
	t.Helper()
	goal := Goal{Seq: 1, Index: 0, Frame: "map", Pose: models.NewPoseFromYaw(3, 4, 0, 0)}
	require.NoError(t, a.SendGoal(context.Background(), goal, cb))

	orders := c.sent(b.OrderTopic())
	require.NotEmpty(t, orders)
	var order models.OrderMessage
	require.NoError(t, json.Unmarshal(orders[len(orders)-1].payload, &order))
	require.Len(t, order.Nodes, 1)
	return order
}

func TestMQTTAdapterSendGoalPublishesOrder(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)
	order := sendTestGoal(t, a, c, b, Callbacks{})

	assert.Equal(t, "map", order.Nodes[0].NodePosition.MapID)
	assert.InDelta(t, 3.0, order.Nodes[0].NodePosition.X.Float64Value(), 1e-9)
	assert.True(t, a.Outstanding())

	err := a.SendGoal(context.Background(), Goal{Seq: 2, Pose: models.NewPoseFromYaw(0, 0, 0, 0)}, Callbacks{})
	assert.ErrorIs(t, err, ErrGoalOutstanding)
	assert.Len(t, c.sent(b.OrderTopic()), 1)
}

func TestMQTTAdapterSendGoalPublishFailure(t *testing.T) {
	a, c, _ := newTestAdapter(t, 0)
	c.publishErr = errors.New("broker down")

	err := a.SendGoal(context.Background(), Goal{Seq: 1, Pose: models.NewPoseFromYaw(1, 1, 0, 0)}, Callbacks{})
	require.Error(t, err)
	assert.False(t, a.Outstanding())
}

func TestMQTTAdapterActiveFeedbackSuccess(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)
	rec := &recorder{}
	order := sendTestGoal(t, a, c, b, rec.callbacks())
	nodeID := order.Nodes[0].NodeID

	a.HandleState(&models.RobotStateMessage{
		OrderID:     order.OrderID,
		Driving:     true,
		NodeStates:  []models.NodeState{{NodeID: nodeID, Released: true}},
		AgvPosition: models.AgvPosition{X: 0, Y: 0},
	})
	a.HandleState(&models.RobotStateMessage{
		OrderID:     order.OrderID,
		Driving:     false,
		LastNodeID:  nodeID,
		AgvPosition: models.AgvPosition{X: 3, Y: 4},
	})

	events, results := rec.snapshot()
	assert.Equal(t, []string{"active", "feedback", "done"}, events)
	require.Len(t, results, 1)
	assert.Equal(t, StateSucceeded, results[0].State)
	require.Len(t, rec.feedback, 1)
	assert.InDelta(t, 5.0, rec.feedback[0].DistanceRemaining, 1e-9)
	assert.False(t, a.Outstanding())
}

func TestMQTTAdapterDeliversStateFromSubscription(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)
	rec := &recorder{}
	order := sendTestGoal(t, a, c, b, rec.callbacks())

	handler, ok := c.handlers[b.StateTopic()]
	require.True(t, ok)

	payload, err := json.Marshal(models.RobotStateMessage{
		OrderID:    order.OrderID,
		LastNodeID: order.Nodes[0].NodeID,
	})
	require.NoError(t, err)

	handler(nil, &fakeMessage{topic: b.StateTopic(), payload: []byte("{not json")})
	handler(nil, &fakeMessage{topic: b.StateTopic(), payload: payload})

	events, results := rec.snapshot()
	assert.Equal(t, []string{"active", "done"}, events)
	assert.Equal(t, StateSucceeded, results[0].State)
}

func TestMQTTAdapterOrderEndsElsewhereAborts(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)
	rec := &recorder{}
	order := sendTestGoal(t, a, c, b, rec.callbacks())

	a.HandleState(&models.RobotStateMessage{OrderID: order.OrderID, LastNodeID: "somewhere-else"})

	_, results := rec.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, StateAborted, results[0].State)
}

func TestMQTTAdapterFatalErrorAborts(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)
	rec := &recorder{}
	order := sendTestGoal(t, a, c, b, rec.callbacks())

	a.HandleState(&models.RobotStateMessage{
		OrderID:    order.OrderID,
		Driving:    true,
		NodeStates: []models.NodeState{{NodeID: order.Nodes[0].NodeID}},
		Errors: []models.ErrorInfo{{
			ErrorType:  "navigationError",
			ErrorLevel: constants.ErrorLevelFatal,
		}},
	})

	events, results := rec.snapshot()
	assert.Equal(t, []string{"active", "done"}, events)
	assert.Equal(t, StateAborted, results[0].State)
	assert.Contains(t, results[0].Text, "navigationError")
}

func TestMQTTAdapterRejectedOrder(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)
	rec := &recorder{}
	order := sendTestGoal(t, a, c, b, rec.callbacks())

	a.HandleState(&models.RobotStateMessage{
		OrderID: "previous-order",
		Errors: []models.ErrorInfo{{
			ErrorType:       "validationError",
			ErrorLevel:      constants.ErrorLevelWarning,
			ErrorReferences: []models.ErrorReference{{ReferenceKey: "orderId", ReferenceValue: order.OrderID}},
		}},
	})

	events, results := rec.snapshot()
	assert.Equal(t, []string{"done"}, events)
	assert.Equal(t, StateRejected, results[0].State)
}

func TestMQTTAdapterIgnoresUnrelatedStateBeforeActive(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)
	rec := &recorder{}
	sendTestGoal(t, a, c, b, rec.callbacks())

	a.HandleState(&models.RobotStateMessage{OrderID: "previous-order"})

	events, _ := rec.snapshot()
	assert.Empty(t, events)
	assert.True(t, a.Outstanding())
}

func TestMQTTAdapterCancelGoal(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)
	assert.ErrorIs(t, a.CancelGoal(), ErrNoGoal)

	rec := &recorder{}
	order := sendTestGoal(t, a, c, b, rec.callbacks())
	running := &models.RobotStateMessage{
		OrderID:    order.OrderID,
		Driving:    true,
		NodeStates: []models.NodeState{{NodeID: order.Nodes[0].NodeID}},
	}
	a.HandleState(running)

	require.NoError(t, a.CancelGoal())
	require.NoError(t, a.CancelGoal())

	cancels := c.sent(b.InstantActionsTopic())
	require.Len(t, cancels, 1)
	var msg models.InstantActionsMessage
	require.NoError(t, json.Unmarshal(cancels[0].payload, &msg))
	require.Len(t, msg.Actions, 1)
	assert.Equal(t, constants.ActionTypeCancelOrder, msg.Actions[0].ActionType)

	a.HandleState(&models.RobotStateMessage{
		OrderID:    order.OrderID,
		Driving:    false,
		NodeStates: []models.NodeState{{NodeID: order.Nodes[0].NodeID}},
		ActionStates: []models.ActionState{{
			ActionID:     msg.Actions[0].ActionID,
			ActionType:   constants.ActionTypeCancelOrder,
			ActionStatus: constants.ActionStatusFinished,
		}},
	})

	_, results := rec.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, StatePreempted, results[0].State)
	assert.True(t, results[0].State.IsCancellation())
}

func TestMQTTAdapterOrderIDChangeOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		active    bool
		cancel    bool
		nextOrder string
		want      GoalState
		events    []string
	}{
		{
			name:      "cancelled before vehicle picked up the order",
			cancel:    true,
			nextOrder: "",
			want:      StateRecalled,
			events:    []string{"done"},
		},
		{
			name:      "cancelled while driving then order cleared",
			active:    true,
			cancel:    true,
			nextOrder: "",
			want:      StatePreempted,
			events:    []string{"active", "feedback", "done"},
		},
		{
			name:      "order replaced without cancel",
			active:    true,
			nextOrder: "foreign-order",
			want:      StateLost,
			events:    []string{"active", "feedback", "done"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, c, b := newTestAdapter(t, 0)
			rec := &recorder{}
			order := sendTestGoal(t, a, c, b, rec.callbacks())

			if tt.active {
				a.HandleState(&models.RobotStateMessage{
					OrderID:    order.OrderID,
					Driving:    true,
					NodeStates: []models.NodeState{{NodeID: order.Nodes[0].NodeID}},
				})
			}
			if tt.cancel {
				require.NoError(t, a.CancelGoal())
			}

			a.HandleState(&models.RobotStateMessage{OrderID: tt.nextOrder})

			events, results := rec.snapshot()
			assert.Equal(t, tt.events, events)
			require.Len(t, results, 1)
			assert.Equal(t, tt.want, results[0].State)
			assert.Equal(t, tt.cancel, results[0].State.IsCancellation())
			assert.False(t, a.Outstanding())

			// 종료 후 같은 상태가 다시 와도 통지는 없다
			a.HandleState(&models.RobotStateMessage{OrderID: tt.nextOrder})
			_, results = rec.snapshot()
			assert.Len(t, results, 1)
		})
	}
}

func TestMQTTAdapterDoneCallbackCanSendNextGoal(t *testing.T) {
	a, c, b := newTestAdapter(t, 0)

	var nextErr error
	cb := Callbacks{
		OnDone: func(h GoalHandle, res Result) {
			nextErr = a.SendGoal(context.Background(), Goal{Seq: 2, Index: 1, Frame: "map", Pose: models.NewPoseFromYaw(1, 1, 0, 0)}, Callbacks{})
		},
	}
	order := sendTestGoal(t, a, c, b, cb)
	a.HandleState(&models.RobotStateMessage{OrderID: order.OrderID, LastNodeID: order.Nodes[0].NodeID})

	require.NoError(t, nextErr)
	assert.Len(t, c.sent(b.OrderTopic()), 2)
	assert.True(t, a.Outstanding())
}

func TestMQTTAdapterGoalTimeout(t *testing.T) {
	a, c, b := newTestAdapter(t, 20*time.Millisecond)
	rec := &recorder{}
	sendTestGoal(t, a, c, b, rec.callbacks())

	require.Eventually(t, func() bool {
		_, results := rec.snapshot()
		return len(results) == 1
	}, time.Second, 5*time.Millisecond)

	_, results := rec.snapshot()
	assert.Equal(t, StateTimedOut, results[0].State)
	assert.Len(t, c.sent(b.InstantActionsTopic()), 1)
	assert.False(t, a.Outstanding())
}

func TestGoalStateClassification(t *testing.T) {
	assert.False(t, StatePending.IsTerminal())
	assert.False(t, StateActive.IsTerminal())
	assert.True(t, StateSucceeded.IsTerminal())
	assert.True(t, StateTimedOut.IsTerminal())
	assert.True(t, StateRecalled.IsCancellation())
	assert.False(t, StateAborted.IsCancellation())
	assert.Equal(t, "PREEMPTED", StatePreempted.String())
	assert.Equal(t, "GoalState(42)", GoalState(42).String())
}
