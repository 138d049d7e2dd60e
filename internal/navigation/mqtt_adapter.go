// internal/navigation/mqtt_adapter.go
package navigation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"waypoint-sequencer/internal/common/constants"
	"waypoint-sequencer/internal/geometry"
	"waypoint-sequencer/internal/interfaces"
	"waypoint-sequencer/internal/messaging"
	"waypoint-sequencer/internal/models"
	"waypoint-sequencer/internal/workflow"
)

// MQTTAdapter drives a VDA5050 vehicle as a single-goal navigation server.
// Each goal becomes a one-node order; the vehicle's state topic supplies
// active/feedback/done.
type MQTTAdapter struct {
	client      messaging.Client
	builder     *workflow.OrderBuilder
	logger      interfaces.Logger
	goalTimeout time.Duration

	// deliverMu serializes every notification so a timeout can never
	// interleave with a state message.
	deliverMu sync.Mutex
	mu        sync.Mutex
	current   *trackedGoal
}

type trackedGoal struct {
	goal           Goal
	cb             Callbacks
	orderID        string
	nodeID         string
	active         bool
	cancelActionID string
	timer          *time.Timer
}

// NewMQTTAdapter 어댑터 생성. goalTimeout 이 0이면 타임아웃 없음
func NewMQTTAdapter(client messaging.Client, builder *workflow.OrderBuilder, logger interfaces.Logger, goalTimeout time.Duration) *MQTTAdapter {
	return &MQTTAdapter{
		client:      client,
		builder:     builder,
		logger:      logger,
		goalTimeout: goalTimeout,
	}
}

// Start 로봇 상태 토픽 구독
func (a *MQTTAdapter) Start() error {
	topic := a.builder.StateTopic()
	handler := messaging.StateHandler(a.HandleState, func(err error) {
		a.logger.Errorf("Failed to parse robot state message: %v", err)
	})
	if err := a.client.Subscribe(topic, 1, handler); err != nil {
		return fmt.Errorf("failed to subscribe to robot state: %w", err)
	}
	return nil
}

// SendGoal publishes a one-node order for the goal pose.
func (a *MQTTAdapter) SendGoal(ctx context.Context, goal Goal, cb Callbacks) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		return ErrGoalOutstanding
	}

	order, nodeID := a.builder.BuildGoalOrder(goal.ID, goal.Pose, goal.Frame)
	goal.ID = order.OrderID

	if err := messaging.PublishJSON(a.client, a.builder.OrderTopic(), order); err != nil {
		return fmt.Errorf("failed to send goal %d: %w", goal.Index, err)
	}

	tracked := &trackedGoal{
		goal:    goal,
		cb:      cb,
		orderID: order.OrderID,
		nodeID:  nodeID,
	}
	if a.goalTimeout > 0 {
		orderID := order.OrderID
		tracked.timer = time.AfterFunc(a.goalTimeout, func() { a.expire(orderID) })
	}
	a.current = tracked

	a.logger.Infof("Goal %d sent as order %s (x=%.3f, y=%.3f, yaw=%.3f)",
		goal.Index, order.OrderID, goal.Pose.Position.X, goal.Pose.Position.Y, goal.Pose.Yaw())
	return nil
}

// CancelGoal publishes a cancelOrder instant action for the outstanding goal.
func (a *MQTTAdapter) CancelGoal() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return ErrNoGoal
	}
	if a.current.cancelActionID != "" {
		return nil
	}

	actionID, err := a.publishCancel()
	if err != nil {
		return err
	}
	a.current.cancelActionID = actionID
	a.logger.Infof("Cancel requested for order %s", a.current.orderID)
	return nil
}

// Outstanding reports whether a goal is in flight.
func (a *MQTTAdapter) Outstanding() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

func (a *MQTTAdapter) publishCancel() (string, error) {
	msg, actionID := a.builder.BuildCancelOrderMessage()
	if err := messaging.PublishJSON(a.client, a.builder.InstantActionsTopic(), msg); err != nil {
		return "", fmt.Errorf("failed to send cancelOrder: %w", err)
	}
	return actionID, nil
}

// notification is a callback captured under mu and run after it is released,
// so a callback may call SendGoal or CancelGoal.
type notification func()

// HandleState maps one vehicle state message onto goal notifications.
func (a *MQTTAdapter) HandleState(state *models.RobotStateMessage) {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	for _, n := range a.evaluate(state) {
		n()
	}
}

func (a *MQTTAdapter) evaluate(state *models.RobotStateMessage) []notification {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.current
	if cur == nil {
		return nil
	}
	handle := cur.goal.Handle()

	if state.OrderID != cur.orderID {
		switch {
		case !cur.active && referencesOrder(state, cur.orderID):
			return a.finish(Result{State: StateRejected, Text: "order rejected by vehicle"})
		case cur.cancelActionID != "" && cur.active:
			return a.finish(Result{State: StatePreempted, Text: "order cancelled"})
		case cur.cancelActionID != "":
			return a.finish(Result{State: StateRecalled, Text: "order cancelled before start"})
		case cur.active:
			return a.finish(Result{State: StateLost, Text: fmt.Sprintf("vehicle switched to order %q", state.OrderID)})
		}
		return nil
	}

	var out []notification
	if !cur.active {
		cur.active = true
		if cb := cur.cb.OnActive; cb != nil {
			out = append(out, func() { cb(handle) })
		}
	}

	if e, ok := state.HasErrorLevel(constants.ErrorLevelFatal); ok {
		return append(out, a.finish(Result{State: StateAborted, Text: e.ErrorType + ": " + e.ErrorDescription})...)
	}

	if cur.cancelActionID != "" {
		if act, ok := state.FindActionState(cur.cancelActionID); ok {
			switch act.ActionStatus {
			case constants.ActionStatusFinished:
				return append(out, a.finish(Result{State: StatePreempted, Text: "order cancelled"})...)
			case constants.ActionStatusFailed:
				a.logger.Warnf("cancelOrder for %s failed on vehicle: %s", cur.orderID, act.ResultDescription)
			}
		}
	}

	if orderFinished(state) {
		if state.LastNodeID == cur.nodeID {
			return append(out, a.finish(Result{State: StateSucceeded, Text: "goal reached"})...)
		}
		return append(out, a.finish(Result{State: StateAborted, Text: "order ended before reaching goal node"})...)
	}

	fb := Feedback{
		X:       state.AgvPosition.X,
		Y:       state.AgvPosition.Y,
		Theta:   state.AgvPosition.Theta,
		Driving: state.Driving,
		DistanceRemaining: geometry.Distance(
			state.AgvPosition.X, state.AgvPosition.Y,
			cur.goal.Pose.Position.X, cur.goal.Pose.Position.Y,
		),
	}
	if cb := cur.cb.OnFeedback; cb != nil {
		out = append(out, func() { cb(handle, fb) })
	}
	return out
}

// finish clears the outstanding goal; caller holds mu.
func (a *MQTTAdapter) finish(res Result) []notification {
	cur := a.current
	a.current = nil
	if cur.timer != nil {
		cur.timer.Stop()
	}

	handle := cur.goal.Handle()
	a.logger.Infof("Order %s for goal %d finished: %s (%s)", cur.orderID, cur.goal.Index, res.State, res.Text)

	var out []notification
	if !cur.active && res.State == StateSucceeded {
		if cb := cur.cb.OnActive; cb != nil {
			out = append(out, func() { cb(handle) })
		}
	}
	if cb := cur.cb.OnDone; cb != nil {
		out = append(out, func() { cb(handle, res) })
	}
	return out
}

func (a *MQTTAdapter) expire(orderID string) {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	notes := func() []notification {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.current == nil || a.current.orderID != orderID {
			return nil
		}
		if _, err := a.publishCancel(); err != nil {
			a.logger.Warnf("Failed to cancel timed-out order %s: %v", orderID, err)
		}
		return a.finish(Result{State: StateTimedOut, Text: fmt.Sprintf("no result within %s", a.goalTimeout)})
	}()

	for _, n := range notes {
		n()
	}
}

// orderFinished: no nodes left to traverse, vehicle stopped, no action pending.
func orderFinished(state *models.RobotStateMessage) bool {
	if len(state.NodeStates) > 0 || state.Driving {
		return false
	}
	for _, act := range state.ActionStates {
		switch act.ActionStatus {
		case constants.ActionStatusWaiting, constants.ActionStatusInitializing,
			constants.ActionStatusRunning, constants.ActionStatusPaused:
			return false
		}
	}
	return true
}

func referencesOrder(state *models.RobotStateMessage, orderID string) bool {
	for _, e := range state.Errors {
		for _, ref := range e.ErrorReferences {
			if ref.ReferenceKey == "orderId" && ref.ReferenceValue == orderID {
				return true
			}
		}
	}
	return false
}
