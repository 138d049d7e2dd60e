// Package navigation is the boundary to the external navigation server:
// one goal in flight, asynchronous active/feedback/done notifications.
package navigation

import (
	"context"
	"errors"
	"fmt"

	"waypoint-sequencer/internal/models"
)

var (
	ErrGoalOutstanding = errors.New("a navigation goal is already outstanding")
	ErrNoGoal          = errors.New("no navigation goal is outstanding")
)

// GoalState mirrors the states a simple action client reports.
type GoalState int

const (
	StatePending GoalState = iota
	StateActive
	StateSucceeded
	StateAborted
	StateRejected
	StatePreempted
	StateRecalled
	StateLost
	StateTimedOut
)

func (s GoalState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateActive:
		return "ACTIVE"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateAborted:
		return "ABORTED"
	case StateRejected:
		return "REJECTED"
	case StatePreempted:
		return "PREEMPTED"
	case StateRecalled:
		return "RECALLED"
	case StateLost:
		return "LOST"
	case StateTimedOut:
		return "TIMED_OUT"
	default:
		return fmt.Sprintf("GoalState(%d)", int(s))
	}
}

// IsTerminal reports whether the state can be delivered through OnDone.
func (s GoalState) IsTerminal() bool {
	return s >= StateSucceeded
}

// IsCancellation reports whether the goal ended because a cancel was honoured.
func (s GoalState) IsCancellation() bool {
	return s == StatePreempted || s == StateRecalled
}

// Goal is a single navigation request.
type Goal struct {
	ID    string // transport-level id; empty lets the adapter pick one
	Seq   int    // dispatch sequence number, unique per mission
	Index int    // position in the goal sequence
	Frame string
	Pose  models.Pose
}

// Handle returns the identity passed back with every notification.
func (g Goal) Handle() GoalHandle {
	return GoalHandle{ID: g.ID, Seq: g.Seq, Index: g.Index}
}

// GoalHandle identifies which goal a notification belongs to.
type GoalHandle struct {
	ID    string
	Seq   int
	Index int
}

// Feedback is the server's progress snapshot for the outstanding goal.
type Feedback struct {
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	Theta             float64 `json:"theta"`
	DistanceRemaining float64 `json:"distanceRemaining"`
	Driving           bool    `json:"driving"`
}

// Result is the terminal outcome of a goal.
type Result struct {
	State GoalState
	Text  string
}

// Callbacks are invoked by the transport, never from inside SendGoal or
// CancelGoal. For one goal: OnActive at most once, then OnFeedback any number
// of times, then OnDone exactly once. Delivery is serialized.
type Callbacks struct {
	OnActive   func(GoalHandle)
	OnFeedback func(GoalHandle, Feedback)
	OnDone     func(GoalHandle, Result)
}

// Client is the non-blocking navigation request channel.
type Client interface {
	// SendGoal returns ErrGoalOutstanding if a goal is still in flight.
	SendGoal(ctx context.Context, goal Goal, cb Callbacks) error
	// CancelGoal requests preemption; completion still arrives via OnDone.
	CancelGoal() error
}
