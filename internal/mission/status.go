// internal/mission/status.go
package mission

import (
	"time"

	"waypoint-sequencer/internal/common/constants"
)

// Mission states
const (
	StateIdle        = "Idle"
	StateDispatching = "Dispatching"
	StateWaiting     = "WaitingForResult"
	StateFinished    = "Finished"
	StateCancelled   = "Cancelled"
	StateFailed      = "Failed"
)

// Mission events
const (
	eventStart    = "start"
	eventGoalSent = "goal_sent"
	eventAdvance  = "advance"
	eventComplete = "complete"
	eventCancel   = "cancel"
	eventFail     = "fail"
)

// Outcome 미션의 최종 결과. 진행 중이면 Running
type Outcome string

const (
	OutcomeRunning   Outcome = constants.OutcomeRunning
	OutcomeFinished  Outcome = constants.OutcomeFinished
	OutcomeCancelled Outcome = constants.OutcomeCancelled
	OutcomeFailed    Outcome = constants.OutcomeFailed
)

func outcomeFor(state string) Outcome {
	switch state {
	case StateFinished:
		return OutcomeFinished
	case StateCancelled:
		return OutcomeCancelled
	case StateFailed:
		return OutcomeFailed
	default:
		return OutcomeRunning
	}
}

// IsTerminal reports whether no further transition is possible.
func (o Outcome) IsTerminal() bool {
	return o != OutcomeRunning
}

// Progress 진행 중인 목표의 최신 피드백
type Progress struct {
	GoalIndex         int       `json:"goalIndex"`
	Active            bool      `json:"active"`
	X                 float64   `json:"x"`
	Y                 float64   `json:"y"`
	Theta             float64   `json:"theta"`
	DistanceRemaining float64   `json:"distanceRemaining"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Status 미션 상태 스냅샷 (API 응답, Redis 캐시용)
type Status struct {
	MissionID       string     `json:"missionId"`
	Version         uint64     `json:"version"`
	State           string     `json:"state"`
	Outcome         Outcome    `json:"outcome"`
	Frame           string     `json:"frame"`
	GoalTotal       int        `json:"goalTotal"`
	GoalCount       int        `json:"goalCount"`
	Cursor          int        `json:"cursor"`
	Skipped         int        `json:"skipped"`
	CancelRequested bool       `json:"cancelRequested"`
	Finished        bool       `json:"finished"`
	Cancelled       bool       `json:"cancelled"`
	LastResult      string     `json:"lastResult,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	Progress        *Progress  `json:"progress,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
}

// StatusSink receives a snapshot after every state change.
// It is called outside the controller lock and must not block for long.
// Concurrent deliveries can arrive out of order; a higher Version is newer.
type StatusSink interface {
	MissionUpdated(status Status)
}
