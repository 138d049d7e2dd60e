// Package mission sequences goals through a navigation server, one at a time.
package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"waypoint-sequencer/internal/common/constants"
	"waypoint-sequencer/internal/common/idgen"
	"waypoint-sequencer/internal/geometry"
	"waypoint-sequencer/internal/goals"
	"waypoint-sequencer/internal/interfaces"
	"waypoint-sequencer/internal/models"
	"waypoint-sequencer/internal/navigation"
	"waypoint-sequencer/internal/utils"
)

var (
	ErrMissionStarted   = errors.New("mission has already been started")
	ErrMissionNotActive = errors.New("mission is not active")
	ErrNoMission        = errors.New("no mission has been started")
)

// Options 미션 정책 및 선택적 의존성
type Options struct {
	MissionID          string
	FailurePolicy      string // abort, skip, retry
	MaxGoalRetries     int
	StallFeedbackLimit int // 0 이면 정체 감지 끔
	StallMinProgress   float64

	Journal interfaces.MissionJournal
	Status  StatusSink
	Logger  interfaces.Logger
}

// Controller drives a goal sequence through a navigation client.
// Every transition happens under mu; journal and status side effects are
// collected and run after mu is released.
type Controller struct {
	mu    sync.Mutex
	fsm   *fsm.FSM
	nav   navigation.Client
	store *goals.Store
	opts  Options
	log   interfaces.Logger
	ctx   context.Context

	cursor          int
	goalCount       int
	skipped         int
	attempts        int
	inFlight        *dispatch
	cancelRequested bool
	lastResult      string
	reason          string
	progress        *Progress
	startedAt       *time.Time
	endedAt         *time.Time
	version         uint64

	effects []func()
}

type dispatch struct {
	goal navigation.Goal

	stallCancel  bool
	hasBest      bool
	bestDistance float64
	stallCount   int
}

// NewController 컨트롤러 생성. 목표 저장소의 좌표계가 모든 목표에 찍힌다
func NewController(nav navigation.Client, store *goals.Store, opts Options) *Controller {
	if opts.MissionID == "" {
		opts.MissionID = idgen.MissionID()
	}
	if !constants.IsValidFailurePolicy(opts.FailurePolicy) {
		opts.FailurePolicy = constants.FailurePolicyAbort
	}
	if opts.MaxGoalRetries < 0 {
		opts.MaxGoalRetries = 0
	}

	c := &Controller{
		nav:   nav,
		store: store,
		opts:  opts,
		log:   opts.Logger,
		ctx:   context.Background(),
	}
	if c.log == nil {
		c.log = utils.WithMission(opts.MissionID)
	}

	c.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateDispatching},
			{Name: eventGoalSent, Src: []string{StateDispatching}, Dst: StateWaiting},
			{Name: eventAdvance, Src: []string{StateWaiting}, Dst: StateDispatching},
			{Name: eventComplete, Src: []string{StateIdle, StateWaiting}, Dst: StateFinished},
			{Name: eventCancel, Src: []string{StateIdle, StateDispatching, StateWaiting}, Dst: StateCancelled},
			{Name: eventFail, Src: []string{StateDispatching, StateWaiting}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.log.Infof("MISSION '%s': state changed from %s -> %s (Event: %s)", c.opts.MissionID, e.Src, e.Dst, e.Event)
			},
		},
	)
	return c
}

// ID 미션 ID
func (c *Controller) ID() string {
	return c.opts.MissionID
}

// SendGoalsToMoveBase starts the mission: freezes the goal sequence and
// dispatches the first goal. It returns without waiting for any result.
// An empty sequence finishes immediately.
func (c *Controller) SendGoalsToMoveBase(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if !c.fsm.Is(StateIdle) {
		return ErrMissionStarted
	}

	// 이후 디스패치는 콜백 경로에서 일어나므로 호출자의 취소와 분리
	c.ctx = context.WithoutCancel(ctx)
	c.store.Freeze()

	now := time.Now()
	c.startedAt = &now
	record := &models.MissionRecord{
		MissionID: c.opts.MissionID,
		Frame:     c.store.Frame(),
		GoalTotal: c.store.Count(),
		Outcome:   constants.OutcomeRunning,
		StartedAt: now,
	}
	c.journal(func(j interfaces.MissionJournal) error { return j.RecordMissionStarted(record) })
	c.log.Infof("🚀 Mission %s started with %d goals in frame %q (policy=%s)",
		c.opts.MissionID, c.store.Count(), c.store.Frame(), c.opts.FailurePolicy)

	if c.store.Count() == 0 {
		c.transition(eventComplete)
		return nil
	}

	c.transition(eventStart)
	return c.dispatchLocked()
}

// Cancel requests cancellation. The in-flight goal, if any, is preempted and
// the mission ends as Cancelled once its result arrives; a mission that has
// not dispatched anything is cancelled immediately.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if outcomeFor(c.fsm.Current()).IsTerminal() {
		return ErrMissionNotActive
	}
	if c.cancelRequested {
		return nil
	}
	c.cancelRequested = true
	c.log.Infof("🛑 Cancel requested for mission %s", c.opts.MissionID)

	if c.inFlight == nil {
		c.reason = "cancelled before dispatch"
		c.transition(eventCancel)
		return nil
	}

	if err := c.nav.CancelGoal(); err != nil && !errors.Is(err, navigation.ErrNoGoal) {
		c.log.Warnf("Failed to cancel goal %d: %v", c.inFlight.goal.Index, err)
	}
	c.notify()
	return nil
}

// GoalCount 지금까지 전송한 목표 수 (재시도 포함, 감소하지 않음)
func (c *Controller) GoalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goalCount
}

// GoalsPoses 전체 원본 목표 목록
func (c *Controller) GoalsPoses() models.PoseArray {
	return c.store.PoseArray()
}

// IsMissionFinished true only when every goal was handled to completion.
func (c *Controller) IsMissionFinished() bool {
	return c.Outcome() == OutcomeFinished
}

// IsMissionCancelled true when the mission stopped short, by request or failure.
func (c *Controller) IsMissionCancelled() bool {
	o := c.Outcome()
	return o == OutcomeCancelled || o == OutcomeFailed
}

// Outcome 현재 결과
func (c *Controller) Outcome() Outcome {
	return outcomeFor(c.State())
}

// State 현재 상태 이름
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsm.Current()
}

// Progress 최신 피드백 (없으면 false)
func (c *Controller) Progress() (Progress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return Progress{}, false
	}
	return *c.progress, true
}

// Status 상태 스냅샷
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) activeCb(h navigation.GoalHandle) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if !c.isCurrent(h) {
		return
	}
	c.progress = &Progress{GoalIndex: h.Index, Active: true, UpdatedAt: time.Now()}
	c.log.Infof("▶️ Goal %d is now active (seq %d)", h.Index, h.Seq)
	c.notify()
}

func (c *Controller) feedbackCb(h navigation.GoalHandle, fb navigation.Feedback) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if !c.isCurrent(h) {
		return
	}
	d := c.inFlight
	target := d.goal.Pose.Position
	dist := geometry.Distance(fb.X, fb.Y, target.X, target.Y)

	c.progress = &Progress{
		GoalIndex:         h.Index,
		Active:            true,
		X:                 fb.X,
		Y:                 fb.Y,
		Theta:             fb.Theta,
		DistanceRemaining: dist,
		UpdatedAt:         time.Now(),
	}
	c.checkStall(d, dist)
	c.notify()
}

// checkStall cancels the goal after StallFeedbackLimit feedbacks in a row
// without StallMinProgress of improvement on the best distance seen.
func (c *Controller) checkStall(d *dispatch, dist float64) {
	if c.opts.StallFeedbackLimit <= 0 || d.stallCancel || c.cancelRequested {
		return
	}
	if !d.hasBest || d.bestDistance-dist >= c.opts.StallMinProgress {
		d.hasBest = true
		d.bestDistance = dist
		d.stallCount = 0
		return
	}

	d.stallCount++
	if d.stallCount < c.opts.StallFeedbackLimit {
		return
	}

	d.stallCancel = true
	c.log.Warnf("⚠️ Goal %d stalled at %.3f m from target, cancelling", d.goal.Index, dist)
	if err := c.nav.CancelGoal(); err != nil && !errors.Is(err, navigation.ErrNoGoal) {
		c.log.Warnf("Failed to cancel stalled goal %d: %v", d.goal.Index, err)
	}
}

// doneCb is the only place a goal result moves the mission forward.
// Results for a goal that is not the one in flight are dropped.
func (c *Controller) doneCb(h navigation.GoalHandle, res navigation.Result) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if !c.isCurrent(h) {
		c.log.Debugf("Ignoring %s result for goal %d (seq %d): not in flight", res.State, h.Index, h.Seq)
		return
	}

	d := c.inFlight
	c.inFlight = nil
	c.lastResult = res.State.String()
	if c.progress != nil {
		c.progress.Active = false
	}

	finishedAt := time.Now()
	seq, state := h.Seq, res.State.String()
	c.journal(func(j interfaces.MissionJournal) error {
		return j.RecordGoalResult(c.opts.MissionID, seq, state, finishedAt)
	})
	c.log.Infof("🏁 Goal %d done: %s %s", h.Index, res.State, res.Text)

	lastGoal := c.cursor+1 >= c.store.Count()
	switch {
	case res.State == navigation.StateSucceeded && lastGoal:
		// 마지막 목표 성공은 취소 요청이 있어도 완료로 본다. 보낼 다음 목표가 없다
		c.attempts = 0
		c.advance()
	case c.cancelRequested:
		c.reason = "cancelled by request"
		c.transition(eventCancel)
	case res.State == navigation.StateSucceeded:
		c.attempts = 0
		c.advance()
	case res.State.IsCancellation() && !d.stallCancel:
		c.reason = fmt.Sprintf("goal %d preempted by navigation server", h.Index)
		c.transition(eventCancel)
	default:
		reason := res.Text
		if d.stallCancel {
			reason = "no progress"
		}
		c.goalFailed(h.Index, res.State, reason)
	}
}

// goalFailed applies the failure policy to the goal at the cursor.
func (c *Controller) goalFailed(index int, state navigation.GoalState, text string) {
	switch c.opts.FailurePolicy {
	case constants.FailurePolicyRetry:
		if c.attempts < c.opts.MaxGoalRetries {
			c.attempts++
			c.log.Warnf("🔁 Goal %d %s, retrying (%d/%d)", index, state, c.attempts, c.opts.MaxGoalRetries)
			c.transition(eventAdvance)
			// 전송 실패는 dispatchLocked 안에서 이미 Failed 로 전이된다
			_ = c.dispatchLocked()
			return
		}
	case constants.FailurePolicySkip:
		c.skipped++
		c.attempts = 0
		c.log.Warnf("⏭️ Goal %d %s, skipping", index, state)
		c.advance()
		return
	}

	c.reason = fmt.Sprintf("goal %d %s: %s", index, state, text)
	c.transition(eventFail)
}

// advance moves the cursor past the goal just handled.
func (c *Controller) advance() {
	c.cursor++
	if c.cursor >= c.store.Count() {
		c.transition(eventComplete)
		return
	}
	c.transition(eventAdvance)
	// 전송 실패는 dispatchLocked 안에서 이미 Failed 로 전이된다
	_ = c.dispatchLocked()
}

// dispatchLocked sends the goal at the cursor; caller holds mu and the
// machine is in Dispatching.
func (c *Controller) dispatchLocked() error {
	if c.cancelRequested {
		c.reason = "cancelled by request"
		c.transition(eventCancel)
		return nil
	}

	pose, ok := c.store.At(c.cursor)
	if !ok {
		c.reason = fmt.Sprintf("goal %d out of range", c.cursor)
		c.transition(eventFail)
		return fmt.Errorf("goal cursor %d out of range", c.cursor)
	}

	goal := navigation.Goal{
		ID:    idgen.OrderID(),
		Seq:   c.goalCount + 1,
		Index: c.cursor,
		Frame: c.store.Frame(),
		Pose:  pose,
	}
	cb := navigation.Callbacks{
		OnActive:   c.activeCb,
		OnFeedback: c.feedbackCb,
		OnDone:     c.doneCb,
	}
	if err := c.nav.SendGoal(c.ctx, goal, cb); err != nil {
		c.reason = fmt.Sprintf("failed to send goal %d: %v", c.cursor, err)
		c.log.Errorf("❌ %s", c.reason)
		c.transition(eventFail)
		return fmt.Errorf("failed to send goal %d: %w", c.cursor, err)
	}

	c.goalCount++
	c.inFlight = &dispatch{goal: goal}
	c.progress = &Progress{GoalIndex: c.cursor, UpdatedAt: time.Now()}

	record := &models.GoalRecord{
		MissionID: c.opts.MissionID,
		Attempt:   goal.Seq,
		GoalIndex: goal.Index,
		GoalID:    goal.ID,
		X:         pose.Position.X,
		Y:         pose.Position.Y,
		Yaw:       pose.Yaw(),
		State:     navigation.StatePending.String(),
		SentAt:    time.Now(),
	}
	c.journal(func(j interfaces.MissionJournal) error { return j.RecordGoalDispatched(record) })

	c.transition(eventGoalSent)
	return nil
}

func (c *Controller) isCurrent(h navigation.GoalHandle) bool {
	return c.inFlight != nil && c.inFlight.goal.Seq == h.Seq
}

// transition fires an fsm event; caller holds mu.
func (c *Controller) transition(event string) {
	if err := c.fsm.Event(context.Background(), event); err != nil {
		c.log.Errorf("Mission %s: event %s rejected in state %s: %v", c.opts.MissionID, event, c.fsm.Current(), err)
		return
	}

	if outcomeFor(c.fsm.Current()).IsTerminal() {
		now := time.Now()
		c.endedAt = &now
		outcome, count := string(outcomeFor(c.fsm.Current())), c.goalCount
		c.journal(func(j interfaces.MissionJournal) error {
			return j.RecordMissionFinished(c.opts.MissionID, outcome, count)
		})
		c.log.Infof("✅ Mission %s ended: %s after %d dispatched goals", c.opts.MissionID, outcome, count)
	}
	c.notify()
}

func (c *Controller) journal(fn func(interfaces.MissionJournal) error) {
	if c.opts.Journal == nil {
		return
	}
	j := c.opts.Journal
	c.effects = append(c.effects, func() {
		if err := fn(j); err != nil {
			c.log.Warnf("Mission journal write failed: %v", err)
		}
	})
}

// notify queues a status snapshot; caller holds mu.
// Snapshots are flushed after unlock, so two goroutines may deliver them out
// of order. Version grows under mu and lets the sink drop the older one.
func (c *Controller) notify() {
	if c.opts.Status == nil {
		return
	}
	c.version++
	snap := c.snapshotLocked()
	sink := c.opts.Status
	c.effects = append(c.effects, func() { sink.MissionUpdated(snap) })
}

func (c *Controller) unlockAndFlush() {
	effects := c.effects
	c.effects = nil
	c.mu.Unlock()

	for _, fn := range effects {
		fn()
	}
}

func (c *Controller) snapshotLocked() Status {
	state := c.fsm.Current()
	outcome := outcomeFor(state)
	s := Status{
		MissionID:       c.opts.MissionID,
		Version:         c.version,
		State:           state,
		Outcome:         outcome,
		Frame:           c.store.Frame(),
		GoalTotal:       c.store.Count(),
		GoalCount:       c.goalCount,
		Cursor:          c.cursor,
		Skipped:         c.skipped,
		CancelRequested: c.cancelRequested,
		Finished:        outcome == OutcomeFinished,
		Cancelled:       outcome == OutcomeCancelled || outcome == OutcomeFailed,
		LastResult:      c.lastResult,
		Reason:          c.reason,
		StartedAt:       c.startedAt,
		EndedAt:         c.endedAt,
	}
	if c.progress != nil {
		p := *c.progress
		s.Progress = &p
	}
	return s
}
