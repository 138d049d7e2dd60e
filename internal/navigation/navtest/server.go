// Package navtest provides a scripted navigation server for tests.
package navtest

import (
	"context"
	"sync"

	"waypoint-sequencer/internal/navigation"
)

// Server 테스트용 내비게이션 서버. 콜백은 테스트가 직접 발생시킨다.
type Server struct {
	mu      sync.Mutex
	sent    []navigation.Goal
	current *outstanding
	last    *outstanding
	cancels int

	// SendErr, CancelErr 가 설정되면 해당 호출이 실패한다
	SendErr   error
	CancelErr error
}

type outstanding struct {
	goal            navigation.Goal
	cb              navigation.Callbacks
	cancelRequested bool
}

var _ navigation.Client = (*Server)(nil)

// NewServer 빈 서버 생성
func NewServer() *Server {
	return &Server{}
}

// Start 실제 서버와 달리 구독할 것이 없다
func (s *Server) Start() error { return nil }

func (s *Server) SendGoal(ctx context.Context, goal navigation.Goal, cb navigation.Callbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SendErr != nil {
		return s.SendErr
	}
	if s.current != nil {
		return navigation.ErrGoalOutstanding
	}
	s.sent = append(s.sent, goal)
	s.current = &outstanding{goal: goal, cb: cb}
	return nil
}

func (s *Server) CancelGoal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CancelErr != nil {
		return s.CancelErr
	}
	if s.current == nil {
		return navigation.ErrNoGoal
	}
	s.cancels++
	s.current.cancelRequested = true
	return nil
}

// Sent 지금까지 전송된 목표 목록
func (s *Server) Sent() []navigation.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]navigation.Goal(nil), s.sent...)
}

// Cancels CancelGoal 성공 횟수
func (s *Server) Cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

// Outstanding 진행 중인 목표 (없으면 false)
func (s *Server) Outstanding() (navigation.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return navigation.Goal{}, false
	}
	return s.current.goal, true
}

// CancelRequested 진행 중인 목표에 취소가 요청되었는지
func (s *Server) CancelRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.cancelRequested
}

// Active 진행 중인 목표의 OnActive 발생
func (s *Server) Active() bool {
	cur := s.peek()
	if cur == nil {
		return false
	}
	if cur.cb.OnActive != nil {
		cur.cb.OnActive(cur.goal.Handle())
	}
	return true
}

// Feedback 진행 중인 목표의 OnFeedback 발생
func (s *Server) Feedback(fb navigation.Feedback) bool {
	cur := s.peek()
	if cur == nil {
		return false
	}
	if cur.cb.OnFeedback != nil {
		cur.cb.OnFeedback(cur.goal.Handle(), fb)
	}
	return true
}

// Finish 진행 중인 목표를 종료하고 OnDone 발생. 콜백 안에서 다음 SendGoal 가능
func (s *Server) Finish(state navigation.GoalState) bool {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	if cur != nil {
		s.last = cur
	}
	s.mu.Unlock()

	if cur == nil {
		return false
	}
	if cur.cb.OnDone != nil {
		cur.cb.OnDone(cur.goal.Handle(), navigation.Result{State: state, Text: "scripted"})
	}
	return true
}

// Succeed 진행 중인 목표를 성공 처리
func (s *Server) Succeed() bool {
	return s.Finish(navigation.StateSucceeded)
}

// ReplayDone 마지막으로 끝난 목표의 OnDone 을 다시 전달 (중복 통지 재현)
func (s *Server) ReplayDone(state navigation.GoalState) bool {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil || last.cb.OnDone == nil {
		return false
	}
	last.cb.OnDone(last.goal.Handle(), navigation.Result{State: state, Text: "replayed"})
	return true
}

// RunToCompletion 진행 중인 목표가 없어질 때까지 계속 성공 처리. 처리한 목표 수 반환
func (s *Server) RunToCompletion() int {
	n := 0
	for s.Succeed() {
		n++
	}
	return n
}

func (s *Server) peek() *outstanding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
