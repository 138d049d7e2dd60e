// Package goals holds the ordered list of poses a mission visits.
package goals

import (
	"errors"
	"fmt"
	"sync"

	"waypoint-sequencer/internal/models"
)

var (
	ErrSequenceFrozen = errors.New("goal sequence is frozen once dispatch has begun")
	ErrInvalidPose    = errors.New("invalid goal pose")
)

// Store keeps goals in insertion order, which is also visitation order.
// Goals are never removed; after Freeze the sequence is read-only.
type Store struct {
	mu     sync.RWMutex
	frame  string
	poses  []models.Pose
	frozen bool
}

// NewStore 기준 좌표계와 초기 목표 목록으로 저장소 생성
func NewStore(frame string, poses ...models.Pose) (*Store, error) {
	s := &Store{frame: frame}
	for i, p := range poses {
		if err := s.Add(p); err != nil {
			return nil, fmt.Errorf("goal %d: %w", i, err)
		}
	}
	return s, nil
}

// Add 목표 추가
func (s *Store) Add(p models.Pose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return ErrSequenceFrozen
	}

	if !p.IsFinite() {
		return fmt.Errorf("%w: non-finite component", ErrInvalidPose)
	}
	n := p.Orientation.Norm()
	if n < 1e-9 {
		return fmt.Errorf("%w: zero-length orientation", ErrInvalidPose)
	}
	p.Orientation = models.Quaternion{
		X: p.Orientation.X / n,
		Y: p.Orientation.Y / n,
		Z: p.Orientation.Z / n,
		W: p.Orientation.W / n,
	}
	s.poses = append(s.poses, p)
	return nil
}

// Freeze 이후 Add 는 ErrSequenceFrozen 을 반환한다.
func (s *Store) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Frozen reports whether dispatch has begun.
func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// Poses returns a copy of the full sequence.
func (s *Store) Poses() []models.Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Pose, len(s.poses))
	copy(out, s.poses)
	return out
}

// PoseArray 좌표계와 함께 전체 목록 반환
func (s *Store) PoseArray() models.PoseArray {
	return models.PoseArray{Frame: s.Frame(), Poses: s.Poses()}
}

// Count 목표 개수
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.poses)
}

// At 인덱스의 목표 조회
func (s *Store) At(i int) (models.Pose, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.poses) {
		return models.Pose{}, false
	}
	return s.poses[i], true
}

// Frame 기준 좌표계
func (s *Store) Frame() string {
	return s.frame
}
