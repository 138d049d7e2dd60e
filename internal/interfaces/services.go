// internal/interfaces/services.go
package interfaces

import (
	"context"
	"time"

	"waypoint-sequencer/internal/models"
)

// Logger 로깅 인터페이스
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// CacheService Redis 캐시 관련 서비스 인터페이스
type CacheService interface {
	HSet(ctx context.Context, key string, values map[string]interface{}) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// MissionJournal 미션 이력 기록 인터페이스 (append-only, 재시작 시 복원하지 않음)
type MissionJournal interface {
	RecordMissionStarted(mission *models.MissionRecord) error
	RecordMissionFinished(missionID string, outcome string, goalCount int) error
	RecordGoalDispatched(goal *models.GoalRecord) error
	RecordGoalResult(missionID string, attempt int, state string, finishedAt time.Time) error
}
