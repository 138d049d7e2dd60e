// internal/common/redis/keys.go
package redis

import "fmt"

// Redis Key Patterns Redis 키 패턴 상수
const (
	MissionStatusPattern = "mission:%s"
	CurrentMissionKey    = "mission:current"
)

// MissionStatus 미션 상태 해시 키 생성
func MissionStatus(missionID string) string {
	return fmt.Sprintf(MissionStatusPattern, missionID)
}

