// internal/common/constants/status.go
package constants

// Mission Outcome 미션 결과 (DB/캐시 저장용)
const (
	OutcomeRunning   = "RUNNING"
	OutcomeFinished  = "FINISHED"
	OutcomeCancelled = "CANCELLED"
	OutcomeFailed    = "FAILED"
)

// Failure Policy 목표 실패 시 처리 정책
const (
	FailurePolicyAbort = "abort"
	FailurePolicySkip  = "skip"
	FailurePolicyRetry = "retry"
)

// Action Status 액션 상태 상수
const (
	ActionStatusWaiting      = "WAITING"
	ActionStatusInitializing = "INITIALIZING"
	ActionStatusRunning      = "RUNNING"
	ActionStatusPaused       = "PAUSED"
	ActionStatusFinished     = "FINISHED"
	ActionStatusFailed       = "FAILED"
)

// Error Level 에러 레벨 상수
const (
	ErrorLevelWarning = "WARNING"
	ErrorLevelFatal   = "FATAL"
)

// Blocking Type 블로킹 타입 상수
const (
	BlockingTypeNone = "NONE"
	BlockingTypeSoft = "SOFT"
	BlockingTypeHard = "HARD"
)

// Action Type 액션 타입 상수
const (
	ActionTypeCancelOrder = "cancelOrder"
)

// ProtocolVersion VDA5050 헤더 버전
const ProtocolVersion = "2.0.0"

// OrderTopic 오더 토픽
func OrderTopic(prefix, manufacturer, serialNumber string) string {
	return prefix + "/" + manufacturer + "/" + serialNumber + "/order"
}

// InstantActionsTopic 즉시 액션 토픽
func InstantActionsTopic(prefix, manufacturer, serialNumber string) string {
	return prefix + "/" + manufacturer + "/" + serialNumber + "/instantActions"
}

// StateTopic 상태 토픽
func StateTopic(prefix, manufacturer, serialNumber string) string {
	return prefix + "/" + manufacturer + "/" + serialNumber + "/state"
}

// IsValidFailurePolicy 유효한 실패 정책인지 확인
func IsValidFailurePolicy(policy string) bool {
	switch policy {
	case FailurePolicyAbort, FailurePolicySkip, FailurePolicyRetry:
		return true
	}
	return false
}
