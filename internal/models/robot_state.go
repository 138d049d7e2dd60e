// internal/models/robot_state.go
package models

// RobotStateMessage 로봇 상태 메시지 (VDA5050 state)
type RobotStateMessage struct {
	ActionStates          []ActionState `json:"actionStates"`
	AgvPosition           AgvPosition   `json:"agvPosition"`
	DistanceSinceLastNode float64       `json:"distanceSinceLastNode"`
	Driving               bool          `json:"driving"`
	EdgeStates            []EdgeState   `json:"edgeStates"`
	Errors                []ErrorInfo   `json:"errors"`
	HeaderID              int64         `json:"headerId"`
	LastNodeID            string        `json:"lastNodeId"`
	LastNodeSequenceID    int           `json:"lastNodeSequenceId"`
	Manufacturer          string        `json:"manufacturer"`
	NodeStates            []NodeState   `json:"nodeStates"`
	OperatingMode         string        `json:"operatingMode"`
	OrderID               string        `json:"orderId"`
	OrderUpdateID         int           `json:"orderUpdateId"`
	Paused                bool          `json:"paused"`
	SerialNumber          string        `json:"serialNumber"`
	Timestamp             string        `json:"timestamp"`
	Velocity              Velocity      `json:"velocity"`
	Version               string        `json:"version"`
}

// ActionState 액션 상태 정보
type ActionState struct {
	ActionDescription string `json:"actionDescription"`
	ActionID          string `json:"actionId"`
	ActionStatus      string `json:"actionStatus"`
	ActionType        string `json:"actionType"`
	ResultDescription string `json:"resultDescription"`
}

// AgvPosition AGV 위치 정보
type AgvPosition struct {
	DeviationRange      float64 `json:"deviationRange"`
	LocalizationScore   float64 `json:"localizationScore"`
	MapID               string  `json:"mapId"`
	PositionInitialized bool    `json:"positionInitialized"`
	Theta               float64 `json:"theta"`
	X                   float64 `json:"x"`
	Y                   float64 `json:"y"`
}

// EdgeState 엣지 상태 정보
type EdgeState struct {
	EdgeID     string `json:"edgeId"`
	Released   bool   `json:"released"`
	SequenceID int    `json:"sequenceId"`
}

// ErrorInfo 에러 정보
type ErrorInfo struct {
	ErrorType        string           `json:"errorType"`
	ErrorDescription string           `json:"errorDescription"`
	ErrorLevel       string           `json:"errorLevel"`
	ErrorReferences  []ErrorReference `json:"errorReferences"`
}

// ErrorReference 에러 참조 정보
type ErrorReference struct {
	ReferenceKey   string `json:"referenceKey"`
	ReferenceValue string `json:"referenceValue"`
}

// NodeState 아직 통과하지 않은 노드
type NodeState struct {
	NodeID     string `json:"nodeId"`
	Released   bool   `json:"released"`
	SequenceID int    `json:"sequenceId"`
}

// Velocity 속도 정보
type Velocity struct {
	Omega float64 `json:"omega"`
	Vx    float64 `json:"vx"`
	Vy    float64 `json:"vy"`
}

// FindActionState actionID 에 해당하는 액션 상태 조회
func (s *RobotStateMessage) FindActionState(actionID string) (ActionState, bool) {
	for _, a := range s.ActionStates {
		if a.ActionID == actionID {
			return a, true
		}
	}
	return ActionState{}, false
}

// HasErrorLevel 지정 레벨의 에러가 하나라도 있는지 확인
func (s *RobotStateMessage) HasErrorLevel(level string) (ErrorInfo, bool) {
	for _, e := range s.Errors {
		if e.ErrorLevel == level {
			return e, true
		}
	}
	return ErrorInfo{}, false
}
