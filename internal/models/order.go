// internal/models/order.go
package models

import "waypoint-sequencer/internal/common/types"

// OrderMessage VDA5050 order (MQTT 전송용)
type OrderMessage struct {
	HeaderID      int64       `json:"headerId"`
	Timestamp     string      `json:"timestamp"`
	Version       string      `json:"version"`
	Manufacturer  string      `json:"manufacturer"`
	SerialNumber  string      `json:"serialNumber"`
	OrderID       string      `json:"orderId"`
	OrderUpdateID int         `json:"orderUpdateId"`
	Nodes         []OrderNode `json:"nodes"`
	Edges         []OrderEdge `json:"edges"`
}

type OrderNode struct {
	NodeID       string        `json:"nodeId"`
	Description  string        `json:"description,omitempty"`
	SequenceID   int           `json:"sequenceId"`
	Released     bool          `json:"released"`
	NodePosition NodePosition  `json:"nodePosition"`
	Actions      []OrderAction `json:"actions"`
}

// NodePosition 노드 목표 위치. 소수점이 항상 찍히도록 types.Float64 사용
type NodePosition struct {
	X                     types.Float64 `json:"x"`
	Y                     types.Float64 `json:"y"`
	Theta                 types.Float64 `json:"theta"`
	AllowedDeviationXY    types.Float64 `json:"allowedDeviationXY"`
	AllowedDeviationTheta types.Float64 `json:"allowedDeviationTheta"`
	MapID                 string        `json:"mapId"`
}

type OrderAction struct {
	ActionType        string                 `json:"actionType"`
	ActionID          string                 `json:"actionId"`
	ActionDescription string                 `json:"actionDescription,omitempty"`
	BlockingType      string                 `json:"blockingType"`
	ActionParameters  []OrderActionParameter `json:"actionParameters"`
}

type OrderActionParameter struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

type OrderEdge struct {
	EdgeID          string `json:"edgeId"`
	SequenceID      int    `json:"sequenceId"`
	StartNodeID     string `json:"startNodeId"`
	EndNodeID       string `json:"endNodeId"`
	RotationAllowed bool   `json:"rotationAllowed"`
	Released        bool   `json:"released"`
}

// InstantActionsMessage VDA5050 instantActions (cancelOrder 등)
type InstantActionsMessage struct {
	HeaderID     int64         `json:"headerId"`
	Timestamp    string        `json:"timestamp"`
	Version      string        `json:"version"`
	Manufacturer string        `json:"manufacturer"`
	SerialNumber string        `json:"serialNumber"`
	Actions      []OrderAction `json:"actions"`
}
