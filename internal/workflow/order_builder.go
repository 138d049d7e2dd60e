// internal/workflow/order_builder.go
package workflow

import (
	"time"

	"waypoint-sequencer/internal/common/constants"
	"waypoint-sequencer/internal/common/idgen"
	"waypoint-sequencer/internal/common/types"
	"waypoint-sequencer/internal/config"
	"waypoint-sequencer/internal/models"
	"waypoint-sequencer/internal/utils"
)

// OrderBuilder 오더 메시지 생성기
type OrderBuilder struct {
	config *config.Config
	idGen  *idgen.Generator
}

// NewOrderBuilder 새 오더 빌더 생성
func NewOrderBuilder(cfg *config.Config) *OrderBuilder {
	return &OrderBuilder{
		config: cfg,
		idGen:  idgen.NewGenerator(),
	}
}

// BuildGoalOrder 단일 목표 포즈로 가는 오더 생성. 반환값은 (오더, 목표 노드 ID)
func (b *OrderBuilder) BuildGoalOrder(orderID string, pose models.Pose, frame string) (*models.OrderMessage, string) {
	if orderID == "" {
		orderID = b.idGen.OrderID()
	}
	nodeID := b.idGen.NodeID()

	node := models.OrderNode{
		NodeID:     nodeID,
		SequenceID: 0,
		Released:   true,
		NodePosition: models.NodePosition{
			X:                     types.Float64(pose.Position.X),
			Y:                     types.Float64(pose.Position.Y),
			Theta:                 types.Float64(pose.Yaw()),
			AllowedDeviationXY:    types.Float64(b.config.GoalReachedTolerance),
			AllowedDeviationTheta: types.Float64(0),
			MapID:                 frame,
		},
		Actions: []models.OrderAction{},
	}

	return &models.OrderMessage{
		HeaderID:      utils.GetNextHeaderID(),
		Timestamp:     time.Now().Format(time.RFC3339Nano),
		Version:       constants.ProtocolVersion,
		Manufacturer:  b.config.RobotManufacturer,
		SerialNumber:  b.config.RobotSerialNumber,
		OrderID:       orderID,
		OrderUpdateID: 0,
		Nodes:         []models.OrderNode{node},
		Edges:         []models.OrderEdge{},
	}, nodeID
}

// BuildCancelOrderMessage cancelOrder 즉시 액션 생성. 반환값은 (메시지, 액션 ID)
func (b *OrderBuilder) BuildCancelOrderMessage() (*models.InstantActionsMessage, string) {
	actionID := b.idGen.ActionID()

	return &models.InstantActionsMessage{
		HeaderID:     utils.GetNextHeaderID(),
		Timestamp:    time.Now().Format(time.RFC3339Nano),
		Version:      constants.ProtocolVersion,
		Manufacturer: b.config.RobotManufacturer,
		SerialNumber: b.config.RobotSerialNumber,
		Actions: []models.OrderAction{
			{
				ActionType:       constants.ActionTypeCancelOrder,
				ActionID:         actionID,
				BlockingType:     constants.BlockingTypeHard,
				ActionParameters: []models.OrderActionParameter{},
			},
		},
	}, actionID
}

// OrderTopic 오더 발행 토픽
func (b *OrderBuilder) OrderTopic() string {
	return constants.OrderTopic(b.config.InterfacePrefix, b.config.RobotManufacturer, b.config.RobotSerialNumber)
}

// InstantActionsTopic 즉시 액션 발행 토픽
func (b *OrderBuilder) InstantActionsTopic() string {
	return constants.InstantActionsTopic(b.config.InterfacePrefix, b.config.RobotManufacturer, b.config.RobotSerialNumber)
}

// StateTopic 로봇 상태 구독 토픽
func (b *OrderBuilder) StateTopic() string {
	return constants.StateTopic(b.config.InterfacePrefix, b.config.RobotManufacturer, b.config.RobotSerialNumber)
}
