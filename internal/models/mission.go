// internal/models/mission.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// MissionRecord 미션 실행 이력 (append-only)
type MissionRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	MissionID   string         `gorm:"size:64;not null;uniqueIndex" json:"mission_id"`
	Frame       string         `gorm:"size:100;not null" json:"frame"`
	GoalTotal   int            `gorm:"not null" json:"goal_total"`
	GoalCount   int            `gorm:"default:0" json:"goal_count"`
	Outcome     string         `gorm:"size:20;not null" json:"outcome"` // RUNNING, FINISHED, CANCELLED, FAILED
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	Goals []GoalRecord `gorm:"foreignKey:MissionID;references:MissionID" json:"goals"`
}

func (MissionRecord) TableName() string { return "missions" }

// GoalRecord 목표 하나의 전송/결과 이력. 재시도마다 한 행씩 추가된다.
type GoalRecord struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	MissionID   string     `gorm:"size:64;not null;index" json:"mission_id"`
	Attempt     int        `gorm:"not null" json:"attempt"` // 전체 dispatch 순번 (1부터)
	GoalIndex   int        `gorm:"not null" json:"goal_index"`
	GoalID      string     `gorm:"size:100;not null" json:"goal_id"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Yaw         float64    `json:"yaw"`
	State       string     `gorm:"size:20;not null" json:"state"`
	SentAt      time.Time  `json:"sent_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (GoalRecord) TableName() string { return "mission_goals" }
