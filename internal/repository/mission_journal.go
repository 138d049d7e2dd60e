// internal/repository/mission_journal.go
package repository

import (
	"time"

	"gorm.io/gorm"

	"waypoint-sequencer/internal/models"
	"waypoint-sequencer/internal/utils"
)

// MissionJournal 미션/목표 이력을 postgres 에 기록한다. 기록만 하고 읽어서 복원하지 않는다.
type MissionJournal struct {
	db *gorm.DB
}

// NewMissionJournal 이력 저장소 생성
func NewMissionJournal(db *gorm.DB) *MissionJournal {
	return &MissionJournal{db: db}
}

// RecordMissionStarted 미션 시작 행 추가
func (j *MissionJournal) RecordMissionStarted(mission *models.MissionRecord) error {
	if err := j.db.Create(mission).Error; err != nil {
		return err
	}
	utils.Logger.Infof("Mission %s journaled with %d goals", mission.MissionID, mission.GoalTotal)
	return nil
}

// RecordMissionFinished 미션 최종 결과 기록
func (j *MissionJournal) RecordMissionFinished(missionID string, outcome string, goalCount int) error {
	return finishMission(j.db, missionID, outcome, goalCount, time.Now()).Error
}

// RecordGoalDispatched 목표 전송 행 추가
func (j *MissionJournal) RecordGoalDispatched(goal *models.GoalRecord) error {
	return j.db.Create(goal).Error
}

// RecordGoalResult 목표 결과 기록
func (j *MissionJournal) RecordGoalResult(missionID string, attempt int, state string, finishedAt time.Time) error {
	return finishGoal(j.db, missionID, attempt, state, finishedAt).Error
}

func finishMission(tx *gorm.DB, missionID, outcome string, goalCount int, completedAt time.Time) *gorm.DB {
	return tx.Model(&models.MissionRecord{}).
		Where("mission_id = ?", missionID).
		Updates(map[string]interface{}{
			"outcome":      outcome,
			"goal_count":   goalCount,
			"completed_at": completedAt,
		})
}

func finishGoal(tx *gorm.DB, missionID string, attempt int, state string, completedAt time.Time) *gorm.DB {
	return tx.Model(&models.GoalRecord{}).
		Where("mission_id = ? AND attempt = ?", missionID, attempt).
		Updates(map[string]interface{}{
			"state":        state,
			"completed_at": completedAt,
		})
}
