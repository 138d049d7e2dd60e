// internal/database/postgres.go
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"waypoint-sequencer/internal/config"
	"waypoint-sequencer/internal/models"
)

// DSN postgres 접속 문자열
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
}

// NewPostgresDB 미션 이력 DB 연결 및 마이그레이션
func NewPostgresDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// 테이블 마이그레이션 (이력 전용, 재시작 시 읽지 않음)
	if err := db.AutoMigrate(
		&models.MissionRecord{}, // 미션 단위 이력
		&models.GoalRecord{},    // 목표 전송 단위 이력
	); err != nil {
		return nil, fmt.Errorf("failed to migrate mission tables: %w", err)
	}

	return db, nil
}
