// internal/di/container.go
package di

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"waypoint-sequencer/internal/cache"
	"waypoint-sequencer/internal/config"
	"waypoint-sequencer/internal/database"
	"waypoint-sequencer/internal/goals"
	"waypoint-sequencer/internal/interfaces"
	"waypoint-sequencer/internal/messaging"
	"waypoint-sequencer/internal/navigation"
	"waypoint-sequencer/internal/redis"
	"waypoint-sequencer/internal/repository"
	"waypoint-sequencer/internal/service"
	"waypoint-sequencer/internal/utils"
	"waypoint-sequencer/internal/workflow"
)

const (
	statusTTL         = 24 * time.Hour
	statusMinInterval = time.Second
)

// Container 의존성 주입 컨테이너
type Container struct {
	Config *config.Config
	Logger interfaces.Logger

	// Infra
	MQTTClient *messaging.MQTTClient
	DB         *gorm.DB
	Cache      *cache.RedisCache

	// Mission
	Waypoints      *goals.Store
	OrderBuilder   *workflow.OrderBuilder
	Navigator      *navigation.MQTTAdapter
	Journal        interfaces.MissionJournal
	Status         *cache.StatusPublisher
	MissionService *service.MissionService
}

// NewContainer 새로운 컨테이너 생성
func NewContainer(cfg *config.Config) (*Container, error) {
	utils.SetupLogger(cfg.LogLevel)
	c := &Container{Config: cfg, Logger: utils.Logger}

	// 1. 웨이포인트 로드
	waypoints, err := goals.LoadFile(cfg.WaypointsFile, cfg.GlobalFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to load waypoints: %w", err)
	}
	c.Waypoints = waypoints
	c.Logger.Infof("📍 Loaded %d waypoints in frame %q from %s", waypoints.Count(), waypoints.Frame(), cfg.WaypointsFile)

	// 2. 인프라 서비스들 초기화
	if err := c.initInfraServices(cfg); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init infra services: %w", err)
	}

	// 3. 미션 서비스 초기화
	c.initMissionServices(cfg)

	return c, nil
}

// initInfraServices MQTT 는 필수, DB 와 Redis 는 설정에 따라 선택
func (c *Container) initInfraServices(cfg *config.Config) error {
	mqttClient, err := messaging.NewMQTTClient(cfg)
	if err != nil {
		return fmt.Errorf("mqtt init failed: %w", err)
	}
	c.MQTTClient = mqttClient

	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			return fmt.Errorf("database init failed: %w", err)
		}
		c.DB = db
		c.Journal = repository.NewMissionJournal(db)
	}

	if cfg.RedisEnabled {
		redisClient, err := redis.NewRedisClient(cfg)
		if err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
		c.Cache = cache.NewRedisCache(redisClient)
		c.Status = cache.NewStatusPublisher(c.Cache, c.Logger, statusTTL, statusMinInterval)
	}

	return nil
}

// initMissionServices 오더 빌더, 내비게이터, 미션 서비스 구성
func (c *Container) initMissionServices(cfg *config.Config) {
	c.OrderBuilder = workflow.NewOrderBuilder(cfg)
	c.Navigator = navigation.NewMQTTAdapter(c.MQTTClient, c.OrderBuilder, c.Logger, cfg.GoalTimeout)

	// nil 포인터가 인터페이스에 담기지 않도록 분기
	var status service.StatusRunner
	if c.Status != nil {
		status = c.Status
	}

	c.MissionService = service.NewMissionService(
		cfg,
		c.MQTTClient,
		c.Navigator,
		c.Waypoints,
		c.Journal,
		status,
		c.Logger,
	)
}

// Cleanup 리소스 정리
func (c *Container) Cleanup() {
	if c.MQTTClient != nil {
		c.MQTTClient.Disconnect(250)
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Warnf("Failed to close redis: %v", err)
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	c.Logger.Infof("Container cleanup completed")
}
