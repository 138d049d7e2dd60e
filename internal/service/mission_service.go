// internal/service/mission_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"waypoint-sequencer/internal/api"
	"waypoint-sequencer/internal/config"
	"waypoint-sequencer/internal/goals"
	"waypoint-sequencer/internal/interfaces"
	"waypoint-sequencer/internal/messaging"
	"waypoint-sequencer/internal/mission"
	"waypoint-sequencer/internal/models"
	"waypoint-sequencer/internal/navigation"
)

// Navigator 상태 구독을 시작할 수 있는 내비게이션 클라이언트
type Navigator interface {
	navigation.Client
	Start() error
}

// StatusRunner 상태 싱크 중 백그라운드 작업이 필요한 것
type StatusRunner interface {
	mission.StatusSink
	Run(ctx context.Context) error
}

// MissionService owns the navigator, the HTTP surface and at most one
// running mission. A new mission can start once the previous one ended.
type MissionService struct {
	cfg       *config.Config
	client    messaging.Client
	navigator Navigator
	waypoints *goals.Store
	journal   interfaces.MissionJournal
	status    StatusRunner
	logger    interfaces.Logger

	mu      sync.Mutex
	current *mission.Controller
}

// NewMissionService 미션 서비스 생성. journal, status 는 nil 이면 사용하지 않는다
func NewMissionService(
	cfg *config.Config,
	client messaging.Client,
	navigator Navigator,
	waypoints *goals.Store,
	journal interfaces.MissionJournal,
	status StatusRunner,
	logger interfaces.Logger,
) *MissionService {
	return &MissionService{
		cfg:       cfg,
		client:    client,
		navigator: navigator,
		waypoints: waypoints,
		journal:   journal,
		status:    status,
		logger:    logger,
	}
}

var _ api.MissionService = (*MissionService)(nil)

// Run subscribes to the robot, serves HTTP and blocks until ctx is done.
// A running mission is cancelled on the way out.
func (s *MissionService) Run(ctx context.Context, autoStart bool) error {
	s.logger.Infof("🚀 STARTING MissionService")

	if err := s.navigator.Start(); err != nil {
		return fmt.Errorf("failed to start navigator: %w", err)
	}

	server := api.NewServer(api.NewHandler(s))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Infof("🌐 HTTP API listening on %s", s.cfg.HTTPAddr)
		if err := server.Start(s.cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	if s.status != nil {
		g.Go(func() error { return s.status.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Infof("💤 MissionService context cancelled")

		if _, err := s.CancelMission(); err == nil {
			s.logger.Infof("Running mission cancelled on shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if autoStart {
		if _, err := s.StartMission(gctx); err != nil {
			s.logger.Errorf("❌ Auto-start failed: %v", err)
		}
	}

	return g.Wait()
}

// StartMission 새 미션 시작. 진행 중인 미션이 있으면 mission.ErrMissionStarted
func (s *MissionService) StartMission(ctx context.Context) (mission.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !s.current.Outcome().IsTerminal() {
		return s.current.Status(), mission.ErrMissionStarted
	}

	store, err := goals.NewStore(s.waypoints.Frame(), s.waypoints.Poses()...)
	if err != nil {
		return mission.Status{}, fmt.Errorf("failed to prepare goal sequence: %w", err)
	}

	opts := mission.Options{
		FailurePolicy:      s.cfg.FailurePolicy,
		MaxGoalRetries:     s.cfg.MaxGoalRetries,
		StallFeedbackLimit: s.cfg.StallFeedbackLimit,
		StallMinProgress:   s.cfg.StallMinProgress,
		Journal:            s.journal,
	}
	if s.status != nil {
		opts.Status = s.status
	}

	ctrl := mission.NewController(s.navigator, store, opts)
	s.current = ctrl

	if err := ctrl.SendGoalsToMoveBase(ctx); err != nil {
		return ctrl.Status(), err
	}
	return ctrl.Status(), nil
}

// CancelMission 진행 중인 미션 취소 요청
func (s *MissionService) CancelMission() (mission.Status, error) {
	s.mu.Lock()
	ctrl := s.current
	s.mu.Unlock()

	if ctrl == nil {
		return mission.Status{}, mission.ErrNoMission
	}
	if err := ctrl.Cancel(); err != nil {
		return ctrl.Status(), err
	}
	return ctrl.Status(), nil
}

// CurrentStatus 현재 또는 마지막 미션 상태
func (s *MissionService) CurrentStatus() (mission.Status, error) {
	s.mu.Lock()
	ctrl := s.current
	s.mu.Unlock()

	if ctrl == nil {
		return mission.Status{}, mission.ErrNoMission
	}
	return ctrl.Status(), nil
}

// GoalPoses 설정된 전체 목표 목록
func (s *MissionService) GoalPoses() models.PoseArray {
	s.mu.Lock()
	ctrl := s.current
	s.mu.Unlock()

	if ctrl != nil {
		return ctrl.GoalsPoses()
	}
	return s.waypoints.PoseArray()
}

// Health 헬스 체크 상태 반환
func (s *MissionService) Health() map[string]interface{} {
	health := map[string]interface{}{
		"mqtt_connected":  s.client != nil && s.client.IsConnected(),
		"journal_enabled": s.journal != nil,
		"cache_enabled":   s.status != nil,
		"goal_total":      s.waypoints.Count(),
		"timestamp":       time.Now().Format(time.RFC3339),
		"status":          "running",
	}
	if st, err := s.CurrentStatus(); err == nil {
		health["mission_id"] = st.MissionID
		health["mission_state"] = st.State
	}
	return health
}
