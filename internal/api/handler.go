// Package api is the HTTP mission control surface.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"waypoint-sequencer/internal/mission"
	"waypoint-sequencer/internal/models"
)

// MissionService 미션 제어 기능 (service.MissionService 가 구현)
type MissionService interface {
	StartMission(ctx context.Context) (mission.Status, error)
	CancelMission() (mission.Status, error)
	CurrentStatus() (mission.Status, error)
	GoalPoses() models.PoseArray
	Health() map[string]interface{}
}

// Handler handles mission API requests.
type Handler struct {
	service MissionService
}

// NewHandler creates a new instance of Handler.
func NewHandler(service MissionService) *Handler {
	return &Handler{service: service}
}

// HealthCheck provides a simple health status of the service.
func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, SuccessResponse("Service is healthy", h.service.Health()))
}

// GetMission returns the status of the current or most recent mission.
func (h *Handler) GetMission(c echo.Context) error {
	status, err := h.service.CurrentStatus()
	if err != nil {
		return missionError(err)
	}
	return c.JSON(http.StatusOK, SuccessResponse("Mission status retrieved successfully", status))
}

// GetGoals returns the full waypoint sequence.
func (h *Handler) GetGoals(c echo.Context) error {
	poses := h.service.GoalPoses()
	data := map[string]interface{}{
		"frame": poses.Frame,
		"goals": poses.Poses,
		"count": len(poses.Poses),
	}
	return c.JSON(http.StatusOK, SuccessResponse("Goals retrieved successfully", data))
}

// StartMission starts a new mission over the configured waypoints.
func (h *Handler) StartMission(c echo.Context) error {
	status, err := h.service.StartMission(c.Request().Context())
	if err != nil {
		return missionError(err)
	}
	return c.JSON(http.StatusAccepted, SuccessResponse("Mission started", status))
}

// CancelMission requests cancellation of the running mission.
func (h *Handler) CancelMission(c echo.Context) error {
	status, err := h.service.CancelMission()
	if err != nil {
		return missionError(err)
	}
	return c.JSON(http.StatusAccepted, SuccessResponse("Mission cancellation requested", status))
}

func missionError(err error) error {
	switch {
	case errors.Is(err, mission.ErrNoMission):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, mission.ErrMissionStarted), errors.Is(err, mission.ErrMissionNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
