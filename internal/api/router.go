package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"waypoint-sequencer/internal/utils"
)

// NewServer builds the echo instance with every mission route registered.
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger)

	v1 := e.Group("/api/v1")
	v1.GET("/health", h.HealthCheck)
	v1.GET("/mission", h.GetMission)
	v1.GET("/mission/goals", h.GetGoals)
	v1.POST("/mission/start", h.StartMission)
	v1.POST("/mission/cancel", h.CancelMission)

	return e
}

// errorHandler wraps every error in the standard response envelope.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "An unexpected internal error occurred."
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	} else {
		utils.Logger.WithError(err).Error("Unhandled API error")
	}

	if err := c.JSON(code, ErrorResponse(message)); err != nil {
		utils.Logger.WithError(err).Warn("Failed to write error response")
	}
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		utils.Logger.WithFields(logrus.Fields{
			"method":  c.Request().Method,
			"uri":     c.Request().RequestURI,
			"status":  c.Response().Status,
			"latency": time.Since(start).String(),
		}).Debug("HTTP request")
		return nil
	}
}
