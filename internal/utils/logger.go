package utils

import (
	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetFormatter(&logrus.JSONFormatter{})
}

// SetupLogger 로그 레벨 설정. 알 수 없는 값은 info로 처리
func SetupLogger(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Logger.SetLevel(parsed)
}

// WithMission returns an entry tagged with the mission id.
func WithMission(missionID string) *logrus.Entry {
	return Logger.WithField("mission_id", missionID)
}
