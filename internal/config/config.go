package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Mission
	GlobalFrame        string
	WaypointsFile      string
	FailurePolicy      string
	MaxGoalRetries     int
	StallFeedbackLimit int
	StallMinProgress   float64

	// Robot
	RobotManufacturer    string
	RobotSerialNumber    string
	InterfacePrefix      string
	GoalReachedTolerance float64
	GoalTimeoutSeconds   int
	GoalTimeout          time.Duration

	// Database
	DBEnabled  bool
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MQTT
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Application
	HTTPAddr string
	LogLevel string
}

// Load reads the process environment, optionally seeded from a .env file.
// A missing .env file is fine; a malformed one is not.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	goalTimeoutSeconds := getEnvInt("GOAL_TIMEOUT_SECONDS", 0)

	return &Config{
		GlobalFrame:          getEnv("GLOBAL_FRAME", "map"),
		WaypointsFile:        getEnv("WAYPOINTS_FILE", "waypoints.yaml"),
		FailurePolicy:        strings.ToLower(getEnv("FAILURE_POLICY", "abort")),
		MaxGoalRetries:       getEnvInt("MAX_GOAL_RETRIES", 1),
		StallFeedbackLimit:   getEnvInt("STALL_FEEDBACK_LIMIT", 0),
		StallMinProgress:     getEnvFloat("STALL_MIN_PROGRESS", 0.05),
		RobotManufacturer:    getEnv("ROBOT_MANUFACTURER", "Roboligent"),
		RobotSerialNumber:    getEnv("ROBOT_SERIAL_NUMBER", "DEX0001"),
		InterfacePrefix:      getEnv("INTERFACE_PREFIX", "meili/v2"),
		GoalReachedTolerance: getEnvFloat("GOAL_REACHED_TOLERANCE", 0.25),
		GoalTimeoutSeconds:   goalTimeoutSeconds,
		GoalTimeout:          time.Duration(goalTimeoutSeconds) * time.Second,
		DBEnabled:            getEnvBool("DB_ENABLED", false),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "postgres"),
		DBPassword:           getEnv("DB_PASSWORD", "password"),
		DBName:               getEnv("DB_NAME", "waypoint_sequencer"),
		RedisEnabled:         getEnvBool("REDIS_ENABLED", false),
		RedisHost:            getEnv("REDIS_HOST", "localhost"),
		RedisPort:            getEnv("REDIS_PORT", "6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		MQTTBroker:           getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:         getEnv("MQTT_CLIENT_ID", "WAYPOINT_SEQUENCER"),
		MQTTUsername:         getEnv("MQTT_USERNAME", ""),
		MQTTPassword:         getEnv("MQTT_PASSWORD", ""),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
