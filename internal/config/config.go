package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/presence-station/internal/constants"
)

type Config struct {
	Log       LogConfig
	Station   StationConfig
	Climate   ClimateConfig
	Camera    CameraConfig
	Embedding EmbeddingConfig
	Assistant AssistantConfig
	Database  DatabaseConfig
	Web       WebConfig
}

type LogConfig struct {
	Level  string // debug, info, warn, error (default info)
	Format string // console or json (default console)
}

type StationConfig struct {
	MatchTolerance    float64
	DebounceInterval  time.Duration
	KnownFacesDir     string
	WorkerDataDir     string
	AttendanceLogPath string
	VocabularyPath    string // empty selects the built-in vocabulary
}

type ClimateConfig struct {
	Interval         time.Duration
	FanThreshold     float64
	SensorAttempts   int
	SensorRetryDelay time.Duration
	SensorTimeout    time.Duration
	SimTemperature   float64 // initial temperature of the simulated board
	SimHumidity      float64
}

type CameraConfig struct {
	Device int // video device index, defaults to 0
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type AssistantConfig struct {
	Provider     string // openai, gemini or ollama (default)
	OpenAIToken  string
	GeminiAPIKey string
	OllamaURL    string // defaults to http://localhost:11434
	OllamaModel  string
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty keeps the attendance log in a file
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins, localhost is always allowed
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegativeInt is envInt that also accepts zero.
func envNonNegativeInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive duration ("1s", "500ms").
// Returns the default value if the env var is unset, empty, or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "console"),
		},
		Station: StationConfig{
			MatchTolerance:    envFloat("MATCH_TOLERANCE", constants.DefaultMatchTolerance),
			DebounceInterval:  envDuration("DEBOUNCE_INTERVAL", constants.DefaultDebounceInterval),
			KnownFacesDir:     envString("KNOWN_FACES_DIR", "known_faces"),
			WorkerDataDir:     envString("WORKER_DATA_DIR", "worker_data"),
			AttendanceLogPath: envString("ATTENDANCE_LOG_PATH", "time_logs.txt"),
			VocabularyPath:    os.Getenv("VOCABULARY_PATH"),
		},
		Climate: ClimateConfig{
			Interval:         envDuration("CONTROL_INTERVAL", constants.DefaultControlInterval),
			FanThreshold:     envFloat("FAN_THRESHOLD", constants.DefaultFanThreshold),
			SensorAttempts:   envInt("SENSOR_ATTEMPTS", constants.DefaultSensorAttempts),
			SensorRetryDelay: envDuration("SENSOR_RETRY_DELAY", constants.DefaultSensorRetryDelay),
			SensorTimeout:    envDuration("SENSOR_TIMEOUT", constants.DefaultSensorTimeout),
			SimTemperature:   envFloat("SIM_TEMPERATURE", 22.0),
			SimHumidity:      envFloat("SIM_HUMIDITY", 45.0),
		},
		Camera: CameraConfig{
			Device: envNonNegativeInt("CAMERA_DEVICE", 0),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Assistant: AssistantConfig{
			Provider:     os.Getenv("ASSISTANT_PROVIDER"),
			OpenAIToken:  os.Getenv("OPENAI_TOKEN"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			OllamaURL:    os.Getenv("OLLAMA_URL"),
			OllamaModel:  os.Getenv("OLLAMA_MODEL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8085),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
