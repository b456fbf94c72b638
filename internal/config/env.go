package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Log levels accepted in GAGA_LOG_LEVEL
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DefaultAPIBaseURL = "https://gaga.binbino.cn:88"
	DefaultAPITimeout = 10 * time.Second
	DefaultToolsFile  = "tools.yml"
)

// Env holds process-level configuration read from the environment
type Env struct {
	APIBaseURL  string
	APITimeout  time.Duration
	LogLevel    string
	DataDir     string
	ToolsFile   string
	MetricsAddr string // empty disables the metrics listener
}

// LoadEnv loads the given .env files (missing ones are skipped) and reads the environment.
// Variables already set in the process are not overridden by the files.
func LoadEnv(files ...string) (Env, error) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, err
		}
	}

	return Env{
		APIBaseURL:  strings.TrimRight(getEnv("GAGA_API_URL", DefaultAPIBaseURL), "/"),
		APITimeout:  getEnvDuration("GAGA_API_TIMEOUT", DefaultAPITimeout),
		LogLevel:    strings.ToLower(getEnv("GAGA_LOG_LEVEL", LogLevelInfo)),
		DataDir:     getEnv("GAGA_DATA_DIR", ""),
		ToolsFile:   getEnv("GAGA_TOOLS_FILE", DefaultToolsFile),
		MetricsAddr: getEnv("GAGA_METRICS_ADDR", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
