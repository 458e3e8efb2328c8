package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           string
	LogDir         string
	LanguagesFile  string
	ProfilerBinary string
	SampleInterval time.Duration
	ExecTimeout    time.Duration
	RatePerSecond  int
	RateBurst      int
	LogLevel       string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		LogDir:         getEnv("LOG_DIR", os.TempDir()),
		LanguagesFile:  getEnv("LANGUAGES_FILE", ""),
		ProfilerBinary: getEnv("PROFILER_BINARY", "/usr/local/bin/crucible"),
		SampleInterval: getEnvDuration("SAMPLE_INTERVAL", 100*time.Microsecond),
		ExecTimeout:    getEnvDuration("EXEC_TIMEOUT", 60*time.Second),
		RatePerSecond:  GetEnvInt("RATE_PER_SECOND", 10),
		RateBurst:      GetEnvInt("RATE_BURST", 20),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
