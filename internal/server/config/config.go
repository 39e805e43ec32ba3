package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port              string
	BaseURL           string
	StoragePath       string
	MaxFileSize       int64
	DefaultTTL        time.Duration
	MaxTTL            time.Duration
	SweepInterval     time.Duration
	CodeLength        int
	CodeAlphabet      string // "alphanumeric" or "numeric"
	RateLimitRPS      float64
	RateLimitBurst    int
	SocialResolverURL string
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		StoragePath:       getEnv("STORAGE_PATH", "./uploads"),
		MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", 2*1024*1024*1024), // 2GiB
		DefaultTTL:        getEnvHours("DEFAULT_TTL_HOURS", 24*time.Hour),
		MaxTTL:            getEnvHours("MAX_TTL_HOURS", 7*24*time.Hour),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", time.Minute),
		CodeLength:        getEnvInt("CODE_LENGTH", 6),
		CodeAlphabet:      getEnv("CODE_ALPHABET", "alphanumeric"),
		RateLimitRPS:      getEnvFloat64("RATE_LIMIT_RPS", 10),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 20),
		SocialResolverURL: getEnv("SOCIAL_RESOLVER_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvHours(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if hours, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(hours * float64(time.Hour))
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
