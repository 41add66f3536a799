package config

import (
	"os"
	"strconv"
	"time"
)

type VerificationConfig struct {
	CodeLength   int
	CodeTimeout  time.Duration
	MaxAttempts  int
	SendCooldown time.Duration
	SendWindow   time.Duration
	MaxSends     int
	RedisPrefix  string
}

func LoadVerificationConfig() *VerificationConfig {
	return &VerificationConfig{
		CodeLength:   getEnvAsInt("VERIFICATION_CODE_LENGTH", 6),
		CodeTimeout:  getEnvAsDuration("VERIFICATION_CODE_TTL", 5*time.Minute),
		MaxAttempts:  getEnvAsInt("VERIFICATION_MAX_ATTEMPTS", 5),
		SendCooldown: getEnvAsDuration("VERIFICATION_SEND_COOLDOWN", time.Minute),
		SendWindow:   getEnvAsDuration("VERIFICATION_SEND_WINDOW", time.Hour),
		MaxSends:     getEnvAsInt("VERIFICATION_MAX_SENDS", 5),
		RedisPrefix:  getEnv("VERIFICATION_REDIS_PREFIX", "verify"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
