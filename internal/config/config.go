package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	DashScopeAPIKey string
	ExtractModel    string
	GenerateModel   string
	DojoModel       string
	APIToken        string
}

func Load() Config {
	return Config{
		Port:            envInt("AMS_PORT", 8787),
		NatsURL:         envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		DashScopeAPIKey: envStr("DASHSCOPE_API_KEY", ""),
		ExtractModel:    envStr("EXTRACT_MODEL", "qwen-turbo"),
		GenerateModel:   envStr("GENERATE_MODEL", "qwen-plus"),
		DojoModel:       envStr("DOJO_MODEL", "qwen-plus"),
		APIToken:        envStr("AMS_API_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
