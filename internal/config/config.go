// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string
	DBPath       string
	AgentBaseURL string
	AgentAPIKey  string
	LegacyUsers  string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:         getEnv("THALIA_ADDR", ":8080"),
		DBPath:       getEnv("THALIA_DB_PATH", "thalia.db"),
		AgentBaseURL: getEnv("THALIA_AGENT_URL", "http://localhost:8000"),
		AgentAPIKey:  getEnv("THALIA_AGENT_API_KEY", ""),
		LegacyUsers:  getEnv("THALIA_LEGACY_USERS", ""),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
