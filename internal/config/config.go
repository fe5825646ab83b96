// Package config reads the service configuration from the environment.
// The .env file itself is loaded by main before New is called.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Port             string
	CORSOrigin       string
	OpenRouterAPIKey string
	Referer          string // HTTP-Referer header sent to OpenRouter
	TaskDataPath     string // JSON file backing the TaskMaster store
	UploadDir        string // scratch directory for multipart uploads
	ModelsFile       string // optional YAML override for the model table
}

// New builds a Config from the environment. The OpenRouter credential is
// required; everything else has a default.
func New() (*Config, error) {
	cfg := &Config{
		Port:             getenv("PORT", "3001"),
		CORSOrigin:       getenv("CORS_ORIGIN", "http://localhost:3000"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		Referer:          getenv("GITHUB_REPO", "https://github.com/villagaiaimpacthub/room-of-requirements"),
		TaskDataPath:     getenv("TASKMASTER_DATA", filepath.Join("data", "taskmaster.json")),
		UploadDir:        getenv("UPLOAD_DIR", "uploads"),
		ModelsFile:       os.Getenv("MODELS_FILE"),
	}

	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
