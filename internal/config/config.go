// Copyright (c) 2026 Ammar Ahmad
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds settings for the extraction model.
type LLMConfig struct {
	Provider    string  // "openai", "anthropic", or "ollama"
	Model       string
	APIKey      string
	BaseURL     string  // optional OpenAI-compatible endpoint
	Temperature float64
	MaxTokens   int
}

// Config holds all configuration for the mail processor.
type Config struct {
	// Postgres
	DatabaseURL string

	// Redis (optional; empty URL disables the outbound publisher)
	RedisURL       string
	ProcessedQueue string

	// Object store holding raw inbound messages
	S3Region   string
	S3Endpoint string // optional, for S3-compatible local stores
	S3Bucket   string // default bucket for the reprocess sweep

	// Extraction model
	LLM LLMConfig

	// Server
	Port int

	// Logging
	LogFile  string
	LogLevel string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Processed string `yaml:"processed"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	S3 struct {
		Region   string `yaml:"region"`
		Endpoint string `yaml:"endpoint"`
		Bucket   string `yaml:"bucket"`
	} `yaml:"s3"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"llm"`
	Log struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		DatabaseURL:    firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		RedisURL:       firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		ProcessedQueue: firstNonEmpty(raw.Redis.Queues.Processed, envOrDefault("PROCESSED_QUEUE", "processed_emails")),
		S3Region:       firstNonEmpty(raw.S3.Region, envOrDefault("AWS_REGION", "us-east-1")),
		S3Endpoint:     firstNonEmpty(raw.S3.Endpoint, os.Getenv("S3_ENDPOINT")),
		S3Bucket:       firstNonEmpty(raw.S3.Bucket, os.Getenv("S3_BUCKET")),
		LLM: LLMConfig{
			Provider:    firstNonEmpty(raw.LLM.Provider, envOrDefault("LLM_PROVIDER", "openai")),
			Model:       firstNonEmpty(raw.LLM.Model, envOrDefault("LLM_MODEL", "gpt-4o-mini")),
			APIKey:      firstNonEmpty(raw.LLM.APIKey, os.Getenv("LLM_API_KEY")),
			BaseURL:     firstNonEmpty(raw.LLM.BaseURL, os.Getenv("LLM_BASE_URL")),
			Temperature: raw.LLM.Temperature,
			MaxTokens:   raw.LLM.MaxTokens,
		},
		Port:     envOrDefaultInt("PORT", 8080),
		LogFile:  firstNonEmpty(raw.Log.File, os.Getenv("LOG_FILE")),
		LogLevel: firstNonEmpty(raw.Log.Level, envOrDefault("LOG_LEVEL", "info")),
	}

	// Extraction favours determinism: a low temperature unless set explicitly
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = envOrDefaultFloat("LLM_TEMPERATURE", 0.1)
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = envOrDefaultInt("LLM_MAX_TOKENS", 1500)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required — set database.url in config.yaml or DATABASE_URL")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required — set s3.bucket in config.yaml or S3_BUCKET")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
