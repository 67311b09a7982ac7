package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway's yaml configuration. Environment variables
// override file values; the file itself is optional.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Nats struct {
		URL           string        `yaml:"url"`
		SubjectPrefix string        `yaml:"subject_prefix"`
		ReconnectWait time.Duration `yaml:"reconnect_wait"`
	} `yaml:"nats"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnvOverrides(&config), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return applyEnvOverrides(&config), nil
}

func applyEnvOverrides(config *Config) *Config {
	config.Server.Port = getEnv("PORT", defaultString(config.Server.Port, "8080"))
	config.Nats.URL = getEnv("NATS_URL", defaultString(config.Nats.URL, "nats://localhost:4222"))
	config.Nats.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", defaultString(config.Nats.SubjectPrefix, "typing.events"))
	config.Log.Level = getEnv("LOG_LEVEL", defaultString(config.Log.Level, "info"))
	if config.Nats.ReconnectWait == 0 {
		config.Nats.ReconnectWait = time.Duration(getEnvAsInt("NATS_RECONNECT_WAIT_SEC", 2)) * time.Second
	}
	return config
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
