// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates every configurable aspect of the service.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Chat    ChatConfig
	Log     LogConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Storage: loadStorageConfig(),
		Chat:    chat,
		Log:     loadLogConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// loadServerConfig parses the listen address.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// StorageConfig describes the catalog database location.
type StorageConfig struct {
	DBPath string
}

func loadStorageConfig() StorageConfig {
	path := strings.TrimSpace(os.Getenv("ONESKY_DB_PATH"))
	if path == "" {
		path = "data/onesky.db"
	}
	return StorageConfig{DBPath: path}
}

// ChatConfig describes chat rate limiting. A MessagesPerMinute of zero
// disables limiting.
type ChatConfig struct {
	MessagesPerMinute int
	RateBurst         int
}

func loadChatConfig() (ChatConfig, error) {
	perMinute, err := parseIntEnv("CHAT_RATE_LIMIT", 30)
	if err != nil {
		return ChatConfig{}, err
	}

	burst, err := parseIntEnv("CHAT_RATE_BURST", 5)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{MessagesPerMinute: perMinute, RateBurst: burst}, nil
}

// LogConfig describes log output.
type LogConfig struct {
	Level string
}

func loadLogConfig() LogConfig {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	return LogConfig{Level: level}
}

func parseIntEnv(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", name, raw)
	}

	return value, nil
}
