package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	// Logging
	LogLevel string

	// Browser settings
	StartDir      string        // Directory the browser opens in
	DebounceDelay time.Duration // Coalescing window for filesystem events

	// Shell settings
	Shell       string        // Interpreter used as `<shell> -c <command>`
	ShellPath   string        // Optional PATH override for subshells
	CancelGrace time.Duration // SIGINT to SIGKILL escalation delay

	// Interactive terminal endpoint
	TerminalEnabled bool

	// Request guards
	AccessToken    string   // When set, every API request must present it
	AllowedOrigins []string // Extra browser origins besides the served one
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		cfg = load()
	})
	return cfg
}

// load reads configuration from environment variables
func load() *Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "/"
	}

	return &Config{
		// Server
		Port: getEnvInt("PORT", 12345),
		Host: getEnv("HOST", "127.0.0.1"),
		Env:  getEnv("ENV", "development"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Browser
		StartDir:      getEnv("DUCK_START_DIR", home),
		DebounceDelay: getEnvMillis("DUCK_DEBOUNCE_MS", 150*time.Millisecond),

		// Shell
		Shell:       getEnv("DUCK_SHELL", "/bin/bash"),
		ShellPath:   getEnv("DUCK_SHELL_PATH", ""),
		CancelGrace: getEnvMillis("DUCK_CANCEL_GRACE_MS", 3*time.Second),

		TerminalEnabled: getEnvBool("DUCK_TERMINAL", true),

		AccessToken:    getEnv("DUCK_TOKEN", ""),
		AllowedOrigins: getEnvList("DUCK_ALLOWED_ORIGINS"),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvMillis reads a duration expressed in whole milliseconds
func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if ms := getEnvInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
