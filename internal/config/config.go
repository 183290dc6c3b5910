// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries the process-level knobs. Everything comes from the
// environment (a .env file is loaded by the godotenv autoload import in
// main), falling back to the defaults of the reference deployment.
type Config struct {
	// Addr is the TCP listen address for the line protocol.
	Addr string
	// WSAddr is the HTTP listen address for the websocket transport.
	// Empty disables it.
	WSAddr string
	// WaitTimeout is how long a match request sits in the wait pool before
	// the timeout notice fires.
	WaitTimeout time.Duration
	// LogLevel is a logrus level name (trace..panic).
	LogLevel string
}

func New() (Config, error) {
	cfg := Config{
		Addr:        ":7777",
		WSAddr:      os.Getenv("MATCHMAKER_WS_ADDR"),
		WaitTimeout: 60 * time.Second,
		LogLevel:    "info",
	}
	if addr := os.Getenv("MATCHMAKER_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if lvl := os.Getenv("MATCHMAKER_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if raw := os.Getenv("MATCHMAKER_WAIT_TIMEOUT"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("invalid MATCHMAKER_WAIT_TIMEOUT %q", raw)
		}
		cfg.WaitTimeout = time.Duration(secs) * time.Second
	}
	return cfg, nil
}
