package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("FORCEFOCUS_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Monitor configuration
	if pollInterval := os.Getenv("FORCEFOCUS_POLL_INTERVAL"); pollInterval != "" {
		if seconds, err := strconv.Atoi(pollInterval); err == nil && seconds > 0 {
			interval := time.Duration(seconds) * time.Second
			if interval >= cfg.Monitor.MinPollInterval && interval <= cfg.Monitor.MaxPollInterval {
				cfg.Monitor.PollInterval = interval
			}
		}
	}

	// Remote configuration
	if enabled := os.Getenv("FORCEFOCUS_REMOTE_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			cfg.Remote.Enabled = val
		}
	}

	if baseURL := os.Getenv("FORCEFOCUS_API_URL"); baseURL != "" {
		cfg.Remote.BaseURL = baseURL
	}

	if token := os.Getenv("FORCEFOCUS_API_TOKEN"); token != "" {
		cfg.Remote.Token = token
	}

	if timeout := os.Getenv("FORCEFOCUS_API_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Remote.Timeout = d
		}
	}

	// Rules configuration
	if keywords := os.Getenv("FORCEFOCUS_KEYWORDS"); keywords != "" {
		var list []string
		for _, k := range strings.Split(keywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				list = append(list, k)
			}
		}
		cfg.Rules.Keywords = list
	}

	// Daemon configuration
	if pidFile := os.Getenv("FORCEFOCUS_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("FORCEFOCUS_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	if timeZone := os.Getenv("FORCEFOCUS_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}

	// Web configuration
	if webHost := os.Getenv("FORCEFOCUS_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("FORCEFOCUS_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
