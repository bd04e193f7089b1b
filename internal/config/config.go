package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"forcefocus/internal/engine"
	"forcefocus/internal/visibility"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Monitor configuration
	Monitor MonitorConfig `yaml:"monitor"`

	// Remote session service configuration
	Remote RemoteConfig `yaml:"remote"`

	// Deviation scoring rules
	Rules RulesConfig `yaml:"rules"`

	// Window visibility filter
	Visibility VisibilityConfig `yaml:"visibility"`

	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon"`

	// Report configuration
	Report ReportConfig `yaml:"report"`

	// Web server configuration
	Web WebConfig `yaml:"web"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database file
}

// MonitorConfig holds the scoring tick configuration
type MonitorConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`     // How often to score the focused window
	MinPollInterval time.Duration `yaml:"min_poll_interval"` // Minimum allowed poll interval
	MaxPollInterval time.Duration `yaml:"max_poll_interval"` // Maximum allowed poll interval
	InputPoll       time.Duration `yaml:"input_poll"`        // How often the input listener samples
}

// RemoteConfig holds the backend connection settings
type RemoteConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// RulesConfig mirrors engine.Rules in file form
type RulesConfig struct {
	Keywords          []string      `yaml:"keywords"`
	DistractionPoints int           `yaml:"distraction_points"`
	MildIdle          time.Duration `yaml:"mild_idle"`
	MildIdlePoints    int           `yaml:"mild_idle_points"`
	SevereIdle        time.Duration `yaml:"severe_idle"`
	SevereIdlePoints  int           `yaml:"severe_idle_points"`
	ProductiveIdle    time.Duration `yaml:"productive_idle"`
	DecayInterval     time.Duration `yaml:"decay_interval"`
	DecayPoints       int           `yaml:"decay_points"`
	NotifyThreshold   int           `yaml:"notify_threshold"`
	OverlayThreshold  int           `yaml:"overlay_threshold"`
}

// VisibilityConfig mirrors visibility.Filter in file form
type VisibilityConfig struct {
	IgnoredTitles      []string `yaml:"ignored_titles"`
	SystemPathPrefixes []string `yaml:"system_path_prefixes"`
	MinWidth           int      `yaml:"min_width"`
	MinHeight          int      `yaml:"min_height"`
	MinVisibleWidth    int      `yaml:"min_visible_width"`
	MinVisibleHeight   int      `yaml:"min_visible_height"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file"` // Path to PID file for daemon management
	LogFile string `yaml:"log_file"` // Where the background agent writes its log
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `yaml:"timezone"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `yaml:"host"` // Host to bind web server to
	Port int    `yaml:"port"` // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	rules := engine.DefaultRules()
	filter := visibility.DefaultFilter()

	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/forcefocus/forcefocus.db
		},
		Monitor: MonitorConfig{
			PollInterval:    5 * time.Second,
			MinPollInterval: 1 * time.Second,
			MaxPollInterval: 60 * time.Second,
			InputPoll:       250 * time.Millisecond,
		},
		Remote: RemoteConfig{
			Enabled: true,
			BaseURL: "http://127.0.0.1:8000/api/v1",
			Timeout: 10 * time.Second,
		},
		Rules: RulesConfig{
			Keywords:          rules.Keywords,
			DistractionPoints: rules.DistractionPoints,
			MildIdle:          rules.MildIdle,
			MildIdlePoints:    rules.MildIdlePoints,
			SevereIdle:        rules.SevereIdle,
			SevereIdlePoints:  rules.SevereIdlePoints,
			ProductiveIdle:    rules.ProductiveIdle,
			DecayInterval:     rules.DecayInterval,
			DecayPoints:       rules.DecayPoints,
			NotifyThreshold:   rules.NotifyThreshold,
			OverlayThreshold:  rules.OverlayThreshold,
		},
		Visibility: VisibilityConfig{
			IgnoredTitles:      filter.IgnoredTitles,
			SystemPathPrefixes: filter.SystemPathPrefixes,
			MinWidth:           filter.MinWidth,
			MinHeight:          filter.MinHeight,
			MinVisibleWidth:    filter.MinVisibleWidth,
			MinVisibleHeight:   filter.MinVisibleHeight,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/forcefocus-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/forcefocus-%d.log", os.Getuid()),
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 20000 + os.Getuid()%10000, // Per-user default port
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate monitor intervals
	if c.Monitor.PollInterval < c.Monitor.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Monitor.PollInterval, c.Monitor.MinPollInterval)
	}

	if c.Monitor.PollInterval > c.Monitor.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Monitor.PollInterval, c.Monitor.MaxPollInterval)
	}

	if c.Monitor.InputPoll <= 0 {
		return fmt.Errorf("input poll interval must be positive")
	}

	// Validate remote config
	if c.Remote.Enabled {
		if !strings.HasPrefix(c.Remote.BaseURL, "http://") && !strings.HasPrefix(c.Remote.BaseURL, "https://") {
			return fmt.Errorf("remote base URL must be http(s), got %q", c.Remote.BaseURL)
		}
		if c.Remote.Timeout <= 0 {
			return fmt.Errorf("remote timeout must be positive")
		}
	}

	if err := c.Rules.validate(); err != nil {
		return err
	}

	if c.Visibility.MinVisibleWidth < 0 || c.Visibility.MinVisibleHeight < 0 ||
		c.Visibility.MinWidth < 0 || c.Visibility.MinHeight < 0 {
		return fmt.Errorf("visibility thresholds cannot be negative")
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

func (r RulesConfig) validate() error {
	if r.DistractionPoints < 0 || r.MildIdlePoints < 0 || r.SevereIdlePoints < 0 || r.DecayPoints < 0 {
		return fmt.Errorf("rule points cannot be negative")
	}
	if r.MildIdle <= 0 || r.SevereIdle < r.MildIdle {
		return fmt.Errorf("idle bands must satisfy 0 < mild (%v) <= severe (%v)", r.MildIdle, r.SevereIdle)
	}
	if r.DecayInterval <= 0 {
		return fmt.Errorf("decay interval must be positive")
	}
	if r.NotifyThreshold <= 0 || r.OverlayThreshold < r.NotifyThreshold {
		return fmt.Errorf("thresholds must satisfy 0 < notify (%d) <= overlay (%d)", r.NotifyThreshold, r.OverlayThreshold)
	}
	if r.OverlayThreshold > 100 {
		return fmt.Errorf("overlay threshold cannot exceed 100, got %d", r.OverlayThreshold)
	}
	return nil
}

// EngineRules converts the rules section into engine rules
func (c *Config) EngineRules() engine.Rules {
	rules := engine.DefaultRules()
	rules.Keywords = append([]string(nil), c.Rules.Keywords...)
	rules.DistractionPoints = c.Rules.DistractionPoints
	rules.MildIdle = c.Rules.MildIdle
	rules.MildIdlePoints = c.Rules.MildIdlePoints
	rules.SevereIdle = c.Rules.SevereIdle
	rules.SevereIdlePoints = c.Rules.SevereIdlePoints
	rules.ProductiveIdle = c.Rules.ProductiveIdle
	rules.DecayInterval = c.Rules.DecayInterval
	rules.DecayPoints = c.Rules.DecayPoints
	rules.NotifyThreshold = c.Rules.NotifyThreshold
	rules.OverlayThreshold = c.Rules.OverlayThreshold
	return rules
}

// VisibilityFilter converts the visibility section into a filter
func (c *Config) VisibilityFilter() visibility.Filter {
	return visibility.Filter{
		IgnoredTitles:      append([]string(nil), c.Visibility.IgnoredTitles...),
		SystemPathPrefixes: append([]string(nil), c.Visibility.SystemPathPrefixes...),
		MinWidth:           c.Visibility.MinWidth,
		MinHeight:          c.Visibility.MinHeight,
		MinVisibleWidth:    c.Visibility.MinVisibleWidth,
		MinVisibleHeight:   c.Visibility.MinVisibleHeight,
	}
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Monitor.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Monitor.MinPollInterval)
	}
	if interval > c.Monitor.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Monitor.MaxPollInterval)
	}
	c.Monitor.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	token := "(none)"
	if c.Remote.Token != "" {
		token = "(set)"
	}
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Monitor:
    Poll Interval: %v
    Min Interval: %v
    Max Interval: %v
  Remote:
    Enabled: %v
    Base URL: %s
    Token: %s
    Timeout: %v
  Rules:
    Keywords: %s
    Notify Threshold: %d
    Overlay Threshold: %d
  Daemon:
    PID File: %s
    Log File: %s
  Report:
    Time Zone: %s
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		c.Monitor.PollInterval,
		c.Monitor.MinPollInterval,
		c.Monitor.MaxPollInterval,
		c.Remote.Enabled,
		c.Remote.BaseURL,
		token,
		c.Remote.Timeout,
		strings.Join(c.Rules.Keywords, ", "),
		c.Rules.NotifyThreshold,
		c.Rules.OverlayThreshold,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Report.TimeZone,
		c.Web.Host,
		c.Web.Port,
	)
}
