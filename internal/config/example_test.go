package config_test

import (
	"fmt"
	"time"

	"forcefocus/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Poll Interval:", cfg.Monitor.PollInterval)
	fmt.Println("Backend:", cfg.Remote.BaseURL)
	fmt.Println("Overlay at:", cfg.Rules.OverlayThreshold)
	// Output:
	// Poll Interval: 5s
	// Backend: http://127.0.0.1:8000/api/v1
	// Overlay at: 20
}

// Example of creating configuration with environment variables
func ExampleNew() {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	fmt.Println("Configuration loaded successfully")
	// Output:
	// Configuration loaded successfully
}

// Example of setting poll interval with validation
func ExampleConfig_SetPollInterval() {
	cfg := config.Default()

	// Valid interval
	if err := cfg.SetPollInterval(30 * time.Second); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Poll interval set to:", cfg.Monitor.PollInterval)
	}

	// Invalid interval (too low)
	if err := cfg.SetPollInterval(500 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Poll interval set to: 30s
	// Error: poll interval cannot be less than 1s
}

// Example of overlaying a YAML document on the defaults
func ExampleLoadBytes() {
	cfg := config.Default()
	err := config.LoadBytes(cfg, []byte(`
rules:
  keywords: [reddit, twitch]
  overlay_threshold: 30
monitor:
  poll_interval: 10s
`))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Keywords:", cfg.Rules.Keywords)
	fmt.Println("Overlay at:", cfg.Rules.OverlayThreshold)
	fmt.Println("Notify at:", cfg.Rules.NotifyThreshold)
	fmt.Println("Poll Interval:", cfg.Monitor.PollInterval)
	// Output:
	// Keywords: [reddit twitch]
	// Overlay at: 30
	// Notify at: 10
	// Poll Interval: 10s
}
