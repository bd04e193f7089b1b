// Package detector picks the window probe matching the running display server.
package detector

import (
	"errors"
	"log"
	"os"

	"forcefocus/pkg/integrations/wayland"
	"forcefocus/pkg/integrations/x11"
	"forcefocus/pkg/window"
)

// ErrNoDisplay is returned when neither an X11 nor a Wayland probe can run
var ErrNoDisplay = errors.New("no supported display server available")

// New returns a probe for the current session. The probe for the detected
// display server is tried first; XWayland sessions fall back to X11.
func New() (window.Detector, error) {
	return firstAvailable(candidates(DetectDisplayServer()))
}

// firstAvailable returns the first usable probe and closes the ones it skips
func firstAvailable(dets []window.Detector) (window.Detector, error) {
	for _, det := range dets {
		if det.IsAvailable() {
			log.Printf("Window probe initialized: %s", det.GetDisplayServer())
			return det, nil
		}
		if err := det.Close(); err != nil {
			log.Printf("Failed to close %s probe: %v", det.GetDisplayServer(), err)
		}
	}
	return nil, ErrNoDisplay
}

func candidates(server string) []window.Detector {
	switch server {
	case "wayland":
		return []window.Detector{wayland.NewDetector(), x11.NewDetector()}
	case "x11":
		return []window.Detector{x11.NewDetector()}
	default:
		return []window.Detector{x11.NewDetector(), wayland.NewDetector()}
	}
}

// DetectDisplayServer reports "wayland", "x11" or "unknown" from the session environment
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
