package window

import (
	"errors"
	"time"
)

// ErrListUnsupported is returned by probes that cannot enumerate the window stack
var ErrListUnsupported = errors.New("window stack enumeration not supported by this probe")

// Rect is an axis-aligned rectangle in screen coordinates
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the horizontal extent, zero for malformed rectangles
func (r Rect) Width() int {
	if r.Right < r.Left {
		return 0
	}
	return r.Right - r.Left
}

// Height returns the vertical extent, zero for malformed rectangles
func (r Rect) Height() int {
	if r.Bottom < r.Top {
		return 0
	}
	return r.Bottom - r.Top
}

// Empty reports whether the rectangle covers no area
func (r Rect) Empty() bool {
	return r.Width() == 0 || r.Height() == 0
}

// ActiveWindowSnapshot is one observation of the focused window
type ActiveWindowSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	Title         string    `json:"title"`
	AppName       string    `json:"app_name"`
	ProcessPath   string    `json:"process_path"`
	PID           int       `json:"process_id"`
	Rect          Rect      `json:"rect"`
	DisplayServer string    `json:"display_server"` // "x11" or "wayland"
}

// RawWindow is an on-screen window as reported by the OS, before occlusion
type RawWindow struct {
	Title       string
	ProcessPath string
	PID         int
	Rect        Rect
}

// Lister enumerates on-screen, non-minimized windows in front-to-back order
type Lister interface {
	ListWindows() ([]RawWindow, error)
}

// Detector is the interface that all window probe implementations must satisfy
type Detector interface {
	Lister

	// GetFocusedWindow returns the currently focused window
	GetFocusedWindow() (*ActiveWindowSnapshot, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11" or "wayland")
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}
