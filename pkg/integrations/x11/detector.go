// Package x11 probes windows and input through the X protocol.
package x11

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"forcefocus/pkg/utils"
	"forcefocus/pkg/window"
)

// Detector implements window.Detector for X11
type Detector struct {
	mu     sync.Mutex
	client *client
}

// NewDetector creates a new X11 detector. The connection is opened lazily.
func NewDetector() *Detector {
	return &Detector{}
}

func (d *Detector) conn() (*client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil {
		return d.client, nil
	}
	c, err := newClient()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	d.client = c
	return c, nil
}

// IsAvailable checks if an X server is reachable
func (d *Detector) IsAvailable() bool {
	if os.Getenv("DISPLAY") == "" {
		return false
	}
	_, err := d.conn()
	return err == nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.ActiveWindowSnapshot, error) {
	c, err := d.conn()
	if err != nil {
		return nil, err
	}

	win, err := c.activeWindow()
	if err != nil {
		return nil, err
	}

	instance, class := c.windowClass(win)
	pid := c.windowPID(win)
	path, procName := utils.ProcessInfo(pid)

	snap := &window.ActiveWindowSnapshot{
		Timestamp:     time.Now(),
		Title:         strings.TrimSpace(c.windowName(win)),
		AppName:       appName(instance, class, procName),
		ProcessPath:   path,
		PID:           pid,
		DisplayServer: "x11",
	}
	if l, t, r, b, err := c.frame(win); err == nil {
		snap.Rect = window.Rect{Left: l, Top: t, Right: r, Bottom: b}
	}
	return snap, nil
}

// ListWindows returns viewable, non-hidden managed windows, topmost first
func (d *Detector) ListWindows() ([]window.RawWindow, error) {
	c, err := d.conn()
	if err != nil {
		return nil, err
	}

	stack, err := c.stacking()
	if err != nil {
		return nil, fmt.Errorf("failed to read window stacking order: %w", err)
	}

	out := make([]window.RawWindow, 0, len(stack))
	for _, win := range reversed(stack) {
		if c.isHidden(win) {
			continue
		}
		l, t, r, b, err := c.frame(win)
		if err != nil {
			// Window went away between listing and querying.
			continue
		}
		pid := c.windowPID(win)
		path, _ := utils.ProcessInfo(pid)
		out = append(out, window.RawWindow{
			Title:       c.windowName(win),
			ProcessPath: path,
			PID:         pid,
			Rect:        window.Rect{Left: l, Top: t, Right: r, Bottom: b},
		})
	}
	return out, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		d.client.close()
		d.client = nil
	}
	return nil
}
