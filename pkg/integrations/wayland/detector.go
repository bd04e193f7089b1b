// Package wayland probes windows on wlroots compositors through their IPC tools.
package wayland

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"forcefocus/pkg/utils"
	"forcefocus/pkg/window"
)

// runFunc executes an IPC command and returns its stdout
type runFunc func(name string, args ...string) ([]byte, error)

func runCommand(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Detector implements window.Detector for sway and Hyprland
type Detector struct {
	compositor string
	run        runFunc
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	return &Detector{compositor: detectCompositor(), run: runCommand}
}

// detectCompositor picks the compositor from its IPC environment, falling
// back to whichever IPC tool is installed
func detectCompositor() string {
	switch {
	case os.Getenv("SWAYSOCK") != "":
		return "sway"
	case os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "":
		return "hyprland"
	}

	desktop := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	switch {
	case strings.Contains(desktop, "sway"):
		return "sway"
	case strings.Contains(desktop, "hyprland"):
		return "hyprland"
	}
	return "unknown"
}

// IsAvailable checks if Wayland detection is available
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case "sway":
		return commandExists("swaymsg")
	case "hyprland":
		return commandExists("hyprctl")
	default:
		return false
	}
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// GetDisplayServer returns "wayland"
func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

// Compositor returns the detected compositor name
func (d *Detector) Compositor() string {
	return d.compositor
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.ActiveWindowSnapshot, error) {
	var (
		snap *window.ActiveWindowSnapshot
		err  error
	)

	switch d.compositor {
	case "sway":
		snap, err = d.focusedSway()
	case "hyprland":
		snap, err = d.focusedHyprland()
	default:
		return nil, fmt.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}

	path, procName := utils.ProcessInfo(snap.PID)
	snap.ProcessPath = path
	if snap.AppName == "" {
		snap.AppName = procName
	}
	if snap.AppName == "" {
		snap.AppName = "Unknown"
	}
	snap.Timestamp = time.Now()
	snap.DisplayServer = "wayland"
	return snap, nil
}

// ListWindows returns visible windows on the active workspaces, topmost first
func (d *Detector) ListWindows() ([]window.RawWindow, error) {
	var (
		windows []window.RawWindow
		err     error
	)

	switch d.compositor {
	case "sway":
		windows, err = d.listSway()
	case "hyprland":
		windows, err = d.listHyprland()
	default:
		return nil, window.ErrListUnsupported
	}
	if err != nil {
		return nil, err
	}

	for i := range windows {
		windows[i].ProcessPath, _ = utils.ProcessInfo(windows[i].PID)
	}
	return windows, nil
}

func (d *Detector) focusedSway() (*window.ActiveWindowSnapshot, error) {
	output, err := d.run("swaymsg", "-t", "get_tree")
	if err != nil {
		return nil, fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	tree, err := parseSwayTree(output)
	if err != nil {
		return nil, err
	}
	node := tree.focused()
	if node == nil {
		return nil, fmt.Errorf("no focused window in sway tree")
	}
	return node.snapshot(), nil
}

func (d *Detector) listSway() ([]window.RawWindow, error) {
	output, err := d.run("swaymsg", "-t", "get_tree")
	if err != nil {
		return nil, fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	tree, err := parseSwayTree(output)
	if err != nil {
		return nil, err
	}
	return tree.visibleWindows(), nil
}

func (d *Detector) focusedHyprland() (*window.ActiveWindowSnapshot, error) {
	output, err := d.run("hyprctl", "activewindow", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	c, err := parseHyprlandClient(output)
	if err != nil {
		return nil, err
	}
	return c.snapshot(), nil
}

func (d *Detector) listHyprland() ([]window.RawWindow, error) {
	clientsOut, err := d.run("hyprctl", "clients", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	monitorsOut, err := d.run("hyprctl", "monitors", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	return hyprlandVisible(clientsOut, monitorsOut)
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
