package wayland

import (
	"errors"
	"strings"
	"testing"

	"forcefocus/pkg/window"
)

const swayTree = `{
  "id": 1, "type": "root", "name": "root", "rect": {"x": 0, "y": 0, "width": 1920, "height": 1080},
  "nodes": [{
    "id": 2, "type": "output", "name": "eDP-1",
    "nodes": [{
      "id": 3, "type": "workspace", "name": "1",
      "nodes": [
        {"id": 10, "type": "con", "name": "main.go - Code", "app_id": "code", "pid": 100,
         "visible": true, "focused": true,
         "rect": {"x": 0, "y": 0, "width": 960, "height": 1080}},
        {"id": 11, "type": "con", "name": "Terminal", "app_id": null, "pid": 101,
         "visible": true, "focused": false,
         "window_properties": {"class": "XTerm"},
         "rect": {"x": 960, "y": 0, "width": 960, "height": 1080}},
        {"id": 12, "type": "con", "name": "Hidden tab", "pid": 102,
         "visible": false, "focused": false,
         "rect": {"x": 960, "y": 0, "width": 960, "height": 1080}}
      ],
      "floating_nodes": [
        {"id": 20, "type": "floating_con", "name": "Calculator", "pid": 103,
         "visible": true, "rect": {"x": 100, "y": 100, "width": 300, "height": 400}},
        {"id": 21, "type": "floating_con", "name": "Picture", "pid": 104,
         "visible": true, "rect": {"x": 200, "y": 200, "width": 400, "height": 300}}
      ]
    }]
  }]
}`

func TestNewDetector(t *testing.T) {
	detector := NewDetector()
	if detector == nil {
		t.Fatal("NewDetector() returned nil")
	}

	t.Logf("Detected compositor: %s", detector.Compositor())
	t.Logf("Wayland detector available: %v", detector.IsAvailable())
}

func TestGetDisplayServer(t *testing.T) {
	detector := NewDetector()
	if got := detector.GetDisplayServer(); got != "wayland" {
		t.Errorf("GetDisplayServer() = %s, want wayland", got)
	}
}

func TestDetectCompositor(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "Sway socket", env: map[string]string{"SWAYSOCK": "/run/user/1000/sway-ipc.sock"}, want: "sway"},
		{name: "Hyprland signature", env: map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "abc"}, want: "hyprland"},
		{name: "Desktop name", env: map[string]string{"XDG_CURRENT_DESKTOP": "Hyprland"}, want: "hyprland"},
		{name: "Unknown", env: map[string]string{"XDG_CURRENT_DESKTOP": "GNOME"}, want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SWAYSOCK", "")
			t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
			t.Setenv("XDG_CURRENT_DESKTOP", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := detectCompositor(); got != tt.want {
				t.Errorf("detectCompositor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSwayFocused(t *testing.T) {
	tree, err := parseSwayTree([]byte(swayTree))
	if err != nil {
		t.Fatalf("parseSwayTree() error: %v", err)
	}

	node := tree.focused()
	if node == nil {
		t.Fatal("focused() returned nil")
	}
	snap := node.snapshot()
	if snap.Title != "main.go - Code" || snap.AppName != "code" || snap.PID != 100 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Rect != (window.Rect{Left: 0, Top: 0, Right: 960, Bottom: 1080}) {
		t.Errorf("Rect = %+v", snap.Rect)
	}
}

func TestSwayVisibleWindows(t *testing.T) {
	tree, err := parseSwayTree([]byte(swayTree))
	if err != nil {
		t.Fatalf("parseSwayTree() error: %v", err)
	}

	windows := tree.visibleWindows()
	var titles []string
	for _, w := range windows {
		titles = append(titles, w.Title)
	}

	want := "Picture,Calculator,main.go - Code,Terminal"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("visibleWindows() order = %s, want %s", got, want)
	}
}

func TestSwayClassFallback(t *testing.T) {
	tree, _ := parseSwayTree([]byte(swayTree))
	term := tree.Nodes[0].Nodes[0].Nodes[1]
	if got := term.appName(); got != "XTerm" {
		t.Errorf("appName() = %s, want XTerm", got)
	}
}

func TestParseSwayTreeInvalid(t *testing.T) {
	if _, err := parseSwayTree([]byte("not json")); err == nil {
		t.Error("parseSwayTree() should fail on invalid input")
	}
}

func TestHyprlandActiveWindow(t *testing.T) {
	data := `{"address": "0x1", "mapped": true, "at": [10, 20], "size": [800, 600],
	          "pid": 42, "class": "firefox", "title": "YouTube - Firefox"}`

	c, err := parseHyprlandClient([]byte(data))
	if err != nil {
		t.Fatalf("parseHyprlandClient() error: %v", err)
	}
	snap := c.snapshot()
	if snap.AppName != "firefox" || snap.PID != 42 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Rect != (window.Rect{Left: 10, Top: 20, Right: 810, Bottom: 620}) {
		t.Errorf("Rect = %+v", snap.Rect)
	}

	if _, err := parseHyprlandClient([]byte(`{}`)); err == nil {
		t.Error("parseHyprlandClient() should fail when no window is focused")
	}
}

func TestHyprlandVisible(t *testing.T) {
	clients := `[
	  {"address": "0x1", "mapped": true, "hidden": false, "at": [0, 0], "size": [960, 1080],
	   "workspace": {"id": 1}, "floating": false, "pid": 1, "title": "Editor", "focusHistoryID": 1},
	  {"address": "0x2", "mapped": true, "hidden": false, "at": [960, 0], "size": [960, 1080],
	   "workspace": {"id": 1}, "floating": false, "pid": 2, "title": "Browser", "focusHistoryID": 0},
	  {"address": "0x3", "mapped": true, "hidden": false, "at": [100, 100], "size": [300, 300],
	   "workspace": {"id": 1}, "floating": true, "pid": 3, "title": "Popup", "focusHistoryID": 2},
	  {"address": "0x4", "mapped": true, "hidden": false, "at": [0, 0], "size": [500, 500],
	   "workspace": {"id": 2}, "floating": false, "pid": 4, "title": "Other workspace", "focusHistoryID": 3},
	  {"address": "0x5", "mapped": false, "hidden": false, "at": [0, 0], "size": [500, 500],
	   "workspace": {"id": 1}, "floating": false, "pid": 5, "title": "Unmapped", "focusHistoryID": 4},
	  {"address": "0x6", "mapped": true, "hidden": true, "at": [0, 0], "size": [500, 500],
	   "workspace": {"id": 1}, "floating": false, "pid": 6, "title": "Hidden", "focusHistoryID": 5}
	]`
	monitors := `[{"activeWorkspace": {"id": 1}, "specialWorkspace": {"id": 0}}]`

	windows, err := hyprlandVisible([]byte(clients), []byte(monitors))
	if err != nil {
		t.Fatalf("hyprlandVisible() error: %v", err)
	}

	var titles []string
	for _, w := range windows {
		titles = append(titles, w.Title)
	}
	want := "Popup,Browser,Editor"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("hyprlandVisible() = %s, want %s", got, want)
	}
}

func TestDetectorWithFakeRunner(t *testing.T) {
	d := &Detector{
		compositor: "sway",
		run: func(name string, args ...string) ([]byte, error) {
			if name != "swaymsg" {
				t.Fatalf("unexpected command %s", name)
			}
			return []byte(swayTree), nil
		},
	}

	snap, err := d.GetFocusedWindow()
	if err != nil {
		t.Fatalf("GetFocusedWindow() error: %v", err)
	}
	if snap.DisplayServer != "wayland" || snap.Title != "main.go - Code" {
		t.Errorf("snapshot = %+v", snap)
	}

	windows, err := d.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows() error: %v", err)
	}
	if len(windows) != 4 {
		t.Errorf("ListWindows() returned %d windows, want 4", len(windows))
	}
}

func TestDetectorErrors(t *testing.T) {
	failing := &Detector{
		compositor: "hyprland",
		run: func(string, ...string) ([]byte, error) {
			return nil, errors.New("hyprctl: no instance")
		},
	}
	if _, err := failing.GetFocusedWindow(); err == nil {
		t.Error("GetFocusedWindow() should surface the IPC error")
	}

	unknown := &Detector{compositor: "unknown", run: runCommand}
	if _, err := unknown.ListWindows(); !errors.Is(err, window.ErrListUnsupported) {
		t.Errorf("ListWindows() error = %v, want ErrListUnsupported", err)
	}
	if unknown.IsAvailable() {
		t.Error("IsAvailable() should be false for an unknown compositor")
	}
}
