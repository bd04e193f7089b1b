package wayland

import (
	"encoding/json"
	"fmt"
	"sort"

	"forcefocus/pkg/window"
)

type hyprWorkspace struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type hyprClient struct {
	Address        string        `json:"address"`
	Mapped         bool          `json:"mapped"`
	Hidden         bool          `json:"hidden"`
	At             [2]int        `json:"at"`
	Size           [2]int        `json:"size"`
	Workspace      hyprWorkspace `json:"workspace"`
	Floating       bool          `json:"floating"`
	PID            int           `json:"pid"`
	Class          string        `json:"class"`
	Title          string        `json:"title"`
	FocusHistoryID int           `json:"focusHistoryID"`
}

type hyprMonitor struct {
	ActiveWorkspace  hyprWorkspace `json:"activeWorkspace"`
	SpecialWorkspace hyprWorkspace `json:"specialWorkspace"`
}

func parseHyprlandClient(data []byte) (*hyprClient, error) {
	var c hyprClient
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}
	if c.Address == "" {
		return nil, fmt.Errorf("no focused window reported by hyprland")
	}
	return &c, nil
}

func (c *hyprClient) rect() window.Rect {
	return window.Rect{
		Left:   c.At[0],
		Top:    c.At[1],
		Right:  c.At[0] + c.Size[0],
		Bottom: c.At[1] + c.Size[1],
	}
}

func (c *hyprClient) snapshot() *window.ActiveWindowSnapshot {
	return &window.ActiveWindowSnapshot{
		Title:   c.Title,
		AppName: c.Class,
		PID:     c.PID,
		Rect:    c.rect(),
	}
}

// hyprlandVisible returns mapped windows on the active workspaces. Hyprland
// does not expose z-order, so the focus history stands in for it, with
// floating windows kept above tiled ones.
func hyprlandVisible(clientsJSON, monitorsJSON []byte) ([]window.RawWindow, error) {
	var clients []hyprClient
	if err := json.Unmarshal(clientsJSON, &clients); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl clients: %w", err)
	}
	var monitors []hyprMonitor
	if err := json.Unmarshal(monitorsJSON, &monitors); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl monitors: %w", err)
	}

	active := make(map[int]bool, len(monitors)*2)
	for _, m := range monitors {
		active[m.ActiveWorkspace.ID] = true
		if m.SpecialWorkspace.ID != 0 {
			active[m.SpecialWorkspace.ID] = true
		}
	}

	visible := make([]hyprClient, 0, len(clients))
	for _, c := range clients {
		if c.Mapped && !c.Hidden && active[c.Workspace.ID] {
			visible = append(visible, c)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Floating != visible[j].Floating {
			return visible[i].Floating
		}
		return visible[i].FocusHistoryID < visible[j].FocusHistoryID
	})

	out := make([]window.RawWindow, 0, len(visible))
	for i := range visible {
		out = append(out, window.RawWindow{
			Title: visible[i].Title,
			PID:   visible[i].PID,
			Rect:  visible[i].rect(),
		})
	}
	return out, nil
}
