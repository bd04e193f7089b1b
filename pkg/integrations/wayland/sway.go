package wayland

import (
	"encoding/json"
	"fmt"

	"forcefocus/pkg/window"
)

type swayRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type swayNode struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Focused       bool       `json:"focused"`
	Visible       *bool      `json:"visible"`
	AppID         string     `json:"app_id"`
	PID           int        `json:"pid"`
	Rect          swayRect   `json:"rect"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`

	WindowProperties struct {
		Class string `json:"class"`
	} `json:"window_properties"`
}

func parseSwayTree(data []byte) (*swayNode, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}
	return &root, nil
}

func (n *swayNode) isWindow() bool {
	return (n.Type == "con" || n.Type == "floating_con") && n.Visible != nil
}

func (n *swayNode) focused() *swayNode {
	if n.Focused && n.isWindow() {
		return n
	}
	for i := range n.FloatingNodes {
		if f := n.FloatingNodes[i].focused(); f != nil {
			return f
		}
	}
	for i := range n.Nodes {
		if f := n.Nodes[i].focused(); f != nil {
			return f
		}
	}
	return nil
}

func (n *swayNode) rect() window.Rect {
	return window.Rect{
		Left:   n.Rect.X,
		Top:    n.Rect.Y,
		Right:  n.Rect.X + n.Rect.Width,
		Bottom: n.Rect.Y + n.Rect.Height,
	}
}

func (n *swayNode) appName() string {
	if n.AppID != "" {
		return n.AppID
	}
	return n.WindowProperties.Class
}

func (n *swayNode) snapshot() *window.ActiveWindowSnapshot {
	return &window.ActiveWindowSnapshot{
		Title:   n.Name,
		AppName: n.appName(),
		PID:     n.PID,
		Rect:    n.rect(),
	}
}

// visibleWindows lists visible windows topmost first. Floating windows sit
// above tiled ones and later floating nodes above earlier ones.
func (n *swayNode) visibleWindows() []window.RawWindow {
	var floating, tiled []window.RawWindow
	n.collect(&floating, &tiled, false)

	out := make([]window.RawWindow, 0, len(floating)+len(tiled))
	for i := len(floating) - 1; i >= 0; i-- {
		out = append(out, floating[i])
	}
	return append(out, tiled...)
}

func (n *swayNode) collect(floating, tiled *[]window.RawWindow, inFloating bool) {
	if n.isWindow() && *n.Visible {
		w := window.RawWindow{Title: n.Name, PID: n.PID, Rect: n.rect()}
		if inFloating {
			*floating = append(*floating, w)
		} else {
			*tiled = append(*tiled, w)
		}
	}
	for i := range n.Nodes {
		n.Nodes[i].collect(floating, tiled, inFloating)
	}
	for i := range n.FloatingNodes {
		n.FloatingNodes[i].collect(floating, tiled, true)
	}
}
