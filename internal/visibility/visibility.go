// Package visibility decides which on-screen windows are actually visible by
// accumulating the area covered by windows stacked above them.
package visibility

import (
	"strings"

	"forcefocus/pkg/window"
)

// Entry is one non-excluded window and whether enough of it is unoccluded
type Entry struct {
	Title             string      `json:"title"`
	IsActuallyVisible bool        `json:"is_actually_visible"`
	Rect              window.Rect `json:"rect"`
}

// Filter holds the exclusion rules and size thresholds for Compute
type Filter struct {
	// IgnoredTitles are exact (trimmed) titles of non-content system surfaces
	IgnoredTitles []string

	// SystemPathPrefixes are matched case-insensitively against the owning process path
	SystemPathPrefixes []string

	MinWidth         int
	MinHeight        int
	MinVisibleWidth  int
	MinVisibleHeight int
}

// DefaultFilter returns the stock denylists and thresholds
func DefaultFilter() Filter {
	return Filter{
		IgnoredTitles: []string{
			"Shell Handwriting Canvas",
			"Microsoft Text Input Application",
			"Program Manager",
			"Settings",
			"Desktop",
			"gnome-shell",
			"plasmashell",
		},
		SystemPathPrefixes: []string{
			`C:\WINDOWS\SYSTEM32`,
			`C:\WINDOWS\SYSTEMAPPS`,
			`C:\PROGRAM FILES\WINDOWSAPPS`,
			`C:\WINDOWS\EXPLORER.EXE`,
			"/usr/libexec/",
			"/usr/lib/xorg/",
		},
		MinWidth:         100,
		MinHeight:        100,
		MinVisibleWidth:  80,
		MinVisibleHeight: 80,
	}
}

// Compute walks windows front to back and reports, for every window that passes
// the noise and denylist filters, whether its unoccluded part is large enough.
// Excluded windows neither appear in the output nor occlude anything.
func Compute(windows []window.RawWindow, filter Filter) []Entry {
	entries := make([]Entry, 0, len(windows))
	var covered Region

	for _, w := range windows {
		if w.Rect.Width() < filter.MinWidth || w.Rect.Height() < filter.MinHeight {
			continue
		}

		title := strings.TrimSpace(w.Title)
		if filter.excluded(title, w.ProcessPath) {
			continue
		}

		visible := RegionOf(w.Rect).SubtractRegion(covered)
		isVisible := false
		if !visible.IsEmpty() {
			box := visible.Bounds()
			isVisible = box.Width() >= filter.MinVisibleWidth && box.Height() >= filter.MinVisibleHeight
		}

		covered = covered.Union(w.Rect)

		entries = append(entries, Entry{
			Title:             title,
			IsActuallyVisible: isVisible,
			Rect:              w.Rect,
		})
	}

	return entries
}

func (f Filter) excluded(title, processPath string) bool {
	if title == "" {
		return true
	}
	for _, ignored := range f.IgnoredTitles {
		if title == ignored {
			return true
		}
	}
	if processPath == "" {
		return false
	}
	path := strings.ToLower(processPath)
	for _, prefix := range f.SystemPathPrefixes {
		if strings.HasPrefix(path, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// Detector pairs a window probe with a Filter
type Detector struct {
	lister window.Lister
	filter Filter
}

// NewDetector creates a visibility detector over the given probe
func NewDetector(lister window.Lister, filter Filter) *Detector {
	return &Detector{lister: lister, filter: filter}
}

// VisibleWindows probes the current window stack and computes visibility.
// The only possible error is the probe's.
func (d *Detector) VisibleWindows() ([]Entry, error) {
	windows, err := d.lister.ListWindows()
	if err != nil {
		return nil, err
	}
	return Compute(windows, d.filter), nil
}
