package visibility

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forcefocus/pkg/window"
)

func raw(title string, r window.Rect) window.RawWindow {
	return window.RawWindow{Title: title, Rect: r}
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil, DefaultFilter())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestComputeOccludedBehindLarger(t *testing.T) {
	windows := []window.RawWindow{
		raw("Editor", rect(0, 0, 1000, 800)),
		raw("Browser", rect(100, 100, 500, 500)),
	}

	got := Compute(windows, DefaultFilter())
	require.Len(t, got, 2)
	assert.Equal(t, "Editor", got[0].Title)
	assert.True(t, got[0].IsActuallyVisible)
	assert.Equal(t, "Browser", got[1].Title)
	assert.False(t, got[1].IsActuallyVisible)
}

func TestComputeThresholds(t *testing.T) {
	tests := []struct {
		name        string
		windows     []window.RawWindow
		wantTitles  []string
		wantVisible []bool
	}{
		{
			name: "noise windows dropped",
			windows: []window.RawWindow{
				raw("Tooltip", rect(0, 0, 99, 500)),
				raw("Bar", rect(0, 0, 500, 99)),
				raw("Main", rect(0, 0, 100, 100)),
			},
			wantTitles:  []string{"Main"},
			wantVisible: []bool{true},
		},
		{
			name: "sliver below visible threshold",
			windows: []window.RawWindow{
				raw("Top", rect(0, 0, 500, 500)),
				raw("Under", rect(0, 0, 579, 500)),
			},
			wantTitles:  []string{"Top", "Under"},
			wantVisible: []bool{true, false},
		},
		{
			name: "sliver at visible threshold",
			windows: []window.RawWindow{
				raw("Top", rect(0, 0, 500, 500)),
				raw("Under", rect(0, 0, 580, 500)),
			},
			wantTitles:  []string{"Top", "Under"},
			wantVisible: []bool{true, true},
		},
		{
			name: "negative geometry treated as zero area",
			windows: []window.RawWindow{
				raw("Broken", rect(500, 500, 0, 0)),
			},
			wantTitles:  []string{},
			wantVisible: []bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.windows, DefaultFilter())
			titles := make([]string, 0, len(got))
			visible := make([]bool, 0, len(got))
			for _, e := range got {
				titles = append(titles, e.Title)
				visible = append(visible, e.IsActuallyVisible)
			}
			assert.Equal(t, tt.wantTitles, titles)
			assert.Equal(t, tt.wantVisible, visible)
		})
	}
}

func TestComputeExcludedWindowsDoNotOcclude(t *testing.T) {
	windows := []window.RawWindow{
		raw("Program Manager", rect(0, 0, 1920, 1080)),
		{Title: "Explorer", ProcessPath: `c:\windows\explorer.exe`, Rect: rect(0, 0, 1920, 1080)},
		{Title: "Panel", ProcessPath: "/usr/libexec/gnome-panel", Rect: rect(0, 0, 1920, 1080)},
		raw("   ", rect(0, 0, 1920, 1080)),
		raw("  Terminal  ", rect(0, 0, 800, 600)),
	}

	got := Compute(windows, DefaultFilter())
	require.Len(t, got, 1)
	assert.Equal(t, "Terminal", got[0].Title)
	assert.True(t, got[0].IsActuallyVisible)
}

func TestComputeOccludedByUnion(t *testing.T) {
	// Two side-by-side windows together hide a third one spanning both.
	windows := []window.RawWindow{
		raw("Left", rect(0, 0, 500, 500)),
		raw("Right", rect(500, 0, 1000, 500)),
		raw("Behind", rect(100, 100, 900, 450)),
	}

	got := Compute(windows, DefaultFilter())
	require.Len(t, got, 3)
	assert.True(t, got[0].IsActuallyVisible)
	assert.True(t, got[1].IsActuallyVisible)
	assert.False(t, got[2].IsActuallyVisible)
}

func TestComputeNeverVisibleBelowMinimum(t *testing.T) {
	// Staircase of overlapping windows; every visible entry must leave at least 80x80 uncovered.
	var windows []window.RawWindow
	for i := 0; i < 20; i++ {
		off := i * 37
		windows = append(windows, raw("w", rect(off, off, off+300, off+260)))
	}

	filter := DefaultFilter()
	var covered Region
	for i, e := range Compute(windows, filter) {
		if e.IsActuallyVisible {
			box := RegionOf(e.Rect).SubtractRegion(covered).Bounds()
			assert.GreaterOrEqual(t, box.Width(), filter.MinVisibleWidth, "window %d", i)
			assert.GreaterOrEqual(t, box.Height(), filter.MinVisibleHeight, "window %d", i)
		}
		covered = covered.Union(e.Rect)
	}
}

func TestDetectorVisibleWindows(t *testing.T) {
	probe := &window.StaticDetector{Windows: []window.RawWindow{
		raw("Editor", rect(0, 0, 800, 600)),
	}}
	det := NewDetector(probe, DefaultFilter())

	got, err := det.VisibleWindows()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsActuallyVisible)

	probe.ListErr = errors.New("display unavailable")
	_, err = det.VisibleWindows()
	assert.EqualError(t, err, "display unavailable")
}
