package reporter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forcefocus/internal/config"
	"forcefocus/internal/models"
)

type fakeSource struct {
	apps     []models.AppInterventions
	sessions int64
	err      error
	since    time.Time
}

func (f *fakeSource) GetAppSummarySince(since time.Time) ([]models.AppInterventions, error) {
	f.since = since
	return f.apps, f.err
}

func (f *fakeSource) CountSessionsSince(time.Time) (int64, error) {
	return f.sessions, nil
}

func newReporter(src Source, now time.Time) *Reporter {
	cfg := config.Default()
	cfg.Report.TimeZone = "UTC"
	r := New(cfg, src)
	r.now = func() time.Time { return now }
	return r
}

func TestPeriod(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)
	r := newReporter(&fakeSource{}, now)

	tests := []struct {
		period    string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"day", time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			p, err := r.Period(tt.period)
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(p.Start), "start = %v", p.Start)
			assert.True(t, tt.wantEnd.Equal(p.End), "end = %v", p.End)
		})
	}

	_, err := r.Period("year")
	assert.Error(t, err)
}

func TestWeekStartsMondayOnSunday(t *testing.T) {
	now := time.Date(2024, 5, 19, 9, 0, 0, 0, time.UTC)
	r := newReporter(&fakeSource{}, now)

	p, err := r.Period("week")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, p.Start.Weekday())
	assert.Equal(t, 13, p.Start.Day())
}

func TestGenerateReport(t *testing.T) {
	now := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)
	src := &fakeSource{
		apps: []models.AppInterventions{
			{AppName: "firefox", Notifications: 2, Overlays: 1, EventCount: 3, MaxScore: 22, MaxIdleSeconds: 30},
			{AppName: "discord", Notifications: 1, EventCount: 1, MaxScore: 10, MaxIdleSeconds: 700},
		},
		sessions: 2,
	}
	r := newReporter(src, now)

	report, err := r.GenerateReport("day")
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalEvents)
	assert.Equal(t, 3, report.Notifications)
	assert.Equal(t, 1, report.Overlays)
	assert.Equal(t, 2, report.Sessions)
	assert.InDelta(t, 75.0, report.Apps[0].Percentage, 0.001)
	assert.InDelta(t, 25.0, report.Apps[1].Percentage, 0.001)
	assert.True(t, src.since.Equal(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)))

	text := r.FormatReportText(report)
	assert.Contains(t, text, "Intervention Report - day")
	assert.Contains(t, text, "firefox")
	assert.Contains(t, text, "11m")

	js, err := r.FormatReportJSON(report)
	require.NoError(t, err)
	assert.Contains(t, js, `"total_events": 4`)
}

func TestGenerateReportEmpty(t *testing.T) {
	r := newReporter(&fakeSource{}, time.Now())

	report, err := r.GenerateReport("month")
	require.NoError(t, err)
	assert.Zero(t, report.TotalEvents)
	assert.True(t, strings.HasSuffix(r.FormatReportText(report), "No interventions recorded for this period.\n"))
}

func TestGenerateReportError(t *testing.T) {
	r := newReporter(&fakeSource{err: errors.New("db locked")}, time.Now())

	_, err := r.GenerateReport("day")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db locked")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 30))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
