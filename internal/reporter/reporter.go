package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"forcefocus/internal/config"
	"forcefocus/internal/models"
	"forcefocus/pkg/utils"
)

// Source is the intervention store a report is built from
type Source interface {
	GetAppSummarySince(since time.Time) ([]models.AppInterventions, error)
	CountSessionsSince(since time.Time) (int64, error)
}

// Reporter handles report generation
type Reporter struct {
	location *time.Location
	repo     Source
	now      func() time.Time
}

// New creates a new reporter. An unknown time zone falls back to local time.
func New(cfg *config.Config, repo Source) *Reporter {
	loc, err := time.LoadLocation(cfg.Report.TimeZone)
	if err != nil || cfg.Report.TimeZone == "" {
		loc = time.Local
	}
	return &Reporter{
		location: loc,
		repo:     repo,
		now:      time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.Period(periodType)
	if err != nil {
		return nil, err
	}

	// Per-app counts come from SQL, totals and shares are derived here
	apps, err := r.repo.GetAppSummarySince(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get app summary: %w", err)
	}
	sessions, err := r.repo.CountSessionsSince(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	report := &models.Report{
		Period:      *period,
		Apps:        apps,
		Sessions:    int(sessions),
		GeneratedAt: r.now(),
	}
	for _, app := range apps {
		report.TotalEvents += app.EventCount
		report.Notifications += app.Notifications
		report.Overlays += app.Overlays
	}

	if report.TotalEvents > 0 {
		for i := range report.Apps {
			report.Apps[i].Percentage = float64(report.Apps[i].EventCount) / float64(report.TotalEvents) * 100.0
		}
	}

	return report, nil
}

// Period calculates the time range for a report
func (r *Reporter) Period(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.location)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Intervention Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Sessions: %d  Interventions: %d (%d notifications, %d overlays)\n\n",
		report.Sessions, report.TotalEvents, report.Notifications, report.Overlays)

	if len(report.Apps) == 0 {
		b.WriteString("No interventions recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %8s %8s %9s %8s %8s\n", "Application", "Notify", "Overlay", "Max score", "Max idle", "Percent")
	b.WriteString(strings.Repeat("-", 80) + "\n")

	for _, app := range report.Apps {
		fmt.Fprintf(&b, "%-30s %8d %8d %9d %8s %7.1f%%\n",
			truncate(app.AppName, 30),
			app.Notifications,
			app.Overlays,
			app.MaxScore,
			utils.FormatRoundedUnit(app.MaxIdleSeconds),
			app.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
