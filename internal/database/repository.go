package database

import (
	"strings"
	"time"

	"forcefocus/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles intervention and error log records
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateIntervention inserts a new intervention event
func (r *Repository) CreateIntervention(event *models.InterventionEvent) error {
	event.AppName = strings.ToLower(event.AppName)
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert intervention event")
	}
	return nil
}

// GetInterventionByID retrieves an intervention event by its ID, or nil when there is none
func (r *Repository) GetInterventionByID(id uint) (*models.InterventionEvent, error) {
	var event models.InterventionEvent
	result := r.db.First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get intervention event")
	}
	return &event, nil
}

// GetInterventionsBySession retrieves the intervention events of one session
func (r *Repository) GetInterventionsBySession(sessionID string) ([]*models.InterventionEvent, error) {
	var events []*models.InterventionEvent
	result := r.db.Where("session_id = ?", sessionID).Order("timestamp ASC").Find(&events)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query session interventions")
	}

	return events, nil
}

// GetAppSummarySince aggregates interventions per app since a given time
func (r *Repository) GetAppSummarySince(since time.Time) ([]models.AppInterventions, error) {
	var summaries []models.AppInterventions

	result := r.db.Model(&models.InterventionEvent{}).
		Select("app_name, " +
			"SUM(CASE WHEN trigger_type = 'notification' THEN 1 ELSE 0 END) as notifications, " +
			"SUM(CASE WHEN trigger_type = 'overlay' THEN 1 ELSE 0 END) as overlays, " +
			"COUNT(*) as event_count, MAX(score) as max_score, MAX(idle_seconds) as max_idle_seconds").
		Where("timestamp >= ?", since).
		Group("app_name").
		Order("event_count DESC, app_name ASC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app summary")
	}

	return summaries, nil
}

// CountSessionsSince returns how many distinct sessions had interventions since a given time
func (r *Repository) CountSessionsSince(since time.Time) (int64, error) {
	var count int64
	result := r.db.Model(&models.InterventionEvent{}).
		Where("timestamp >= ?", since).
		Distinct("session_id").
		Count(&count)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count sessions")
	}
	return count, nil
}

// GetLatestIntervention retrieves the most recent intervention, or nil when there is none
func (r *Repository) GetLatestIntervention() (*models.InterventionEvent, error) {
	var event models.InterventionEvent
	result := r.db.Order("timestamp DESC").First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest intervention")
	}
	return &event, nil
}

// DeleteOldInterventions deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldInterventions(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.InterventionEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old interventions")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetRecentErrors returns up to limit error logs, newest first
func (r *Repository) GetRecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all intervention events from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM intervention_events")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear intervention events")
	}
	return nil
}
