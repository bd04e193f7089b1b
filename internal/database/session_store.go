package database

import (
	"forcefocus/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

const activeSessionRowID = 1

// SessionStore persists the single active session record
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a store over db
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// SaveActiveSession writes info as the active session, replacing any previous record
func (s *SessionStore) SaveActiveSession(info models.ActiveSessionInfo) error {
	row := models.ActiveSession{
		ID:        activeSessionRowID,
		SessionID: info.SessionID,
		TaskID:    info.TaskID,
		StartTime: info.StartTime,
	}
	if err := s.db.Save(&row).Error; err != nil {
		return errors.Wrap(err, "failed to save active session")
	}
	return nil
}

// DeleteActiveSession removes the active session record. Deleting when none
// exists is not an error.
func (s *SessionStore) DeleteActiveSession() error {
	result := s.db.Delete(&models.ActiveSession{}, activeSessionRowID)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete active session")
	}
	return nil
}

// LoadActiveSession returns the persisted active session, or nil when there is none
func (s *SessionStore) LoadActiveSession() (*models.ActiveSessionInfo, error) {
	var row models.ActiveSession
	result := s.db.First(&row, activeSessionRowID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to load active session")
	}
	info := row.Info()
	return &info, nil
}
