package models

import (
	"strings"
	"time"
)

// LocalSessionPrefix marks session ids generated without the backend
const LocalSessionPrefix = "local-"

// ActiveSessionInfo identifies the running focus session
type ActiveSessionInfo struct {
	SessionID string    `json:"session_id"`
	TaskID    *string   `json:"task_id"`
	StartTime time.Time `json:"start_time"`
}

// IsLocal reports whether the session id was generated locally
func (i ActiveSessionInfo) IsLocal() bool {
	return strings.HasPrefix(i.SessionID, LocalSessionPrefix)
}

// ActiveSession is the persisted copy of the active session. The table holds
// at most one row.
type ActiveSession struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID string    `gorm:"not null"`
	TaskID    *string   `gorm:"column:task_id"`
	StartTime time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Info converts the row into its in-memory form
func (s ActiveSession) Info() ActiveSessionInfo {
	return ActiveSessionInfo{
		SessionID: s.SessionID,
		TaskID:    s.TaskID,
		StartTime: s.StartTime,
	}
}
