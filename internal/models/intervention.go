package models

import (
	"time"

	"gorm.io/gorm"
)

// InterventionEvent is a scoring tick that asked for a notification or overlay
type InterventionEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SessionID     string         `gorm:"not null;index" json:"session_id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	AppName       string         `gorm:"not null;index" json:"app_name"`
	WindowTitle   string         `gorm:"not null" json:"window_title"`
	Trigger       string         `gorm:"column:trigger_type;not null" json:"trigger"` // "notification" or "overlay"
	Score         int            `gorm:"not null" json:"score"`
	IdleSeconds   int64          `gorm:"not null;default:0" json:"idle_seconds"`
	Distraction   bool           `gorm:"not null;default:false" json:"distraction"`
	DisplayServer string         `gorm:"not null" json:"display_server"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// AppInterventions aggregates interventions caused by one app
type AppInterventions struct {
	AppName        string  `json:"app_name"`
	Notifications  int     `json:"notifications"`
	Overlays       int     `json:"overlays"`
	EventCount     int     `json:"event_count"`
	MaxScore       int     `json:"max_score"`
	MaxIdleSeconds int64   `json:"max_idle_seconds"`
	Percentage     float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period        ReportPeriod       `json:"period"`
	Apps          []AppInterventions `json:"apps"`
	TotalEvents   int                `json:"total_events"`
	Notifications int                `json:"notifications"`
	Overlays      int                `json:"overlays"`
	Sessions      int                `json:"sessions"`
	GeneratedAt   time.Time          `json:"generated_at"`
}
