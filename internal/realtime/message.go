package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"forcefocus/internal/models"
)

// Server to client message types
const (
	TypeInterventionTrigger = "intervention-trigger"
	TypeSessionUpdate       = "session-update"
)

// Message is the envelope for every websocket message
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps payload in an envelope stamped with the current time
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// InterventionPayload asks the front end to show a notification or an overlay
type InterventionPayload struct {
	EventID     uint      `json:"event_id"`
	SessionID   string    `json:"session_id"`
	Trigger     string    `json:"trigger"` // "notification" or "overlay"
	Score       int       `json:"score"`
	AppName     string    `json:"app_name"`
	WindowTitle string    `json:"window_title"`
	Timestamp   time.Time `json:"timestamp"`
}

// InterventionFromEvent builds the push payload for a stored intervention
func InterventionFromEvent(ev *models.InterventionEvent) InterventionPayload {
	return InterventionPayload{
		EventID:     ev.ID,
		SessionID:   ev.SessionID,
		Trigger:     ev.Trigger,
		Score:       ev.Score,
		AppName:     ev.AppName,
		WindowTitle: ev.WindowTitle,
		Timestamp:   ev.Timestamp,
	}
}

// SessionUpdatePayload reports the active session, or its absence
type SessionUpdatePayload struct {
	Active    bool       `json:"active"`
	SessionID string     `json:"session_id,omitempty"`
	TaskID    *string    `json:"task_id,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	Local     bool       `json:"local"`
}

func sessionPayload(info models.ActiveSessionInfo, active bool) SessionUpdatePayload {
	if !active {
		return SessionUpdatePayload{}
	}
	start := info.StartTime
	return SessionUpdatePayload{
		Active:    true,
		SessionID: info.SessionID,
		TaskID:    info.TaskID,
		StartTime: &start,
		Local:     info.IsLocal(),
	}
}
