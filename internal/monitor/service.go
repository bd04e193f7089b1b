// Package monitor runs the periodic scoring tick for the active session.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"forcefocus/internal/engine"
	"forcefocus/internal/input"
	"forcefocus/internal/models"
	"forcefocus/pkg/window"
)

// InputSource supplies the current input counters
type InputSource interface {
	Snapshot() input.Snapshot
}

// Repository stores interventions and background errors
type Repository interface {
	CreateIntervention(event *models.InterventionEvent) error
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Publisher pushes interventions to the front end
type Publisher interface {
	PublishIntervention(ev *models.InterventionEvent)
}

// Status is a point-in-time view of the monitor
type Status struct {
	Running   bool             `json:"running"`
	SessionID string           `json:"session_id,omitempty"`
	Score     int              `json:"score"`
	Trigger   engine.Trigger   `json:"trigger"`
	LastApp   string           `json:"last_app,omitempty"`
	LastTick  *time.Time       `json:"last_tick,omitempty"`
	Decision  *engine.Decision `json:"decision,omitempty"`
}

// Service scores the focused window on every tick while a session is active.
// It implements session.Listener: the engine is created when a session
// starts and dropped when it ends.
type Service struct {
	interval  time.Duration
	detector  window.Detector
	inputs    InputSource
	repo      Repository
	publisher Publisher
	now       func() time.Time

	mu        sync.Mutex
	rules     engine.Rules
	engine    *engine.Engine
	sessionID string
	last      *engine.Decision
	lastApp   string
	lastTick  time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// NewService creates a monitor. publisher may be nil.
func NewService(interval time.Duration, rules engine.Rules, detector window.Detector, inputs InputSource, repo Repository, publisher Publisher) *Service {
	return &Service{
		interval:  interval,
		detector:  detector,
		inputs:    inputs,
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		rules:     rules,
		stopChan:  make(chan struct{}),
	}
}

// SetRules replaces the scoring rules. They take effect with the next session.
func (s *Service) SetRules(rules engine.Rules) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
}

// SessionStarted gives the new session a fresh engine
func (s *Service) SessionStarted(info models.ActiveSessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine = engine.New(s.rules, s.now())
	s.sessionID = info.SessionID
	s.last = nil
	log.Printf("Scoring started for session %s", info.SessionID)
}

// SessionEnded drops the engine of the ended session
func (s *Service) SessionEnded(info models.ActiveSessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID != info.SessionID {
		return
	}
	s.engine = nil
	s.sessionID = ""
	s.last = nil
	log.Printf("Scoring stopped for session %s", info.SessionID)
}

// Start runs the tick loop until ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("monitor is already running")
	}
	defer s.running.Store(false)

	log.Printf("Starting monitor with %v poll interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Monitor stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			log.Println("Monitor stopped")
			return nil

		case <-ticker.C:
			d, err := s.tick()
			if err != nil {
				s.storeError(err)
			}
			if d != nil && d.Trigger != engine.TriggerNone {
				log.Printf("Intervention: %s (score %d)", d.Trigger, d.Score)
			}
		}
	}
}

// Stop ends the tick loop
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// IsRunning reports whether the tick loop is active
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Status returns the current score and last decision
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:   s.running.Load(),
		SessionID: s.sessionID,
		LastApp:   s.lastApp,
	}
	if s.engine != nil {
		st.Score = s.engine.Score()
	}
	if s.last != nil {
		d := *s.last
		st.Decision = &d
		st.Trigger = d.Trigger
		at := s.lastTick
		st.LastTick = &at
	}
	return st
}

// tick evaluates one observation. It returns a nil decision when no session
// is active or the session changed while the window was being probed.
func (s *Service) tick() (*engine.Decision, error) {
	s.mu.Lock()
	eng, sessionID := s.engine, s.sessionID
	s.mu.Unlock()

	if eng == nil {
		return nil, nil
	}

	snap, err := s.detector.GetFocusedWindow()
	if err != nil {
		return nil, fmt.Errorf("failed to get focused window: %w", err)
	}
	in := s.inputs.Snapshot()
	now := s.now()

	s.mu.Lock()
	if s.engine != eng {
		s.mu.Unlock()
		return nil, nil
	}
	d := eng.EvaluateDetailed(*snap, in, now)
	s.last = &d
	s.lastApp = snap.AppName
	s.lastTick = now
	s.mu.Unlock()

	if d.Trigger == engine.TriggerNone {
		return &d, nil
	}

	event := &models.InterventionEvent{
		SessionID:     sessionID,
		Timestamp:     now,
		AppName:       snap.AppName,
		WindowTitle:   snap.Title,
		Trigger:       d.Trigger.String(),
		Score:         d.Score,
		IdleSeconds:   int64(d.Idle / time.Second),
		Distraction:   d.Distraction,
		DisplayServer: snap.DisplayServer,
	}

	// The front end is told even when the event cannot be stored.
	saveErr := s.repo.CreateIntervention(event)
	if s.publisher != nil {
		s.publisher.PublishIntervention(event)
	}
	if saveErr != nil {
		return &d, fmt.Errorf("failed to save intervention: %w", saveErr)
	}
	return &d, nil
}

func (s *Service) storeError(err error) {
	errorLog := &models.ErrorLog{
		Timestamp: s.now(),
		Source:    "monitor",
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.repo.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %v", err)
	}
}
