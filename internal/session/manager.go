// Package session owns the lifetime of the single active focus session.
//
// Two locks guard the state: stateMu for the in-memory slot and storeMu for
// the persisted record. They are always taken in that order and neither is
// held while the backend is being called.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"forcefocus/internal/models"
	"forcefocus/internal/remote"
)

// Backend is the remote session service
type Backend interface {
	StartSession(ctx context.Context, taskID *string, goalDuration int) (remote.StartedSession, error)
	EndSession(ctx context.Context, sessionID string, evaluationScore int) error
}

// Store persists the active session record
type Store interface {
	SaveActiveSession(info models.ActiveSessionInfo) error
	DeleteActiveSession() error
	LoadActiveSession() (*models.ActiveSessionInfo, error)
}

// Clock supplies wall-clock time
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique ids for locally started sessions
type IDGenerator interface {
	New() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type uuidGenerator struct{}

func (uuidGenerator) New() string { return uuid.NewString() }

// Listener is notified after a session starts or ends
type Listener interface {
	SessionStarted(info models.ActiveSessionInfo)
	SessionEnded(info models.ActiveSessionInfo)
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the wall clock
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithIDGenerator overrides local session id generation
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// Manager is the session lifecycle state machine
type Manager struct {
	backend Backend
	store   Store
	clock   Clock
	ids     IDGenerator

	stateMu  sync.Mutex
	active   *models.ActiveSessionInfo
	starting bool

	storeMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []Listener
}

// NewManager creates a manager. backend may be nil, in which case every
// session is started locally.
func NewManager(backend Backend, store Store, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		store:   store,
		clock:   systemClock{},
		ids:     uuidGenerator{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddListener registers l for start and end notifications
func (m *Manager) AddListener(l Listener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Active returns a copy of the active session, if any
func (m *Manager) Active() (models.ActiveSessionInfo, bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.active == nil {
		return models.ActiveSessionInfo{}, false
	}
	return *m.active, true
}

// Start begins a session. The backend is asked first; any backend failure
// falls back to a locally generated id and the local clock.
func (m *Manager) Start(ctx context.Context, taskID *string, goalDuration int) (models.ActiveSessionInfo, error) {
	m.stateMu.Lock()
	if m.active != nil || m.starting {
		m.stateMu.Unlock()
		return models.ActiveSessionInfo{}, ErrAlreadyActive
	}
	m.starting = true
	m.stateMu.Unlock()

	info := m.negotiateStart(ctx, taskID, goalDuration)

	m.stateMu.Lock()
	m.storeMu.Lock()
	m.starting = false
	err := m.store.SaveActiveSession(info)
	if err == nil {
		installed := info
		m.active = &installed
	}
	m.storeMu.Unlock()
	m.stateMu.Unlock()

	if err != nil {
		log.Printf("Failed to persist session %s: %v", info.SessionID, err)
		return models.ActiveSessionInfo{}, &PersistenceError{Op: "save active session", Err: err}
	}

	m.notify(func(l Listener) { l.SessionStarted(info) })
	return info, nil
}

func (m *Manager) negotiateStart(ctx context.Context, taskID *string, goalDuration int) models.ActiveSessionInfo {
	var task *string
	if taskID != nil {
		t := *taskID
		task = &t
	}

	err := remote.ErrUnavailable
	if m.backend != nil {
		var started remote.StartedSession
		started, err = m.backend.StartSession(ctx, task, goalDuration)
		if err == nil {
			log.Printf("Session started (online): %s", started.SessionID)
			return models.ActiveSessionInfo{SessionID: started.SessionID, TaskID: task, StartTime: started.StartTime}
		}
	}

	info := models.ActiveSessionInfo{
		SessionID: models.LocalSessionPrefix + m.ids.New(),
		TaskID:    task,
		StartTime: m.clock.Now(),
	}
	if errors.Is(err, remote.ErrMalformedResponse) {
		log.Printf("Session started (offline, malformed backend response): %s: %v", info.SessionID, err)
	} else {
		log.Printf("Session started (offline): %s: %v", info.SessionID, err)
	}
	return info
}

// End closes the active session. Backend failures are logged and ignored;
// the local record is always removed.
func (m *Manager) End(ctx context.Context, evaluationScore int) error {
	m.stateMu.Lock()
	if m.active == nil {
		m.stateMu.Unlock()
		return ErrNoActiveSession
	}
	info := *m.active
	m.stateMu.Unlock()

	if m.backend != nil {
		if err := m.backend.EndSession(ctx, info.SessionID, evaluationScore); err != nil {
			log.Printf("Warning: failed to sync end of session %s: %v", info.SessionID, err)
		}
	}

	m.stateMu.Lock()
	m.storeMu.Lock()
	// A concurrent End may already have closed this session.
	if m.active == nil || m.active.SessionID != info.SessionID {
		m.storeMu.Unlock()
		m.stateMu.Unlock()
		return nil
	}
	err := m.store.DeleteActiveSession()
	if err == nil {
		m.active = nil
	}
	m.storeMu.Unlock()
	m.stateMu.Unlock()

	if err != nil {
		log.Printf("Failed to delete persisted session %s: %v", info.SessionID, err)
		return &PersistenceError{Op: "delete active session", Err: err}
	}

	log.Printf("Session %s ended (score: %d)", info.SessionID, evaluationScore)
	m.notify(func(l Listener) { l.SessionEnded(info) })
	return nil
}

// Restore reloads a persisted session left by a previous run. It returns
// false when there was nothing to restore or a session is already active.
func (m *Manager) Restore(ctx context.Context) (models.ActiveSessionInfo, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.ActiveSessionInfo{}, false, err
	}

	m.stateMu.Lock()
	if m.active != nil || m.starting {
		m.stateMu.Unlock()
		return models.ActiveSessionInfo{}, false, nil
	}
	m.storeMu.Lock()
	stored, err := m.store.LoadActiveSession()
	if err == nil && stored != nil {
		restored := *stored
		m.active = &restored
	}
	m.storeMu.Unlock()
	m.stateMu.Unlock()

	if err != nil {
		return models.ActiveSessionInfo{}, false, &PersistenceError{Op: "load active session", Err: err}
	}
	if stored == nil {
		return models.ActiveSessionInfo{}, false, nil
	}

	log.Printf("Restored session %s started at %s", stored.SessionID, stored.StartTime.Format(time.RFC3339))
	m.notify(func(l Listener) { l.SessionStarted(*stored) })
	return *stored, true, nil
}

func (m *Manager) notify(fn func(Listener)) {
	m.listenersMu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenersMu.RUnlock()

	for _, l := range listeners {
		fn(l)
	}
}
