package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forcefocus/internal/models"
	"forcefocus/internal/remote"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeID struct{}

func (fakeID) New() string { return "abc" }

type fakeBackend struct {
	mu        sync.Mutex
	startErr  error
	endErr    error
	started   remote.StartedSession
	endCalls  []string
	onStart   func()
	onEnd     func()
	startCall int
}

func (f *fakeBackend) StartSession(ctx context.Context, taskID *string, goalDuration int) (remote.StartedSession, error) {
	if f.onStart != nil {
		f.onStart()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCall++
	if f.startErr != nil {
		return remote.StartedSession{}, f.startErr
	}
	return f.started, nil
}

func (f *fakeBackend) EndSession(ctx context.Context, sessionID string, evaluationScore int) error {
	if f.onEnd != nil {
		f.onEnd()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endCalls = append(f.endCalls, sessionID)
	return f.endErr
}

type fakeStore struct {
	mu      sync.Mutex
	record  *models.ActiveSessionInfo
	saveErr error
	delErr  error
	writes  int
}

func (f *fakeStore) SaveActiveSession(info models.ActiveSessionInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.record = &info
	return nil
}

func (f *fakeStore) DeleteActiveSession() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.delErr != nil {
		return f.delErr
	}
	f.record = nil
	return nil
}

func (f *fakeStore) LoadActiveSession() (*models.ActiveSessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record == nil {
		return nil, nil
	}
	info := *f.record
	return &info, nil
}

type recordingListener struct {
	mu      sync.Mutex
	started []string
	ended   []string
}

func (r *recordingListener) SessionStarted(info models.ActiveSessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, info.SessionID)
}

func (r *recordingListener) SessionEnded(info models.ActiveSessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, info.SessionID)
}

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestManager(backend Backend, store Store) *Manager {
	return NewManager(backend, store, WithClock(fakeClock{now}), WithIDGenerator(fakeID{}))
}

func TestStartOnline(t *testing.T) {
	remoteStart := now.Add(-time.Second)
	backend := &fakeBackend{started: remote.StartedSession{SessionID: "srv-1", StartTime: remoteStart}}
	store := &fakeStore{}
	m := newTestManager(backend, store)
	listener := &recordingListener{}
	m.AddListener(listener)

	task := "task-9"
	info, err := m.Start(context.Background(), &task, 1500)
	require.NoError(t, err)

	assert.Equal(t, "srv-1", info.SessionID)
	assert.False(t, info.IsLocal())
	assert.Equal(t, remoteStart, info.StartTime)
	require.NotNil(t, info.TaskID)
	assert.Equal(t, "task-9", *info.TaskID)

	active, ok := m.Active()
	assert.True(t, ok)
	assert.Equal(t, info, active)
	assert.Equal(t, "srv-1", store.record.SessionID)
	assert.Equal(t, []string{"srv-1"}, listener.started)
}

func TestStartFallsBackOnBackendFailure(t *testing.T) {
	failures := []error{
		errors.Wrap(remote.ErrUnavailable, "connection refused"),
		&remote.HTTPError{Method: "POST", Path: "/sessions/start", Status: "503", StatusCode: 503},
		errors.Wrap(remote.ErrMalformedResponse, "bad start_time"),
		context.DeadlineExceeded,
	}

	for _, failure := range failures {
		t.Run(failure.Error(), func(t *testing.T) {
			store := &fakeStore{}
			m := newTestManager(&fakeBackend{startErr: failure}, store)

			info, err := m.Start(context.Background(), nil, 60)
			require.NoError(t, err)
			assert.Equal(t, "local-abc", info.SessionID)
			assert.True(t, info.IsLocal())
			assert.Equal(t, now, info.StartTime)
			assert.Nil(t, info.TaskID)
			assert.Equal(t, "local-abc", store.record.SessionID)
		})
	}
}

func TestStartFallsBackWhenBackendHangs(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	const timeout = 200 * time.Millisecond
	store := &fakeStore{}
	m := NewManager(remote.New(srv.URL, "token", timeout), store)

	begin := time.Now()
	info, err := m.Start(context.Background(), nil, 1500)
	elapsed := time.Since(begin)

	require.NoError(t, err)
	assert.True(t, info.IsLocal(), "got %s", info.SessionID)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+2*time.Second, "start must return shortly after the backend timeout")
	assert.Equal(t, info.SessionID, store.record.SessionID)
}

func TestStartWithoutBackend(t *testing.T) {
	m := newTestManager(nil, &fakeStore{})
	info, err := m.Start(context.Background(), nil, 60)
	require.NoError(t, err)
	assert.Equal(t, "local-abc", info.SessionID)
}

func TestStartTwiceReturnsAlreadyActive(t *testing.T) {
	backend := &fakeBackend{started: remote.StartedSession{SessionID: "srv-1", StartTime: now}}
	m := newTestManager(backend, &fakeStore{})

	_, err := m.Start(context.Background(), nil, 60)
	require.NoError(t, err)

	_, err = m.Start(context.Background(), nil, 60)
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Equal(t, 1, backend.startCall)
}

func TestConcurrentStartWhileNetworkPending(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		started: remote.StartedSession{SessionID: "srv-1", StartTime: now},
		onStart: func() {
			close(entered)
			<-release
		},
	}
	m := newTestManager(backend, &fakeStore{})

	done := make(chan error, 1)
	go func() {
		_, err := m.Start(context.Background(), nil, 60)
		done <- err
	}()
	<-entered

	// The state lock is free while the first call is on the network.
	_, ok := m.Active()
	assert.False(t, ok)
	assert.ErrorIs(t, m.End(context.Background(), 3), ErrNoActiveSession)

	_, err := m.Start(context.Background(), nil, 60)
	assert.ErrorIs(t, err, ErrAlreadyActive)

	close(release)
	require.NoError(t, <-done)
	_, ok = m.Active()
	assert.True(t, ok)
}

func TestStoreLockFreeDuringNetwork(t *testing.T) {
	var m *Manager
	var sawFree atomic.Bool
	backend := &fakeBackend{
		started: remote.StartedSession{SessionID: "srv-1", StartTime: now},
		onStart: func() {
			if m.storeMu.TryLock() {
				if m.stateMu.TryLock() {
					sawFree.Store(true)
					m.stateMu.Unlock()
				}
				m.storeMu.Unlock()
			}
		},
	}
	m = newTestManager(backend, &fakeStore{})

	_, err := m.Start(context.Background(), nil, 60)
	require.NoError(t, err)
	assert.True(t, sawFree.Load())
}

func TestStartPersistenceFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	m := newTestManager(&fakeBackend{startErr: remote.ErrUnavailable}, store)

	_, err := m.Start(context.Background(), nil, 60)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")

	_, ok := m.Active()
	assert.False(t, ok, "in-memory state must not diverge from the store")

	// The provisional state was rolled back.
	store.saveErr = nil
	_, err = m.Start(context.Background(), nil, 60)
	assert.NoError(t, err)
}

func TestEndWithoutSession(t *testing.T) {
	backend := &fakeBackend{}
	store := &fakeStore{}
	m := newTestManager(backend, store)

	err := m.End(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Zero(t, store.writes)
	assert.Empty(t, backend.endCalls)
}

func TestStartEndRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		startErr error
		endErr   error
	}{
		{name: "online"},
		{name: "offline start", startErr: remote.ErrUnavailable},
		{name: "offline end", endErr: remote.ErrUnavailable},
		{name: "offline both", startErr: remote.ErrUnavailable, endErr: remote.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{
				started:  remote.StartedSession{SessionID: "srv-1", StartTime: now},
				startErr: tt.startErr,
				endErr:   tt.endErr,
			}
			store := &fakeStore{}
			listener := &recordingListener{}
			m := newTestManager(backend, store)
			m.AddListener(listener)

			info, err := m.Start(context.Background(), nil, 60)
			require.NoError(t, err)
			require.NoError(t, m.End(context.Background(), 4))

			_, ok := m.Active()
			assert.False(t, ok)
			assert.Nil(t, store.record)
			assert.Equal(t, []string{info.SessionID}, backend.endCalls)
			assert.Equal(t, []string{info.SessionID}, listener.ended)
		})
	}
}

func TestEndPersistenceFailureKeepsSession(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(nil, store)
	_, err := m.Start(context.Background(), nil, 60)
	require.NoError(t, err)

	store.delErr = errors.New("locked")
	err = m.End(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPersistence)

	_, ok := m.Active()
	assert.True(t, ok)
}

func TestConcurrentEndDoesNotClobberNewSession(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	backend := &fakeBackend{
		startErr: remote.ErrUnavailable,
		onEnd: func() {
			once.Do(func() {
				close(entered)
				<-release
			})
		},
	}
	store := &fakeStore{}
	m := newTestManager(backend, store)
	_, err := m.Start(context.Background(), nil, 60)
	require.NoError(t, err)

	slow := make(chan error, 1)
	go func() { slow <- m.End(context.Background(), 1) }()
	<-entered

	require.NoError(t, m.End(context.Background(), 2))

	m.ids = idFunc(func() string { return "second" })
	_, err = m.Start(context.Background(), nil, 60)
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-slow)

	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, "local-second", active.SessionID)
	assert.Equal(t, "local-second", store.record.SessionID)
}

type idFunc func() string

func (f idFunc) New() string { return f() }

func TestRestore(t *testing.T) {
	stored := models.ActiveSessionInfo{SessionID: "srv-7", StartTime: now.Add(-time.Hour)}
	store := &fakeStore{record: &stored}
	listener := &recordingListener{}
	m := newTestManager(nil, store)
	m.AddListener(listener)

	info, ok, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "srv-7", info.SessionID)
	assert.Equal(t, []string{"srv-7"}, listener.started)

	_, err = m.Start(context.Background(), nil, 60)
	assert.ErrorIs(t, err, ErrAlreadyActive)

	_, ok, err = m.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreEmpty(t *testing.T) {
	m := newTestManager(nil, &fakeStore{})
	_, ok, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
