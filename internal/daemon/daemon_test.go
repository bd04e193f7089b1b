package daemon

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "forcefocus.pid"), filepath.Join(dir, "forcefocus.log"))
}

func TestPIDRoundTrip(t *testing.T) {
	d := newTestDaemon(t)

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid, "missing PID file reads as zero")

	require.NoError(t, d.WritePID())
	pid, err = d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, got, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), got)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID(), "removing twice is not an error")
}

func TestInvalidPIDFile(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.pidFile, []byte("not-a-pid"), 0644))

	_, err := d.ReadPID()
	assert.Error(t, err)
}

func TestStalePIDFileIsRemoved(t *testing.T) {
	d := newTestDaemon(t)
	// PIDs are capped well below this on Linux.
	require.NoError(t, os.WriteFile(d.pidFile, []byte("2147483000\n"), 0644))

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	_, statErr := os.Stat(d.pidFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStopNotRunning(t *testing.T) {
	d := newTestDaemon(t)
	assert.ErrorIs(t, d.Stop(), ErrNotRunning)
}

func TestRedirectLog(t *testing.T) {
	d := newTestDaemon(t)

	closer, err := d.RedirectLog()
	require.NoError(t, err)
	log.Printf("hello from the agent")
	log.SetOutput(os.Stderr)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(d.LogFile())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "hello from the agent"))
}

func TestIsChild(t *testing.T) {
	t.Setenv(ChildEnv, "")
	assert.False(t, IsChild())
	t.Setenv(ChildEnv, "1")
	assert.True(t, IsChild())
}
