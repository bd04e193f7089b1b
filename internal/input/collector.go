// Package input keeps process-wide input activity counters.
package input

import (
	"sync"
	"time"
)

// Kind classifies a raw input event
type Kind int

const (
	KindKey Kind = iota
	KindClick
	KindScroll
	KindMouseMove
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindClick:
		return "click"
	case KindScroll:
		return "scroll"
	case KindMouseMove:
		return "mouse_move"
	default:
		return "unknown"
	}
}

// Meaningful reports whether the event counts as deliberate input.
// Pointer movement alone does not.
func (k Kind) Meaningful() bool {
	return k == KindKey || k == KindClick || k == KindScroll
}

// Snapshot is a copy of the collector's counters at one instant
type Snapshot struct {
	MeaningfulEvents    uint64    `json:"meaningful_input_events"`
	LastMeaningfulInput time.Time `json:"last_meaningful_input"`
	LastMouseMove       time.Time `json:"last_mouse_move"`
	StartedAt           time.Time `json:"start_monitoring"`
}

// IdleReference is the instant idle time is measured from: the last meaningful
// input, or the start of monitoring when none has been seen yet.
func (s Snapshot) IdleReference() time.Time {
	if s.LastMeaningfulInput.IsZero() {
		return s.StartedAt
	}
	return s.LastMeaningfulInput
}

// Idle returns how long there has been no meaningful input as of now, never negative
func (s Snapshot) Idle(now time.Time) time.Duration {
	idle := now.Sub(s.IdleReference())
	if idle < 0 {
		return 0
	}
	return idle
}

// ActivityVector flattens the counters into the form the backend stores
func (s Snapshot) ActivityVector() map[string]float64 {
	return map[string]float64{
		"meaningful_input_events":            float64(s.MeaningfulEvents),
		"last_meaningful_input_timestamp_ms": float64(unixMilli(s.LastMeaningfulInput)),
		"last_mouse_move_timestamp_ms":       float64(unixMilli(s.LastMouseMove)),
	}
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Recorder accepts input events from an OS listener
type Recorder interface {
	Record(kind Kind, at time.Time)
}

// Collector accumulates input events. It is safe for concurrent use and is
// never reset after construction.
type Collector struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewCollector creates a collector whose monitoring started at startedAt
func NewCollector(startedAt time.Time) *Collector {
	return &Collector{snap: Snapshot{StartedAt: startedAt}}
}

// Record registers one input event
func (c *Collector) Record(kind Kind, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if kind == KindMouseMove {
		if at.After(c.snap.LastMouseMove) {
			c.snap.LastMouseMove = at
		}
		return
	}
	if !kind.Meaningful() {
		return
	}

	c.snap.MeaningfulEvents++
	if at.After(c.snap.LastMeaningfulInput) {
		c.snap.LastMeaningfulInput = at
	}
}

// Snapshot returns a copy of the current counters
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}
