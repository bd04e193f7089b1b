// Package engine turns window and input observations into a deviation score
// and an intervention decision.
package engine

import (
	"strings"
	"time"

	"forcefocus/internal/input"
	"forcefocus/pkg/window"
)

// Trigger is the intervention an evaluation asks for
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerNotify
	TriggerOverlay
)

// String returns the payload name the front end listens for
func (t Trigger) String() string {
	switch t {
	case TriggerNotify:
		return "notification"
	case TriggerOverlay:
		return "overlay"
	default:
		return "none"
	}
}

func (t Trigger) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Rules are the scoring constants
type Rules struct {
	Keywords []string

	DistractionPoints int
	MildIdle          time.Duration
	MildIdlePoints    int
	SevereIdle        time.Duration
	SevereIdlePoints  int

	ProductiveIdle time.Duration
	DecayInterval  time.Duration
	DecayPoints    int

	NotifyThreshold  int
	OverlayThreshold int
	MaxScore         int
}

// DefaultRules returns the stock scoring rules
func DefaultRules() Rules {
	return Rules{
		Keywords:          []string{"youtube", "netflix", "facebook", "discord", "steam.exe", "slack"},
		DistractionPoints: 5,
		MildIdle:          180 * time.Second,
		MildIdlePoints:    3,
		SevereIdle:        600 * time.Second,
		SevereIdlePoints:  10,
		ProductiveIdle:    60 * time.Second,
		DecayInterval:     10 * time.Second,
		DecayPoints:       1,
		NotifyThreshold:   10,
		OverlayThreshold:  20,
		MaxScore:          100,
	}
}

// Decision is the full outcome of one evaluation
type Decision struct {
	Trigger     Trigger       `json:"trigger"`
	Score       int           `json:"score"`
	Added       int           `json:"added"`
	Decayed     bool          `json:"decayed"`
	Distraction bool          `json:"distraction"`
	Idle        time.Duration `json:"idle"`
}

// Engine holds the score of one session. It is owned by a single caller at a
// time and is not safe for concurrent use.
type Engine struct {
	rules     Rules
	keywords  []string
	score     int
	lastDecay time.Time
}

// New creates an engine with a zero score whose decay clock starts at now
func New(rules Rules, now time.Time) *Engine {
	keywords := make([]string, 0, len(rules.Keywords))
	for _, k := range rules.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Engine{
		rules:     rules,
		keywords:  keywords,
		lastDecay: now,
	}
}

// Score returns the current deviation score
func (e *Engine) Score() int {
	return e.score
}

// Evaluate scores one observation and returns the resulting trigger
func (e *Engine) Evaluate(w window.ActiveWindowSnapshot, in input.Snapshot, now time.Time) Trigger {
	return e.EvaluateDetailed(w, in, now).Trigger
}

// EvaluateDetailed applies, in order: distraction keywords, inactivity bands,
// decay, then additions. Decay is applied before additions of the same call.
func (e *Engine) EvaluateDetailed(w window.ActiveWindowSnapshot, in input.Snapshot, now time.Time) Decision {
	add := 0

	distraction := e.isDistraction(w)
	if distraction {
		add += e.rules.DistractionPoints
	}

	idle := in.Idle(now)
	switch {
	case idle >= e.rules.SevereIdle:
		add += e.rules.SevereIdlePoints
	case idle >= e.rules.MildIdle:
		add += e.rules.MildIdlePoints
	}

	decayed := false
	if !distraction && idle < e.rules.ProductiveIdle && now.Sub(e.lastDecay) >= e.rules.DecayInterval {
		e.score = max(0, e.score-e.rules.DecayPoints)
		e.lastDecay = now
		decayed = true
	}

	if add > 0 {
		e.score = min(e.rules.MaxScore, e.score+add)
	}

	return Decision{
		Trigger:     e.decide(),
		Score:       e.score,
		Added:       add,
		Decayed:     decayed,
		Distraction: distraction,
		Idle:        idle,
	}
}

func (e *Engine) isDistraction(w window.ActiveWindowSnapshot) bool {
	title := strings.ToLower(w.Title)
	app := strings.ToLower(w.AppName)
	for _, k := range e.keywords {
		if strings.Contains(title, k) || strings.Contains(app, k) {
			return true
		}
	}
	return false
}

func (e *Engine) decide() Trigger {
	switch {
	case e.score >= e.rules.OverlayThreshold:
		return TriggerOverlay
	case e.score >= e.rules.NotifyThreshold:
		return TriggerNotify
	default:
		return TriggerNone
	}
}
