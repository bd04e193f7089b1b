// Package remote talks to the session tracking backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrUnavailable covers transport failures, timeouts and non-2xx responses
	ErrUnavailable = errors.New("remote service unavailable")
	// ErrMalformedResponse is returned when a 2xx body cannot be understood
	ErrMalformedResponse = errors.New("malformed response from remote service")
)

// HTTPError is a non-2xx response
type HTTPError struct {
	Method     string
	Path       string
	Status     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, body)
}

func (e *HTTPError) Unwrap() error {
	return ErrUnavailable
}

// FeedbackType is the user's verdict on an intervention
type FeedbackType string

const (
	FeedbackIsWork             FeedbackType = "is_work"
	FeedbackDistractionIgnored FeedbackType = "distraction_ignored"
)

// Valid reports whether f is a known feedback type
func (f FeedbackType) Valid() bool {
	return f == FeedbackIsWork || f == FeedbackDistractionIgnored
}

// StartedSession is the backend's view of a newly started session
type StartedSession struct {
	SessionID string
	StartTime time.Time
}

type startRequest struct {
	TaskID       *string `json:"task_id"`
	GoalDuration int     `json:"goal_duration"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
	StartTime string `json:"start_time"`
}

type endRequest struct {
	UserEvaluationScore int `json:"user_evaluation_score"`
}

type feedbackRequest struct {
	EventID      string       `json:"event_id"`
	FeedbackType FeedbackType `json:"feedback_type"`
	Timestamp    string       `json:"timestamp"`
}

// Client is a bearer-authenticated JSON client for the backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

// New creates a client. Every request is bounded by timeout.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// StartSession registers a new focus session
func (c *Client) StartSession(ctx context.Context, taskID *string, goalDuration int) (StartedSession, error) {
	var out startResponse
	req := startRequest{TaskID: taskID, GoalDuration: goalDuration}
	if err := c.doJSON(ctx, http.MethodPost, "/sessions/start", req, &out); err != nil {
		return StartedSession{}, err
	}

	if out.SessionID == "" {
		return StartedSession{}, errors.Wrap(ErrMalformedResponse, "missing session_id")
	}
	started, err := time.Parse(time.RFC3339, out.StartTime)
	if err != nil {
		return StartedSession{}, errors.Wrapf(ErrMalformedResponse, "start_time %q: %v", out.StartTime, err)
	}

	return StartedSession{SessionID: out.SessionID, StartTime: started}, nil
}

// EndSession closes a session with the user's self-evaluation
func (c *Client) EndSession(ctx context.Context, sessionID string, evaluationScore int) error {
	req := endRequest{UserEvaluationScore: evaluationScore}
	return c.doJSON(ctx, http.MethodPut, "/sessions/"+url.PathEscape(sessionID), req, nil)
}

// SubmitFeedback reports the user's verdict on an intervention
func (c *Client) SubmitFeedback(ctx context.Context, eventID string, feedback FeedbackType) error {
	if !feedback.Valid() {
		return errors.Errorf("unknown feedback type %q", feedback)
	}
	req := feedbackRequest{
		EventID:      eventID,
		FeedbackType: feedback,
		Timestamp:    c.now().UTC().Format(time.RFC3339),
	}
	return c.doJSON(ctx, http.MethodPost, "/feedback", req, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &HTTPError{
			Method:     method,
			Path:       path,
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
			Body:       string(b),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(ErrMalformedResponse, "%s %s: %v", method, path, err)
	}
	return nil
}
