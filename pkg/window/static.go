package window

import "errors"

// StaticDetector is an in-memory Detector returning fixed data. It stands in for
// a native probe in tests and on hosts without a supported display server.
type StaticDetector struct {
	Focused       *ActiveWindowSnapshot
	Windows       []RawWindow
	FocusErr      error
	ListErr       error
	DisplayServer string
	CloseErr      error
}

func (s *StaticDetector) GetFocusedWindow() (*ActiveWindowSnapshot, error) {
	if s.FocusErr != nil {
		return nil, s.FocusErr
	}
	if s.Focused == nil {
		return nil, errors.New("no focused window")
	}
	snap := *s.Focused
	return &snap, nil
}

func (s *StaticDetector) ListWindows() ([]RawWindow, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]RawWindow, len(s.Windows))
	copy(out, s.Windows)
	return out, nil
}

func (s *StaticDetector) IsAvailable() bool {
	return true
}

func (s *StaticDetector) GetDisplayServer() string {
	if s.DisplayServer == "" {
		return "static"
	}
	return s.DisplayServer
}

func (s *StaticDetector) Close() error {
	return s.CloseErr
}
