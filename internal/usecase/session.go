package usecase

import (
	"fmt"
	"time"
)

// SessionWindow is a daily trading window in a named timezone, wrap-around
// allowed (start after end spans midnight).
type SessionWindow struct {
	startMin int
	endMin   int
	loc      *time.Location
}

func NewSessionWindow(start, end, timezone string) (*SessionWindow, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	s, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("session start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("session end: %w", err)
	}
	return &SessionWindow{startMin: s, endMin: e, loc: loc}, nil
}

// Contains reports whether t falls inside the window.
func (w *SessionWindow) Contains(t time.Time) bool {
	local := t.In(w.loc)
	m := local.Hour()*60 + local.Minute()
	if w.startMin <= w.endMin {
		return m >= w.startMin && m < w.endMin
	}
	return m >= w.startMin || m < w.endMin
}

// UntilNextStart is the duration from t to the next window opening.
func (w *SessionWindow) UntilNextStart(t time.Time) time.Duration {
	local := t.In(w.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), w.startMin/60, w.startMin%60, 0, 0, w.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
