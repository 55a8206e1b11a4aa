package usecase

import (
	"fmt"
	"time"
)

// SessionClock decides whether a wall-clock instant falls inside the
// exchange trading session. A zero clock (no open/close configured) treats
// every instant as in-session, which fits 24/7 venues.
type SessionClock struct {
	open  int // minutes since midnight, exchange-local
	close int
	loc   *time.Location
}

// NewSessionClock parses "HH:MM" open/close in the given IANA timezone.
// Empty open and close produce an always-open clock.
func NewSessionClock(open, close, tz string) (*SessionClock, error) {
	if open == "" && close == "" {
		return &SessionClock{}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("session timezone: %w", err)
	}
	o, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("session close: %w", err)
	}
	return &SessionClock{open: o, close: c, loc: loc}, nil
}

// InSession reports whether t falls within [open, close). Weekends are
// always out of session for clocks with configured hours.
func (s *SessionClock) InSession(t time.Time) bool {
	if s.loc == nil {
		return true
	}
	lt := t.In(s.loc)
	if wd := lt.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	m := lt.Hour()*60 + lt.Minute()
	return m >= s.open && m < s.close
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
