// Package market decides whether the exchange is trading at a given instant.
package market

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // slim container images ship without zoneinfo

	"stockalert/pkg/errors"
)

// DefaultTimezone is the exchange timezone for Tradegate
const DefaultTimezone = "Europe/Berlin"

// TimeOfDay is a wall-clock time without a date, parsed from "HH:MM".
// It implements envconfig.Decoder so it can be used directly in config structs.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h clock)
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return TimeOfDay{}, errors.Wrapf(errors.ErrInvalidInput, "time of day %q", value)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Decode implements envconfig.Decoder
func (t *TimeOfDay) Decode(value string) error {
	parsed, err := ParseTimeOfDay(value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// String formats the time as "HH:MM"
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// Window is a daily trading window in a fixed timezone. Both bounds are inclusive.
// There is no holiday or weekend calendar.
type Window struct {
	Open     TimeOfDay
	Close    TimeOfDay
	Location *time.Location
}

// NewWindow loads the timezone and builds a window
func NewWindow(timezone string, open, close TimeOfDay) (*Window, error) {
	if strings.TrimSpace(timezone) == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %s", timezone)
	}
	return &Window{Open: open, Close: close, Location: loc}, nil
}

// IsOpen reports whether t falls inside the window, evaluated in the window's timezone.
// A window whose close is before its open spans midnight.
func (w *Window) IsOpen(t time.Time) bool {
	local := t.In(w.Location)
	// seconds count: 22:00:30 is already past a 22:00 close
	now := local.Hour()*3600 + local.Minute()*60 + local.Second()
	open := w.Open.minutes() * 60
	close := w.Close.minutes() * 60

	if open <= close {
		return now >= open && now <= close
	}
	return now >= open || now <= close
}

// String renders the window for logs
func (w *Window) String() string {
	return fmt.Sprintf("%s-%s %s", w.Open, w.Close, w.Location)
}
