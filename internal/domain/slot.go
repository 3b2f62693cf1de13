package domain

import (
	"fmt"
	"time"
)

// SessionType distinguishes the two bookable appointment kinds. Each maps to
// a fixed slot duration.
type SessionType string

const (
	SessionIndividual SessionType = "individual"
	SessionGroup      SessionType = "group"
)

func ParseSessionType(s string) (SessionType, error) {
	switch SessionType(s) {
	case SessionIndividual, SessionGroup:
		return SessionType(s), nil
	}
	return "", NewError(KindBadRequest, fmt.Sprintf("unknown session type %q", s))
}

func (t SessionType) Duration() time.Duration {
	if t == SessionGroup {
		return 90 * time.Minute
	}
	return time.Hour
}

// BusinessHours is the bookable window of a day, as offsets from midnight.
type BusinessHours struct {
	Open  time.Duration
	Close time.Duration
}

// Interval is a half-open time range [Start, Stop).
type Interval struct {
	Start time.Time
	Stop  time.Time
}

func NewInterval(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, Stop: start.Add(d)}
}

// Overlaps reports whether the two half-open intervals intersect. Touching
// endpoints do not count.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.Stop) && o.Start.Before(i.Stop)
}

func (i Interval) Duration() time.Duration { return i.Stop.Sub(i.Start) }

// Key is the normalized identity of an interval, used to deduplicate
// concurrent booking attempts for the same slot.
func (i Interval) Key() string {
	return i.Start.UTC().Format(time.RFC3339) + "/" + i.Stop.UTC().Format(time.RFC3339)
}

// Slot is a bookable candidate interval. Slots are computed per query and
// never stored.
type Slot struct {
	Start time.Time
	End   time.Time
}

func (s Slot) Interval() Interval { return Interval{Start: s.Start, Stop: s.End} }

// Label renders the slot start the way the booking UI displays it, e.g.
// "9:00 AM" or "1:30 PM".
func (s Slot) Label() string {
	hour := s.Start.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	suffix := "AM"
	if s.Start.Hour() >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, s.Start.Minute(), suffix)
}

// Reservation is the slice of a remote calendar event the scheduler needs
// for overlap arithmetic. Every read is stale the moment it returns.
type Reservation struct {
	ID       int64
	Name     string
	Start    time.Time
	Stop     time.Time
	Location string
}

func (r Reservation) Interval() Interval { return Interval{Start: r.Start, Stop: r.Stop} }

// ConflictDetail identifies one reservation blocking a requested interval.
type ConflictDetail struct {
	ID    int64     `json:"id"`
	Start time.Time `json:"start"`
	Stop  time.Time `json:"stop"`
}
