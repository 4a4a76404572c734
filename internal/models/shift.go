package models

import (
	"regexp"
	"time"
)

// ShiftID names one of the fixed shift windows.
type ShiftID string

const (
	ShiftMorning ShiftID = "morning"
	ShiftNoon    ShiftID = "noon"
	ShiftEvening ShiftID = "evening"
)

// ShiftOrder is the fixed iteration order used for display and Classify.
var ShiftOrder = []ShiftID{ShiftMorning, ShiftNoon, ShiftEvening}

// Valid reports whether id is one of the known shift windows.
func (id ShiftID) Valid() bool {
	for _, s := range ShiftOrder {
		if s == id {
			return true
		}
	}
	return false
}

var timeRx = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateTime accepts only zero-padded 24h "HH:MM".
func ValidateTime(s string) bool {
	return timeRx.MatchString(s)
}

// minutes turns a validated "HH:MM" into minutes after midnight.
func minutes(s string) int {
	return int(s[0]-'0')*600 + int(s[1]-'0')*60 + int(s[3]-'0')*10 + int(s[4]-'0')
}

// ShiftWindow is a named time-of-day interval.
// End before Start means the window runs past midnight.
type ShiftWindow struct {
	ID    ShiftID `json:"-"`
	Name  string  `json:"name"`
	Emoji string  `json:"emoji"`
	Start string  `json:"start"` // "HH:MM"
	End   string  `json:"end"`   // "HH:MM"
}

// Overnight reports whether the window wraps to the next day.
func (w ShiftWindow) Overnight() bool {
	return minutes(w.End) < minutes(w.Start)
}

// Duration is (End - Start) mod 24h. A window with End == Start is a full day.
func (w ShiftWindow) Duration() time.Duration {
	d := (minutes(w.End) - minutes(w.Start) + 24*60) % (24 * 60)
	if d == 0 {
		d = 24 * 60
	}
	return time.Duration(d) * time.Minute
}

// Contains checks t against the window, inclusive on both ends. Windows that
// share a boundary both claim it.
func (w ShiftWindow) Contains(t string) bool {
	if !ValidateTime(t) || !ValidateTime(w.Start) || !ValidateTime(w.End) {
		return false
	}
	c, s, e := minutes(t), minutes(w.Start), minutes(w.End)
	if e < s {
		return c >= s || c <= e
	}
	return s <= c && c <= e
}

// On returns the concrete instants of the window for the given calendar day in loc.
func (w ShiftWindow) On(day time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := day.In(loc).Date()
	s, e := minutes(w.Start), minutes(w.End)
	start := time.Date(y, m, d, s/60, s%60, 0, 0, loc)
	if e <= s {
		d++
	}
	return start, time.Date(y, m, d, e/60, e%60, 0, 0, loc)
}

// Classify returns the first window, in the given order, that contains t.
func Classify(windows []ShiftWindow, t string) (ShiftID, bool) {
	for _, w := range windows {
		if w.Contains(t) {
			return w.ID, true
		}
	}
	return "", false
}
