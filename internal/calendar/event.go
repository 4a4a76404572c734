package calendar

import "time"

// Boundary is one end of a calendar event as it arrives on the wire: either a
// precise instant (DateTime, RFC 3339) or a whole day (Date, YYYY-MM-DD).
type Boundary struct {
	DateTime string
	Date     string
	TimeZone string
}

// AllDay reports whether the boundary names a whole day.
func (b Boundary) AllDay() bool {
	return b.DateTime == "" && b.Date != ""
}

// Event is a calendar entry. The engine only reads events.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       Boundary
	End         Boundary
	Link        string
}

// EventDraft is an insert request. Reminders are popup lead times in
// minutes; an empty list keeps the calendar's default reminders.
type EventDraft struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Reminders   []int
}
