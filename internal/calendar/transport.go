package calendar

import (
	"context"
	"errors"
	"time"
)

// MaxPageSize is the largest page the engine asks a transport for.
const MaxPageSize = 2500

// Query selects events overlapping [TimeMin, TimeMax).
type Query struct {
	CalendarID       string
	TimeMin          time.Time
	TimeMax          time.Time
	PageToken        string
	SingleEvents     bool
	OrderByStartTime bool
	MaxResults       int
}

// Page is one slice of a listing. An empty NextPageToken ends the listing.
type Page struct {
	Events        []Event
	NextPageToken string
}

// Transport is the calendar backend.
type Transport interface {
	ListEvents(ctx context.Context, q Query) (Page, error)
	InsertEvent(ctx context.Context, calendarID string, draft EventDraft) (Event, error)
}

// ErrReadOnly is returned by backends that cannot create events.
var ErrReadOnly = errors.New("calendar is read-only")

// temporary marks a backend failure that is worth retrying, such as a rate
// limit or a 5xx from the server.
type temporary struct{ err error }

func (t temporary) Error() string { return t.err.Error() }
func (t temporary) Unwrap() error { return t.err }

// Temporary wraps err so that TransportError.Retryable reports true.
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return temporary{err: err}
}
