package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds each backend call when Engine.Timeout is zero.
const DefaultTimeout = 30 * time.Second

const dateLayout = "2006-01-02"

// Engine answers overlap and availability questions against a Transport.
// Location is the default zone: offset-less input and all-day boundaries are
// read in it.
type Engine struct {
	Transport Transport
	Location  *time.Location
	Timeout   time.Duration
	Logger    *slog.Logger
}

func New(t Transport, loc *time.Location, timeout time.Duration, log *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{Transport: t, Location: loc, Timeout: timeout, Logger: log}
}

// IsOverlapping lists the events that intersect [start, end). Touching
// intervals do not overlap. Conflicts keep the order the backend returned.
func (e *Engine) IsOverlapping(ctx context.Context, start, end time.Time, calendarID string) (bool, []Event, error) {
	loc := e.Location
	start, end = start.In(loc), end.In(loc)
	if !end.After(start) {
		return false, nil, fmt.Errorf("empty interval %s..%s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	// All-day and multi-day events can start well before the proposed
	// interval, so the listing window is padded by a day on both sides.
	events, err := e.list(ctx, Query{
		CalendarID: calendarID,
		TimeMin:    start.AddDate(0, 0, -1),
		TimeMax:    end.AddDate(0, 0, 1),
	})
	if err != nil {
		return false, nil, err
	}

	var conflicts []Event
	for _, ev := range events {
		evStart, evEnd, err := e.Interval(ev)
		if err != nil {
			e.Logger.Debug("skipping event with unreadable bounds", "event_id", ev.ID, "err", err)
			continue
		}
		if start.Before(evEnd) && end.After(evStart) {
			conflicts = append(conflicts, ev)
		}
	}
	return len(conflicts) > 0, conflicts, nil
}

// UpcomingEvents returns every event in [from, from+days) in server order.
func (e *Engine) UpcomingEvents(ctx context.Context, from time.Time, days int, calendarID string) ([]Event, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	from = from.In(e.Location)
	return e.list(ctx, Query{
		CalendarID: calendarID,
		TimeMin:    from,
		TimeMax:    from.AddDate(0, 0, days),
	})
}

// CreateEvent forwards draft to the backend. A draft without a zone is
// created in the default zone.
func (e *Engine) CreateEvent(ctx context.Context, calendarID string, draft EventDraft) (Event, error) {
	if !draft.End.After(draft.Start) {
		return Event{}, errors.New("event must end after it starts")
	}
	if draft.TimeZone == "" {
		draft.TimeZone = e.Location.String()
	}
	var created Event
	err := e.call(ctx, "insert", func(ctx context.Context) error {
		var err error
		created, err = e.Transport.InsertEvent(ctx, calendarID, draft)
		return err
	})
	return created, err
}

// Interval resolves an event to absolute instants. A date-only start is
// midnight of that day in the default zone; a date-only end is exclusive and
// therefore resolves to midnight of the following day.
func (e *Engine) Interval(ev Event) (start, end time.Time, err error) {
	if start, err = e.resolve(ev.Start, false); err != nil {
		return start, end, fmt.Errorf("start: %w", err)
	}
	if end, err = e.resolve(ev.End, true); err != nil {
		return start, end, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

func (e *Engine) resolve(b Boundary, isEnd bool) (time.Time, error) {
	switch {
	case b.DateTime != "":
		return e.ParseInstant(b.DateTime)
	case b.Date != "":
		day, err := time.ParseInLocation(dateLayout, b.Date, e.Location)
		if err != nil {
			return time.Time{}, err
		}
		if isEnd {
			day = day.AddDate(0, 0, 1)
		}
		return day, nil
	}
	return time.Time{}, errors.New("missing boundary")
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dateLayout,
}

// ParseInstant reads an ISO 8601 timestamp. Values without an offset are
// taken in the default zone, never UTC.
func (e *Engine) ParseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, e.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// list follows page tokens until the backend stops returning one.
func (e *Engine) list(ctx context.Context, q Query) ([]Event, error) {
	q.SingleEvents = true
	q.OrderByStartTime = true
	q.MaxResults = MaxPageSize

	var events []Event
	pages := 0
	for {
		var page Page
		err := e.call(ctx, "list", func(ctx context.Context) error {
			var err error
			page, err = e.Transport.ListEvents(ctx, q)
			return err
		})
		if err != nil {
			return nil, err
		}
		pages++
		events = append(events, page.Events...)
		if page.NextPageToken == "" {
			break
		}
		q.PageToken = page.NextPageToken
	}
	e.Logger.Debug("listed events", "calendar_id", q.CalendarID, "pages", pages, "events", len(events))
	return events, nil
}

// call runs one backend call under the engine timeout.
func (e *Engine) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if e.Transport == nil {
		return &TransportError{Op: op, Err: errors.New("no calendar configured")}
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(ctx)
	if err == nil {
		return nil
	}
	// Some clients report an expired deadline as a plain network error.
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return &TransportError{Op: op, Err: err}
}
