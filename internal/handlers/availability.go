package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shifts-bot/internal/calendar"
	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
	"shifts-bot/internal/prefs"
)

const (
	nsAvailability = "avail:"
	maxListed      = 40
	gridDays       = 7
)

// AvailabilityEditor reads the calendar: upcoming events and which shift
// windows are still free.
type AvailabilityEditor struct {
	base
	Calendar   *calendar.Engine // nil when no calendar is configured
	CalendarID string
	Shifts     *prefs.ShiftStore
	Timezone   *prefs.TimezoneStore
	Now        func() time.Time
}

func NewAvailabilityEditor(catalog *menus.Catalog, engine *calendar.Engine, calendarID string, stores Stores) *AvailabilityEditor {
	return &AvailabilityEditor{
		base:       base{catalog},
		Calendar:   engine,
		CalendarID: calendarID,
		Shifts:     stores.Shifts,
		Timezone:   stores.Timezone,
		Now:        time.Now,
	}
}

func (e *AvailabilityEditor) Name() string { return "availability" }

func (e *AvailabilityEditor) CanHandle(data string) bool {
	return hasNamespace(data, nsAvailability)
}

func (e *AvailabilityEditor) HandleCallback(ctx context.Context, _ *models.Session, data string) (Reply, error) {
	if e.Calendar == nil {
		return e.render("calendar_off", nil), nil
	}
	loc := e.Timezone.Location()
	today := midnight(e.Now().In(loc))

	switch data {
	case nsAvailability + "week":
		days := (int(time.Monday) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		title := fmt.Sprintf("This week (%s - %s)", today.Format("02 Jan"), today.AddDate(0, 0, days-1).Format("02 Jan"))
		return e.events(ctx, today, days, title, data)
	case nsAvailability + "next7":
		return e.events(ctx, e.Now().In(loc), 7, "Next 7 days", data)
	case nsAvailability + "grid":
		return e.grid(ctx, today)
	}
	return e.unknown(data), nil
}

func (e *AvailabilityEditor) events(ctx context.Context, from time.Time, days int, title, refresh string) (Reply, error) {
	events, err := e.Calendar.UpcomingEvents(ctx, from, days, e.CalendarID)
	if err != nil {
		return Reply{}, err
	}
	return e.render("availability_events", menus.Vars{
		"range":   title,
		"events":  eventLines(e.Calendar, events, e.Timezone.Location(), e.text("no_events", nil)),
		"refresh": refresh,
	}), nil
}

// grid checks every shift window on each of the next days for conflicts.
func (e *AvailabilityEditor) grid(ctx context.Context, today time.Time) (Reply, error) {
	loc := today.Location()
	windows := e.Shifts.Get()
	lines := make([]string, 0, gridDays)
	for d := 0; d < gridDays; d++ {
		day := today.AddDate(0, 0, d)
		cells := []string{day.Format("Mon 02 Jan")}
		for _, w := range windows {
			start, end := w.On(day, loc)
			busy, _, err := e.Calendar.IsOverlapping(ctx, start, end, e.CalendarID)
			if err != nil {
				return Reply{}, err
			}
			mark := "✅"
			if busy {
				mark = "❌"
			}
			cells = append(cells, w.Emoji+mark)
		}
		lines = append(lines, strings.Join(cells, "  "))
	}
	return e.render("availability_grid", menus.Vars{"grid": strings.Join(lines, "\n")}), nil
}

// eventLines renders one line per event in loc.
func eventLines(engine *calendar.Engine, events []calendar.Event, loc *time.Location, empty string) string {
	if len(events) == 0 {
		return empty
	}
	lines := make([]string, 0, min(len(events), maxListed+1))
	for i, ev := range events {
		if i == maxListed {
			lines = append(lines, fmt.Sprintf("…and %d more", len(events)-i))
			break
		}
		summary := ev.Summary
		if summary == "" {
			summary = "(no title)"
		}
		if ev.Start.AllDay() {
			lines = append(lines, fmt.Sprintf("• %s, all day: %s", allDaySpan(ev), summary))
			continue
		}
		start, end, err := engine.Interval(ev)
		if err != nil {
			lines = append(lines, "• "+summary)
			continue
		}
		start, end = start.In(loc), end.In(loc)
		lines = append(lines, fmt.Sprintf("• %s %s-%s %s", start.Format("Mon 02 Jan"), start.Format("15:04"), end.Format("15:04"), summary))
	}
	return strings.Join(lines, "\n")
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// allDaySpan labels the days an all-day event covers. The end date is
// exclusive.
func allDaySpan(ev calendar.Event) string {
	first, err := time.Parse(time.DateOnly, ev.Start.Date)
	if err != nil {
		return ev.Start.Date
	}
	label := first.Format("Mon 02 Jan")
	last, err := time.Parse(time.DateOnly, ev.End.Date)
	if err != nil {
		return label
	}
	if last = last.AddDate(0, 0, -1); last.After(first) {
		label += " - " + last.Format("Mon 02 Jan")
	}
	return label
}
