package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shifts-bot/internal/calendar"
	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
)

const (
	nsDocs     = "docs:"
	dayLayout  = "20060102"
	pickerDays = 7
)

// DocsEditor logs a shift to the calendar after checking it for conflicts.
type DocsEditor struct {
	base
	Calendar   *calendar.Engine // nil when no calendar is configured
	CalendarID string
	Stores     Stores
	Now        func() time.Time
}

func NewDocsEditor(catalog *menus.Catalog, engine *calendar.Engine, calendarID string, stores Stores) *DocsEditor {
	return &DocsEditor{base: base{catalog}, Calendar: engine, CalendarID: calendarID, Stores: stores, Now: time.Now}
}

func (e *DocsEditor) Name() string { return "docs" }

func (e *DocsEditor) CanHandle(data string) bool {
	return hasNamespace(data, nsDocs)
}

func (e *DocsEditor) HandleCallback(ctx context.Context, _ *models.Session, data string) (Reply, error) {
	if e.Calendar == nil {
		return e.render("calendar_off", nil), nil
	}
	action, arg := split(data, nsDocs)
	switch {
	case action == "add" && arg == "":
		return e.pickShift(), nil
	case action == "add":
		w, ok := e.Stores.Shifts.Window(models.ShiftID(arg))
		if !ok {
			return e.unknown(data), nil
		}
		return e.pickDay(w), nil
	case action == "day", action == "force":
		id, date, _ := strings.Cut(arg, ":")
		w, ok := e.Stores.Shifts.Window(models.ShiftID(id))
		if !ok {
			return e.unknown(data), nil
		}
		day, err := time.ParseInLocation(dayLayout, date, e.Stores.Timezone.Location())
		if err != nil {
			return e.unknown(data), nil
		}
		return e.log(ctx, w, day, action == "force")
	}
	return e.unknown(data), nil
}

func (e *DocsEditor) pickShift() Reply {
	var rows [][]menus.Button
	for _, w := range e.Stores.Shifts.Get() {
		label := fmt.Sprintf("%s %s %s-%s", w.Emoji, w.Name, w.Start, w.End)
		rows = append(rows, menus.Row(menus.Btn(label, nsDocs+"add:"+string(w.ID))))
	}
	return e.render("docs_pick_shift", nil, rows...)
}

func (e *DocsEditor) pickDay(w models.ShiftWindow) Reply {
	today := midnight(e.Now().In(e.Stores.Timezone.Location()))
	buttons := make([]menus.Button, 0, pickerDays)
	for d := 0; d < pickerDays; d++ {
		day := today.AddDate(0, 0, d)
		buttons = append(buttons, menus.Btn(day.Format("Mon 02 Jan"), fmt.Sprintf("%sday:%s:%s", nsDocs, w.ID, day.Format(dayLayout))))
	}
	return e.render("docs_pick_day", menus.Vars{
		"emoji": w.Emoji, "name": w.Name, "start": w.Start, "end": w.End,
	}, menus.Grid(buttons, 2)...)
}

// log inserts the shift, unless force is false and the calendar already has
// something in that window.
func (e *DocsEditor) log(ctx context.Context, w models.ShiftWindow, day time.Time, force bool) (Reply, error) {
	loc := e.Stores.Timezone.Location()
	start, end := w.On(day, loc)

	if !force {
		busy, conflicts, err := e.Calendar.IsOverlapping(ctx, start, end, e.CalendarID)
		if err != nil {
			return Reply{}, err
		}
		if busy {
			return e.render("docs_conflict", menus.Vars{
				"name":   w.Name,
				"day":    day.Format("Mon 02 Jan"),
				"events": eventLines(e.Calendar, conflicts, loc, ""),
				"shift":  string(w.ID),
				"date":   day.Format(dayLayout),
			}), nil
		}
	}

	var reminders []int
	if set := e.Stores.Reminders.Get(); set.Enabled {
		reminders = set.BeforeShift
	}
	ev, err := e.Calendar.CreateEvent(ctx, e.CalendarID, calendar.EventDraft{
		Summary:     fmt.Sprintf("%s %s shift", w.Emoji, w.Name),
		Description: e.Stores.Templates.Render(w.ID, ShiftVariables(w, day, "", "")),
		Start:       start,
		End:         end,
		TimeZone:    e.Stores.Timezone.Get(),
		Reminders:   reminders,
	})
	if err != nil {
		return Reply{}, err
	}

	link := ""
	if ev.Link != "" {
		link = "\n" + ev.Link
	}
	return e.render("docs_added", menus.Vars{
		"name":  w.Name,
		"day":   day.Format("Mon 02 Jan"),
		"start": w.Start,
		"end":   w.End,
		"link":  link,
	}), nil
}
