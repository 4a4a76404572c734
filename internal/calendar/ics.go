package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

const maxFeedSize = 10 << 20

// ICS is a read-only backend over an iCalendar feed, either a local file or
// an http(s) URL. Recurring events are expanded into single instances.
// The calendar ID of a query is ignored: a feed is one calendar.
type ICS struct {
	source string
	loc    *time.Location
	client *http.Client
	log    *slog.Logger
}

// NewICS reads floating times and all-day dates in loc.
func NewICS(source string, loc *time.Location, log *slog.Logger) *ICS {
	if log == nil {
		log = slog.Default()
	}
	return &ICS{source: source, loc: loc, client: &http.Client{}, log: log}
}

type occurrence struct {
	start time.Time
	event Event
}

// ListEvents pages through the feed with numeric offset tokens.
func (c *ICS) ListEvents(ctx context.Context, q Query) (Page, error) {
	offset := 0
	if q.PageToken != "" {
		n, err := strconv.Atoi(q.PageToken)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("bad page token %q", q.PageToken)
		}
		offset = n
	}

	body, err := c.fetch(ctx)
	if err != nil {
		return Page{}, err
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse feed: %w", err)
	}
	occ := c.occurrences(cal.Events(), q.TimeMin, q.TimeMax)
	if q.OrderByStartTime {
		sort.SliceStable(occ, func(i, j int) bool { return occ[i].start.Before(occ[j].start) })
	}

	if offset > len(occ) {
		offset = len(occ)
	}
	end := len(occ)
	if q.MaxResults > 0 && offset+q.MaxResults < end {
		end = offset + q.MaxResults
	}
	page := Page{Events: make([]Event, 0, end-offset)}
	for _, o := range occ[offset:end] {
		page.Events = append(page.Events, o.event)
	}
	if end < len(occ) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (c *ICS) InsertEvent(context.Context, string, EventDraft) (Event, error) {
	return Event{}, ErrReadOnly
}

func (c *ICS) fetch(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(c.source, "http://") && !strings.HasPrefix(c.source, "https://") {
		return os.ReadFile(c.source)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch feed: %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, Temporary(err)
		}
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxFeedSize {
		return nil, fmt.Errorf("fetch feed: larger than %d MiB", maxFeedSize>>20)
	}
	return body, nil
}

type vevent struct {
	uid, summary, description, location string

	start, end time.Time
	allDay     bool
	rule       string
	exdates    []time.Time
	recurrence *time.Time
}

// occurrences expands the feed into instances overlapping [from, until).
// Instances replaced by a RECURRENCE-ID override are dropped in favour of
// the override.
func (c *ICS) occurrences(components []*ical.VEvent, from, until time.Time) []occurrence {
	var events []vevent
	overridden := map[string]bool{}
	for _, comp := range components {
		ev, err := c.parse(comp)
		if err != nil {
			c.log.Debug("skipping feed event", "err", err)
			continue
		}
		if ev.recurrence != nil {
			overridden[instanceKey(ev.uid, *ev.recurrence)] = true
		}
		events = append(events, ev)
	}

	var out []occurrence
	for _, ev := range events {
		if ev.rule == "" || ev.recurrence != nil {
			if ev.start.Before(until) && ev.end.After(from) {
				out = append(out, occurrence{start: ev.start, event: ev.instance(ev.start, ev.end, ev.uid)})
			}
			continue
		}

		r, err := rrule.StrToRRule(ev.rule)
		if err != nil {
			c.log.Debug("skipping bad recurrence rule", "uid", ev.uid, "rule", ev.rule, "err", err)
			continue
		}
		r.DTStart(ev.start)
		var set rrule.Set
		set.RRule(r)
		for _, ex := range ev.exdates {
			set.ExDate(ex.In(ev.start.Location()))
		}

		dur := ev.end.Sub(ev.start)
		days := calendarDays(ev.start, ev.end)
		for _, s := range set.Between(from.Add(-dur), until, true) {
			if overridden[instanceKey(ev.uid, s)] {
				continue
			}
			e := s.Add(dur)
			if ev.allDay {
				e = s.AddDate(0, 0, days)
			}
			if !s.Before(until) || !e.After(from) {
				continue
			}
			out = append(out, occurrence{start: s, event: ev.instance(s, e, instanceKey(ev.uid, s))})
		}
	}
	return out
}

func (ev vevent) instance(start, end time.Time, id string) Event {
	out := Event{ID: id, Summary: ev.summary, Description: ev.description, Location: ev.location}
	if ev.allDay {
		out.Start = Boundary{Date: start.Format(dateLayout)}
		out.End = Boundary{Date: end.Format(dateLayout)}
	} else {
		out.Start = Boundary{DateTime: start.Format(time.RFC3339)}
		out.End = Boundary{DateTime: end.Format(time.RFC3339)}
	}
	return out
}

func (c *ICS) parse(comp *ical.VEvent) (vevent, error) {
	var ev vevent
	if p := comp.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.uid = p.Value
	}
	if ev.uid == "" {
		return ev, fmt.Errorf("missing UID")
	}
	if p := comp.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.summary = p.Value
	}
	if p := comp.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.description = p.Value
	}
	if p := comp.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.location = p.Value
	}

	dtstart := comp.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		return ev, fmt.Errorf("%s: missing DTSTART", ev.uid)
	}
	var err error
	if ev.start, err = c.propTime(dtstart.Value, dtstart.ICalParameters); err != nil {
		return ev, fmt.Errorf("%s: DTSTART: %w", ev.uid, err)
	}
	ev.allDay = !strings.Contains(dtstart.Value, "T")

	switch dtend := comp.GetProperty(ical.ComponentPropertyDtEnd); {
	case dtend != nil:
		if ev.end, err = c.propTime(dtend.Value, dtend.ICalParameters); err != nil {
			return ev, fmt.Errorf("%s: DTEND: %w", ev.uid, err)
		}
	case ev.allDay:
		ev.end = ev.start.AddDate(0, 0, 1)
	default:
		ev.end = ev.start
	}

	if p := comp.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rule = p.Value
	}
	for _, p := range comp.GetProperties(ical.ComponentPropertyExdate) {
		for _, v := range strings.Split(p.Value, ",") {
			if t, err := c.propTime(strings.TrimSpace(v), p.ICalParameters); err == nil {
				ev.exdates = append(ev.exdates, t)
			}
		}
	}
	if p := comp.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := c.propTime(p.Value, p.ICalParameters); err == nil {
			ev.recurrence = &t
		}
	}
	return ev, nil
}

// propTime reads a DATE or DATE-TIME value. UTC values end in Z; others use
// their TZID or, when floating, the default zone.
func (c *ICS) propTime(v string, params map[string][]string) (time.Time, error) {
	loc := c.loc
	if tz := params["TZID"]; len(tz) > 0 {
		if l, err := time.LoadLocation(tz[0]); err == nil {
			loc = l
		}
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, c.loc)
	}
}

func instanceKey(uid string, t time.Time) string {
	return uid + "_" + t.UTC().Format("20060102T150405Z")
}

// calendarDays counts whole days between two midnights, ignoring DST shifts.
func calendarDays(start, end time.Time) int {
	a := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
