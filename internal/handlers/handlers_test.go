package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"shifts-bot/internal/calendar"
	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
	"shifts-bot/internal/prefs"
)

type memSessions struct {
	m     map[int64]*models.Session
	saves int
}

func (m *memSessions) Load(_ context.Context, chatID int64) (*models.Session, error) {
	if s, ok := m.m[chatID]; ok {
		return s, nil
	}
	return models.NewSession(chatID), nil
}

func (m *memSessions) Save(_ context.Context, s *models.Session) error {
	m.saves++
	m.m[s.ChatID] = s
	return nil
}

type fakeCalendar struct {
	events   []calendar.Event
	err      error
	inserted []calendar.EventDraft
}

func (f *fakeCalendar) ListEvents(_ context.Context, _ calendar.Query) (calendar.Page, error) {
	return calendar.Page{Events: f.events}, f.err
}

func (f *fakeCalendar) InsertEvent(_ context.Context, _ string, d calendar.EventDraft) (calendar.Event, error) {
	if f.err != nil {
		return calendar.Event{}, f.err
	}
	f.inserted = append(f.inserted, d)
	return calendar.Event{ID: "new", Summary: d.Summary, Link: "https://calendar.example/new"}, nil
}

type fixture struct {
	h        *Handler
	sessions *memSessions
	stores   Stores
	cal      *fakeCalendar
}

// Monday 10 March 2025, 09:00 in Jerusalem.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, mustLoad("Asia/Jerusalem"))

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newStores(t *testing.T, dir string) Stores {
	t.Helper()
	tz, err := prefs.NewTimezoneStore(filepath.Join(dir, "timezone.json"), "Asia/Jerusalem")
	if err != nil {
		t.Fatal(err)
	}
	return Stores{
		Shifts:    prefs.NewShiftStore(filepath.Join(dir, "shifts.json")),
		Reminders: prefs.NewReminderStore(filepath.Join(dir, "reminders.json")),
		Timezone:  tz,
		Templates: prefs.NewTemplateStore(filepath.Join(dir, "templates.json")),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, newStores(t, t.TempDir()))
}

func newFixtureWith(t *testing.T, stores Stores) *fixture {
	t.Helper()
	catalog, err := menus.Load()
	if err != nil {
		t.Fatal(err)
	}
	cal := &fakeCalendar{}
	engine := calendar.New(cal, stores.Timezone.Location(), time.Second, discard())
	now := func() time.Time { return testNow }

	avail := NewAvailabilityEditor(catalog, engine, "primary", stores)
	avail.Now = now
	docs := NewDocsEditor(catalog, engine, "primary", stores)
	docs.Now = now
	templates := NewTemplatesEditor(catalog, stores.Templates, stores.Shifts)
	templates.Now = now
	zones := NewTimezoneEditor(catalog, stores.Timezone, []string{"Asia/Jerusalem", "Europe/London"})
	zones.Now = now

	sessions := &memSessions{m: map[int64]*models.Session{}}
	h := New(sessions, catalog, discard(),
		NewPreferencesEditor(catalog, stores),
		NewShiftsEditor(catalog, stores.Shifts),
		NewRemindersEditor(catalog, stores.Reminders),
		zones,
		templates,
		avail,
		docs,
		NewNavigationEditor(catalog, stores),
	)
	h.Now = now
	return &fixture{h: h, sessions: sessions, stores: stores, cal: cal}
}

func (f *fixture) press(chat int64, data string) Reply {
	return f.h.Handle(context.Background(), Event{ChatID: chat, Kind: Callback, Data: data})
}

func (f *fixture) send(chat int64, text string) Reply {
	return f.h.Handle(context.Background(), Event{ChatID: chat, Kind: Text, Data: text})
}

func (f *fixture) session(chat int64) *models.Session {
	s, _ := f.sessions.Load(context.Background(), chat)
	return s
}

func hasButton(r Reply, data string) bool {
	for _, row := range r.Buttons {
		for _, b := range row {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}

func TestProbeOrder(t *testing.T) {
	f := newFixture(t)
	var names []string
	for _, ed := range f.h.Editors() {
		names = append(names, ed.Name())
	}
	want := []string{"preferences", "shifts", "reminders", "timezone", "templates", "availability", "docs", "navigation"}
	if !slices.Equal(names, want) {
		t.Fatalf("probe order = %v, want %v", names, want)
	}
}

func TestShiftEditFlow(t *testing.T) {
	f := newFixture(t)

	f.press(1, "shifts:start:morning")
	if got := f.session(1).Waiting; got == nil || got.Token() != "start_time_morning" {
		t.Fatalf("waiting = %v, want start_time_morning", got)
	}

	r := f.send(1, " 08:30 ")
	if !strings.Contains(r.Text, "08:30 (was 08:00)") {
		t.Errorf("staged start not shown:\n%s", r.Text)
	}
	s := f.session(1)
	if s.Waiting != nil {
		t.Errorf("waiting = %v after valid input", s.Waiting.Token())
	}
	if s.Pending[models.ShiftMorning].Start != "08:30" {
		t.Errorf("pending = %+v", s.Pending[models.ShiftMorning])
	}
	if w, _ := f.stores.Shifts.Window(models.ShiftMorning); w.Start != "08:00" {
		t.Errorf("store changed before save: %+v", w)
	}

	// Pending edits survive leaving and reopening the shift.
	f.press(1, "shifts:menu")
	if r := f.press(1, "shifts:open:morning"); !strings.Contains(r.Text, "Unsaved changes") {
		t.Errorf("pending note missing after reopening:\n%s", r.Text)
	}

	f.press(1, "shifts:end:morning")
	f.send(1, "15:00")
	r = f.press(1, "shifts:save:morning")
	if !strings.Contains(r.Text, "08:30-15:00") {
		t.Errorf("save reply = %q", r.Text)
	}
	w, _ := f.stores.Shifts.Window(models.ShiftMorning)
	if w.Start != "08:30" || w.End != "15:00" {
		t.Errorf("stored window = %+v", w)
	}
	if _, ok := f.session(1).Pending[models.ShiftMorning]; ok {
		t.Error("pending edit kept after save")
	}
}

func TestShiftInputRejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad time", "25:00", "is not a valid time"},
		{"not a time", "soon", "is not a valid time"},
		{"same as end", "16:00", "cannot start and end at 16:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.press(1, "shifts:start:morning")
			r := f.send(1, tt.input)
			if !strings.Contains(r.Text, tt.want) {
				t.Errorf("reply = %q, want %q", r.Text, tt.want)
			}
			if got := f.session(1).Waiting; got == nil || got.Token() != "start_time_morning" {
				t.Errorf("waiting = %v, want re-armed start_time_morning", got)
			}
			if len(f.session(1).Pending) != 0 {
				t.Errorf("pending = %v", f.session(1).Pending)
			}
		})
	}
}

func TestShiftCancelDiscards(t *testing.T) {
	f := newFixture(t)
	f.press(1, "shifts:start:noon")
	f.send(1, "11:00")
	r := f.press(1, "shifts:cancel:noon")
	if strings.Contains(r.Text, "was") || !strings.Contains(r.Text, "Start: 12:00") {
		t.Errorf("cancel reply = %q", r.Text)
	}
	if len(f.session(1).Pending) != 0 {
		t.Errorf("pending = %v", f.session(1).Pending)
	}
	if r := f.press(1, "shifts:save:noon"); !strings.Contains(r.Text, "Nothing to save") {
		t.Errorf("save after cancel = %q", r.Text)
	}
}

func TestTextWithoutPrompt(t *testing.T) {
	f := newFixture(t)
	r := f.send(1, "08:30")
	if !strings.Contains(r.Text, "Message received") {
		t.Errorf("reply = %q", r.Text)
	}
	s := f.session(1)
	if s.Waiting != nil || len(s.Pending) != 0 {
		t.Errorf("session changed: waiting=%v pending=%v", s.Waiting, s.Pending)
	}
	for i, w := range f.stores.Shifts.Get() {
		if w != prefs.DefaultShifts()[i] {
			t.Errorf("window %s = %+v, want defaults", w.ID, w)
		}
	}
}

func TestButtonAbandonsPrompt(t *testing.T) {
	f := newFixture(t)
	f.press(1, "shifts:start:morning")
	f.send(1, "07:00")
	f.press(1, "shifts:end:morning")

	r := f.press(1, "menu:main")
	if !strings.Contains(r.Text, "Shifts bot") {
		t.Errorf("reply = %q", r.Text)
	}
	s := f.session(1)
	if s.Waiting != nil || len(s.Pending) != 0 {
		t.Errorf("session not idle: waiting=%v pending=%v", s.Waiting, s.Pending)
	}
	if r := f.send(1, "17:00"); !strings.Contains(r.Text, "Message received") {
		t.Errorf("text after abandoning = %q", r.Text)
	}
	if p := f.session(1).Pending; len(p) != 0 {
		t.Errorf("text after abandoning staged %v", p)
	}
	if w, _ := f.stores.Shifts.Window(models.ShiftMorning); w.End != "16:00" {
		t.Errorf("morning = %+v", w)
	}
}

func TestCommands(t *testing.T) {
	f := newFixture(t)
	f.press(1, "reminders:custom")
	r := f.h.Handle(context.Background(), Event{ChatID: 1, Kind: Command, Data: "start"})
	if !strings.Contains(r.Text, "Shifts bot") || f.session(1).Waiting != nil {
		t.Errorf("/start: reply=%q waiting=%v", r.Text, f.session(1).Waiting)
	}
	r = f.h.Handle(context.Background(), Event{ChatID: 1, Kind: Command, Data: "help"})
	if !strings.Contains(r.Text, "Help") {
		t.Errorf("/help reply = %q", r.Text)
	}
}

func TestUnknownCallback(t *testing.T) {
	f := newFixture(t)
	for _, data := range []string{"bogus:1", "shifts:open:night", "menu:nowhere"} {
		if r := f.press(1, data); !strings.Contains(r.Text, "Action: "+data) {
			t.Errorf("%s: reply = %q", data, r.Text)
		}
	}
}

type panicky struct{}

func (panicky) Name() string          { return "panicky" }
func (panicky) CanHandle(string) bool { return true }
func (panicky) HandleCallback(context.Context, *models.Session, string) (Reply, error) {
	panic("boom")
}

func TestPanicRecovery(t *testing.T) {
	catalog, err := menus.Load()
	if err != nil {
		t.Fatal(err)
	}
	sessions := &memSessions{m: map[int64]*models.Session{}}
	s := models.NewSession(7)
	s.Await(models.AwaitCustomReminder{})
	sessions.m[7] = s

	h := New(sessions, catalog, discard(), panicky{})
	r := h.Handle(context.Background(), Event{ChatID: 7, Kind: Callback, Data: "anything"})
	if !strings.Contains(r.Text, "Something went wrong") || !hasButton(r, "menu:main") {
		t.Errorf("reply = %+v", r)
	}
	if sessions.saves != 1 || sessions.m[7].Waiting != nil {
		t.Errorf("saves=%d waiting=%v", sessions.saves, sessions.m[7].Waiting)
	}
}

func TestCalendarFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", context.DeadlineExceeded, "did not answer in time"},
		{"temporary", calendar.Temporary(errors.New("503 backend error")), "did not answer in time"},
		{"rejected", errors.New("403 forbidden"), "403 forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cal.err = tt.err
			r := f.press(1, "avail:next7")
			if !strings.Contains(r.Text, tt.want) {
				t.Errorf("reply = %q, want %q", r.Text, tt.want)
			}
			if !hasButton(r, "avail:next7") {
				t.Errorf("no retry button in %+v", r.Buttons)
			}
		})
	}
}

func TestPersistenceWarning(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	stores := newStores(t, dir)
	stores.Reminders = prefs.NewReminderStore(filepath.Join(blocker, "reminders.json"))
	f := newFixtureWith(t, stores)

	r := f.press(1, "reminders:toggle")
	if !strings.Contains(r.Text, "writing it to disk failed") {
		t.Errorf("reply = %q", r.Text)
	}
	if f.stores.Reminders.Get().Enabled {
		t.Error("in-memory value not updated")
	}
}

func TestCustomReminder(t *testing.T) {
	f := newFixture(t)
	f.press(1, "reminders:custom")
	f.send(1, "45")
	if got := f.stores.Reminders.Get().BeforeShift; !slices.Equal(got, []int{15, 30, 45}) {
		t.Fatalf("before_shift = %v", got)
	}

	f.press(1, "reminders:custom")
	r := f.send(1, "30")
	if !strings.Contains(r.Text, "already set") {
		t.Errorf("duplicate reply = %q", r.Text)
	}
	if got := f.session(1).Waiting; got == nil || got.Token() != "reminder_custom" {
		t.Errorf("waiting = %v, want re-armed reminder_custom", got)
	}

	r = f.send(1, "half an hour")
	if !strings.Contains(r.Text, "not a whole number") || f.session(1).Waiting == nil {
		t.Errorf("non-number reply = %q", r.Text)
	}
}

func TestTimezoneTyped(t *testing.T) {
	f := newFixture(t)
	f.press(1, "tz:type")
	r := f.send(1, "Mars/Olympus")
	if !strings.Contains(r.Text, "not a known timezone") || f.session(1).Waiting == nil {
		t.Errorf("invalid zone reply = %q", r.Text)
	}
	f.send(1, "Europe/London")
	if got := f.stores.Timezone.Get(); got != "Europe/London" {
		t.Errorf("zone = %q", got)
	}
}

func TestPreferencesReset(t *testing.T) {
	f := newFixture(t)
	if err := f.stores.Shifts.UpdateShift(models.ShiftMorning, prefs.WindowPatch{Start: "06:00"}); err != nil {
		t.Fatal(err)
	}
	if err := f.stores.Timezone.Set("Europe/London"); err != nil {
		t.Fatal(err)
	}
	f.press(1, "prefs:reset:confirm")
	if w, _ := f.stores.Shifts.Window(models.ShiftMorning); w.Start != "08:00" {
		t.Errorf("morning = %+v", w)
	}
	if got := f.stores.Timezone.Get(); got != "Asia/Jerusalem" {
		t.Errorf("zone = %q", got)
	}
}

func TestSessionsIsolated(t *testing.T) {
	f := newFixture(t)
	f.press(1, "shifts:start:evening")
	if r := f.send(2, "17:00"); !strings.Contains(r.Text, "Message received") {
		t.Errorf("chat 2 reply = %q", r.Text)
	}
	f.send(1, "17:00")
	if got := f.session(1).Pending[models.ShiftEvening].Start; got != "17:00" {
		t.Errorf("chat 1 pending start = %q", got)
	}
	if len(f.session(2).Pending) != 0 {
		t.Errorf("chat 2 pending = %v", f.session(2).Pending)
	}
}

func dentist() calendar.Event {
	return calendar.Event{
		ID:      "dentist",
		Summary: "Dentist",
		Start:   calendar.Boundary{DateTime: "2025-03-11T10:00:00+02:00"},
		End:     calendar.Boundary{DateTime: "2025-03-11T11:00:00+02:00"},
	}
}

func TestDocsConflictThenForce(t *testing.T) {
	f := newFixture(t)
	f.cal.events = []calendar.Event{dentist()}

	r := f.press(1, "docs:day:morning:20250311")
	if !strings.Contains(r.Text, "Dentist") || !hasButton(r, "docs:force:morning:20250311") {
		t.Fatalf("conflict reply = %+v", r)
	}
	if len(f.cal.inserted) != 0 {
		t.Fatalf("inserted despite conflict: %+v", f.cal.inserted)
	}

	r = f.press(1, "docs:force:morning:20250311")
	if !strings.Contains(r.Text, "Morning shift added") || !strings.Contains(r.Text, "https://calendar.example/new") {
		t.Errorf("force reply = %q", r.Text)
	}
	if len(f.cal.inserted) != 1 {
		t.Fatalf("inserted = %d", len(f.cal.inserted))
	}
	d := f.cal.inserted[0]
	loc := f.stores.Timezone.Location()
	if d.Summary != "🌅 Morning shift" {
		t.Errorf("summary = %q", d.Summary)
	}
	if !d.Start.Equal(time.Date(2025, 3, 11, 8, 0, 0, 0, loc)) || !d.End.Equal(time.Date(2025, 3, 11, 16, 0, 0, 0, loc)) {
		t.Errorf("bounds = %v - %v", d.Start, d.End)
	}
	if !slices.Equal(d.Reminders, []int{15, 30}) || d.TimeZone != "Asia/Jerusalem" {
		t.Errorf("reminders=%v zone=%q", d.Reminders, d.TimeZone)
	}
	if !strings.Contains(d.Description, "Morning shift 🌅\n08:00-16:00") {
		t.Errorf("description = %q", d.Description)
	}
}

func TestDocsFreeDayInserts(t *testing.T) {
	f := newFixture(t)
	f.cal.events = []calendar.Event{dentist()}
	f.press(1, "reminders:toggle")

	// Evening runs past midnight into the 12th.
	f.press(1, "docs:day:evening:20250311")
	if len(f.cal.inserted) != 1 {
		t.Fatalf("inserted = %d", len(f.cal.inserted))
	}
	d := f.cal.inserted[0]
	if d.Reminders != nil {
		t.Errorf("reminders = %v with reminders disabled", d.Reminders)
	}
	loc := f.stores.Timezone.Location()
	if !d.End.Equal(time.Date(2025, 3, 12, 0, 0, 0, 0, loc)) {
		t.Errorf("end = %v", d.End)
	}
}

func TestDocsPickers(t *testing.T) {
	f := newFixture(t)
	r := f.press(1, "docs:add")
	for _, id := range models.ShiftOrder {
		if !hasButton(r, "docs:add:"+string(id)) {
			t.Errorf("no button for %s", id)
		}
	}
	r = f.press(1, "docs:add:noon")
	if !hasButton(r, "docs:day:noon:20250310") || !hasButton(r, "docs:day:noon:20250316") {
		t.Errorf("day buttons = %+v", r.Buttons)
	}
	if r := f.press(1, "docs:day:noon:2025-03-10"); !strings.Contains(r.Text, "Action:") {
		t.Errorf("malformed date reply = %q", r.Text)
	}
}

func TestAvailabilityWeek(t *testing.T) {
	f := newFixture(t)
	f.cal.events = []calendar.Event{
		dentist(),
		{ID: "h", Summary: "Holiday <3", Start: calendar.Boundary{Date: "2025-03-12"}, End: calendar.Boundary{Date: "2025-03-13"}},
	}
	r := f.press(1, "avail:week")
	for _, want := range []string{
		"This week (10 Mar - 16 Mar)",
		"• Tue 11 Mar 10:00-11:00 Dentist",
		"• Wed 12 Mar, all day: Holiday &lt;3",
	} {
		if !strings.Contains(r.Text, want) {
			t.Errorf("missing %q in:\n%s", want, r.Text)
		}
	}

	f.cal.events = nil
	if r := f.press(1, "avail:next7"); !strings.Contains(r.Text, "No events.") {
		t.Errorf("empty reply = %q", r.Text)
	}
}

func TestAvailabilityGrid(t *testing.T) {
	f := newFixture(t)
	f.cal.events = []calendar.Event{{
		ID:    "lunch",
		Start: calendar.Boundary{DateTime: "2025-03-10T12:30:00+02:00"},
		End:   calendar.Boundary{DateTime: "2025-03-10T13:00:00+02:00"},
	}}
	r := f.press(1, "avail:grid")
	if !strings.Contains(r.Text, "Mon 10 Mar  🌅❌  🌇❌  🌆✅") {
		t.Errorf("grid:\n%s", r.Text)
	}
	if !strings.Contains(r.Text, "Tue 11 Mar  🌅✅  🌇✅  🌆✅") {
		t.Errorf("grid:\n%s", r.Text)
	}
}

func TestCalendarOff(t *testing.T) {
	catalog, err := menus.Load()
	if err != nil {
		t.Fatal(err)
	}
	stores := newStores(t, t.TempDir())
	h := New(&memSessions{m: map[int64]*models.Session{}}, catalog, discard(),
		NewAvailabilityEditor(catalog, nil, "", stores),
		NewDocsEditor(catalog, nil, "", stores),
	)
	for _, data := range []string{"avail:grid", "docs:add"} {
		r := h.Handle(context.Background(), Event{ChatID: 1, Kind: Callback, Data: data})
		if !strings.Contains(r.Text, "No calendar is connected") {
			t.Errorf("%s: reply = %q", data, r.Text)
		}
	}
}

func TestTemplateUnknownVariablesFlagged(t *testing.T) {
	f := newFixture(t)
	f.press(1, "tpl:edit:morning")
	r := f.send(1, "{shift_type} in {room} at {start_time}, {room}")
	if !strings.Contains(r.Text, "saved") || !strings.Contains(r.Text, "Not a known variable: {room}.") {
		t.Errorf("reply = %q", r.Text)
	}
	if got, _ := f.stores.Templates.Builtin(models.ShiftMorning); got.Template != "{shift_type} in {room} at {start_time}, {room}" {
		t.Errorf("stored = %q", got.Template)
	}

	f.press(1, "tpl:add")
	f.send(1, "Ward")
	r = f.send(1, "{date} {day_name}")
	if strings.Contains(r.Text, "Not a known variable") {
		t.Errorf("known variables flagged: %q", r.Text)
	}
}
