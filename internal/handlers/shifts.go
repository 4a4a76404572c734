package handlers

import (
	"context"
	"fmt"

	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
	"shifts-bot/internal/prefs"
)

const nsShifts = "shifts:"

// ShiftsEditor edits shift windows. Start and end are staged in the session
// and only reach the store on save.
type ShiftsEditor struct {
	base
	Store *prefs.ShiftStore
}

func NewShiftsEditor(catalog *menus.Catalog, store *prefs.ShiftStore) *ShiftsEditor {
	return &ShiftsEditor{base: base{catalog}, Store: store}
}

func (e *ShiftsEditor) Name() string { return models.EditorShifts }

func (e *ShiftsEditor) CanHandle(data string) bool {
	return hasNamespace(data, nsShifts)
}

func (e *ShiftsEditor) HandleCallback(_ context.Context, s *models.Session, data string) (Reply, error) {
	action, arg := split(data, nsShifts)
	switch action {
	case "menu":
		return e.list(s), nil
	case "reset":
		s.Pending = map[models.ShiftID]models.PendingShift{}
		err := e.Store.Reset()
		return e.notice(e.text("shifts_reset", nil), "shifts:menu"), err
	}

	w, ok := e.Store.Window(models.ShiftID(arg))
	if !ok {
		return e.unknown(data), nil
	}
	switch action {
	case "open":
		return e.show(s, w), nil
	case "start":
		s.Await(models.AwaitStartTime{Shift: w.ID})
		return e.ask(s, w, true, ""), nil
	case "end":
		s.Await(models.AwaitEndTime{Shift: w.ID})
		return e.ask(s, w, false, ""), nil
	case "save":
		return e.save(s, w)
	case "cancel":
		s.Discard(w.ID)
		return e.show(s, w), nil
	}
	return e.unknown(data), nil
}

func (e *ShiftsEditor) HandleText(_ context.Context, s *models.Session, a models.Awaiting, text string) (Reply, error) {
	switch a := a.(type) {
	case models.AwaitStartTime:
		return e.receive(s, a, a.Shift, text, true)
	case models.AwaitEndTime:
		return e.receive(s, a, a.Shift, text, false)
	}
	return Reply{}, fmt.Errorf("shifts editor cannot take %s", a.Token())
}

func (e *ShiftsEditor) receive(s *models.Session, a models.Awaiting, id models.ShiftID, text string, start bool) (Reply, error) {
	w, ok := e.Store.Window(id)
	if !ok {
		return Reply{}, fmt.Errorf("unknown shift %q", id)
	}
	if !models.ValidateTime(text) {
		s.Await(a)
		return e.ask(s, w, start, e.text("bad_time", menus.Vars{"input": text})), nil
	}

	next := staged(w, s.Pending[id])
	if start {
		next.Start = text
	} else {
		next.End = text
	}
	if next.Start == next.End {
		s.Await(a)
		return e.ask(s, w, start, e.text("same_bounds", menus.Vars{"time": text})), nil
	}

	if start {
		s.Stage(id, text, "")
	} else {
		s.Stage(id, "", text)
	}
	return e.show(s, w), nil
}

func (e *ShiftsEditor) save(s *models.Session, w models.ShiftWindow) (Reply, error) {
	p, ok := s.Pending[w.ID]
	back := nsShifts + "open:" + string(w.ID)
	if !ok || (p.Start == "" && p.End == "") {
		return e.notice(e.text("no_changes", menus.Vars{"name": w.Name}), back), nil
	}

	err := e.Store.UpdateShift(w.ID, prefs.WindowPatch{Start: p.Start, End: p.End})
	if verr, ok := validation(err); ok {
		return e.notice("⚠️ "+verr.Error(), back), nil
	}
	s.Discard(w.ID)
	saved, _ := e.Store.Window(w.ID)
	msg := e.text("shift_saved", menus.Vars{"name": saved.Name, "start": saved.Start, "end": saved.End})
	return e.notice(msg, "shifts:menu"), err
}

func (e *ShiftsEditor) list(s *models.Session) Reply {
	var rows [][]menus.Button
	for _, w := range e.Store.Get() {
		label := fmt.Sprintf("%s %s %s-%s", w.Emoji, w.Name, w.Start, w.End)
		if _, pending := s.Pending[w.ID]; pending {
			label += " ✏️"
		}
		rows = append(rows, menus.Row(menus.Btn(label, nsShifts+"open:"+string(w.ID))))
	}
	return e.render("shifts", menus.Vars{"windows": e.Store.Display()}, rows...)
}

// show renders a window with any staged values in place of the stored ones.
func (e *ShiftsEditor) show(s *models.Session, w models.ShiftWindow) Reply {
	p, pending := s.Pending[w.ID]
	next := staged(w, p)
	vars := menus.Vars{
		"id":       string(w.ID),
		"emoji":    w.Emoji,
		"name":     w.Name,
		"start":    next.Start,
		"end":      next.End,
		"duration": formatDuration(next.Duration()),
		"pending":  "",
	}
	if p.Start != "" {
		vars["start"] += fmt.Sprintf(" (was %s)", w.Start)
	}
	if p.End != "" {
		vars["end"] += fmt.Sprintf(" (was %s)", w.End)
	}
	if pending {
		vars["pending"] = e.text("pending", nil)
	}
	return e.render("shift", vars)
}

func (e *ShiftsEditor) ask(s *models.Session, w models.ShiftWindow, start bool, errText string) Reply {
	next := staged(w, s.Pending[w.ID])
	name, current := "prompt_end", next.End
	if start {
		name, current = "prompt_start", next.Start
	}
	prompt := e.text(name, menus.Vars{"name": w.Name, "current": current})
	return e.prompt(errText, prompt, nsShifts+"open:"+string(w.ID))
}

func staged(w models.ShiftWindow, p models.PendingShift) models.ShiftWindow {
	if p.Start != "" {
		w.Start = p.Start
	}
	if p.End != "" {
		w.End = p.End
	}
	return w
}
