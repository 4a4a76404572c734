package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
	"shifts-bot/internal/prefs"
)

const nsTemplates = "tpl:"

var variableHelp = map[string]string{
	"start_time": "shift start, e.g. 08:00",
	"end_time":   "shift end, e.g. 16:00",
	"date":       "date of the shift, e.g. 2025-03-10",
	"day_name":   "weekday, e.g. Monday",
	"shift_type": "shift name, e.g. Morning",
	"duration":   "length, e.g. 8h",
	"location":   "where the shift takes place",
	"notes":      "free notes",
}

type TemplatesEditor struct {
	base
	Store  *prefs.TemplateStore
	Shifts *prefs.ShiftStore
	Now    func() time.Time
}

func NewTemplatesEditor(catalog *menus.Catalog, store *prefs.TemplateStore, shifts *prefs.ShiftStore) *TemplatesEditor {
	return &TemplatesEditor{base: base{catalog}, Store: store, Shifts: shifts, Now: time.Now}
}

func (e *TemplatesEditor) Name() string { return models.EditorTemplates }

func (e *TemplatesEditor) CanHandle(data string) bool {
	return hasNamespace(data, nsTemplates)
}

func (e *TemplatesEditor) HandleCallback(_ context.Context, s *models.Session, data string) (Reply, error) {
	action, arg := split(data, nsTemplates)
	switch {
	case action == "menu":
		return e.menu(), nil
	case action == "open":
		return e.builtin(models.ShiftID(arg), data)
	case action == "edit":
		id := models.ShiftID(arg)
		t, ok := e.Store.Builtin(id)
		if !ok {
			return e.unknown(data), nil
		}
		s.Await(models.AwaitTemplateBody{Shift: id})
		return e.prompt("", e.text("prompt_template", menus.Vars{"name": t.Name, "vars": variableList()}), nsTemplates+"open:"+arg), nil
	case action == "custom":
		c, ok := e.Store.Custom(arg)
		if !ok {
			return e.unknown(data), nil
		}
		return e.render("template_custom", menus.Vars{
			"id": c.ID, "name": c.Name, "body": c.Template, "preview": prefs.Format(c.Template, e.sample(models.ShiftMorning)),
		}), nil
	case action == "add":
		s.Await(models.AwaitCustomTemplateName{})
		return e.prompt("", e.text("prompt_custom_name", nil), nsTemplates+"menu"), nil
	case action == "del" && arg == "":
		return e.deletable(), nil
	case action == "del":
		c, ok := e.Store.Custom(arg)
		if !ok {
			return e.unknown(data), nil
		}
		err := e.Store.RemoveCustom(arg)
		return e.notice(e.text("template_deleted", menus.Vars{"name": c.Name}), nsTemplates+"menu"), err
	case action == "vars":
		return e.render("template_vars", menus.Vars{"vars": variableHelpText()}), nil
	case action == "reset":
		err := e.Store.Reset()
		return e.notice(e.text("templates_reset", nil), nsTemplates+"menu"), err
	}
	return e.unknown(data), nil
}

func (e *TemplatesEditor) HandleText(_ context.Context, s *models.Session, a models.Awaiting, text string) (Reply, error) {
	bad := func(err *prefs.ValidationError, prompt, back string) (Reply, error) {
		s.Await(a)
		return e.prompt(e.text("bad_template", menus.Vars{"reason": err.Error()}), prompt, back), nil
	}

	switch a := a.(type) {
	case models.AwaitTemplateBody:
		t, ok := e.Store.Builtin(a.Shift)
		if !ok {
			return Reply{}, fmt.Errorf("no built-in template for %q", a.Shift)
		}
		back := nsTemplates + "open:" + string(a.Shift)
		err := e.Store.SetBuiltin(a.Shift, text)
		if verr, ok := validation(err); ok {
			return bad(verr, e.text("prompt_template", menus.Vars{"name": t.Name, "vars": variableList()}), back)
		}
		return e.notice(e.saved(t.Name, text), back), err

	case models.AwaitCustomTemplateName:
		if verr, ok := validation(prefs.ValidateTemplateName(text)); ok {
			return bad(verr, e.text("prompt_custom_name", nil), nsTemplates+"menu")
		}
		s.Await(models.AwaitCustomTemplateBody{Name: text})
		return e.prompt("", e.text("prompt_custom_body", menus.Vars{"name": text, "vars": variableList()}), nsTemplates+"menu"), nil

	case models.AwaitCustomTemplateBody:
		c, err := e.Store.AddCustom(a.Name, text)
		if verr, ok := validation(err); ok {
			return bad(verr, e.text("prompt_custom_body", menus.Vars{"name": a.Name, "vars": variableList()}), nsTemplates+"menu")
		}
		return e.notice(e.saved(c.Name, text), nsTemplates+"menu"), err
	}
	return Reply{}, fmt.Errorf("templates editor cannot take %s", a.Token())
}

func (e *TemplatesEditor) menu() Reply {
	set := e.Store.Get()
	var rows [][]menus.Button
	for _, id := range models.ShiftOrder {
		rows = append(rows, menus.Row(menus.Btn("📝 "+set.Builtin[id].Name, nsTemplates+"open:"+string(id))))
	}
	for _, c := range set.Custom {
		rows = append(rows, menus.Row(menus.Btn("📄 "+c.Name, nsTemplates+"custom:"+c.ID)))
	}
	return e.render("templates", menus.Vars{"summary": e.Store.Display()}, rows...)
}

func (e *TemplatesEditor) builtin(id models.ShiftID, data string) (Reply, error) {
	t, ok := e.Store.Builtin(id)
	if !ok {
		return e.unknown(data), nil
	}
	return e.render("template", menus.Vars{
		"id":      string(id),
		"name":    t.Name,
		"body":    t.Template,
		"preview": prefs.Format(t.Template, e.sample(id)),
	}), nil
}

func (e *TemplatesEditor) deletable() Reply {
	var rows [][]menus.Button
	for _, c := range e.Store.Get().Custom {
		rows = append(rows, menus.Row(menus.Btn("🗑 "+c.Name, nsTemplates+"del:"+c.ID)))
	}
	note := ""
	if len(rows) == 0 {
		note = e.text("no_custom", nil)
	}
	return e.render("templates_delete", menus.Vars{"note": note}, rows...)
}

// sample fills every variable for a preview of the next occurrence of id.
func (e *TemplatesEditor) sample(id models.ShiftID) map[string]string {
	w, ok := e.Shifts.Window(id)
	if !ok {
		return nil
	}
	return ShiftVariables(w, e.Now(), "Main site", "Bring badge")
}

// ShiftVariables are the template values for window w on day.
func ShiftVariables(w models.ShiftWindow, day time.Time, location, notes string) map[string]string {
	return map[string]string{
		"start_time": w.Start,
		"end_time":   w.End,
		"date":       day.Format("2006-01-02"),
		"day_name":   day.Weekday().String(),
		"shift_type": w.Name,
		"duration":   formatDuration(w.Duration()),
		"location":   location,
		"notes":      notes,
	}
}

// saved confirms a stored pattern and flags placeholders that no shift
// fills in, since those render as {?name}.
func (e *TemplatesEditor) saved(name, pattern string) string {
	msg := e.text("template_saved", menus.Vars{"name": name})
	if unknown := unknownVariables(pattern); len(unknown) > 0 {
		msg += e.text("unknown_vars", menus.Vars{"names": strings.Join(unknown, ", ")})
	}
	return msg
}

func unknownVariables(pattern string) []string {
	var unknown []string
	for _, name := range prefs.Placeholders(pattern) {
		if !slices.Contains(models.TemplateVariables, name) {
			unknown = append(unknown, "{"+name+"}")
		}
	}
	return unknown
}

func variableList() string {
	names := make([]string, 0, len(models.TemplateVariables))
	for _, v := range models.TemplateVariables {
		names = append(names, "{"+v+"}")
	}
	return strings.Join(names, " ")
}

func variableHelpText() string {
	lines := make([]string, 0, len(models.TemplateVariables))
	for _, v := range models.TemplateVariables {
		lines = append(lines, fmt.Sprintf("{%s}: %s", v, variableHelp[v]))
	}
	return strings.Join(lines, "\n")
}
