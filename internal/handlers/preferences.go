package handlers

import (
	"context"
	"errors"

	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
)

const nsPrefs = "prefs:"

// PreferencesEditor shows per-store summaries and resets everything.
type PreferencesEditor struct {
	base
	Stores Stores
}

func NewPreferencesEditor(catalog *menus.Catalog, stores Stores) *PreferencesEditor {
	return &PreferencesEditor{base: base{catalog}, Stores: stores}
}

func (e *PreferencesEditor) Name() string { return "preferences" }

func (e *PreferencesEditor) CanHandle(data string) bool {
	return hasNamespace(data, nsPrefs)
}

func (e *PreferencesEditor) HandleCallback(_ context.Context, s *models.Session, data string) (Reply, error) {
	section := func(title, summary, edit string) Reply {
		return e.render("prefs_section", menus.Vars{"section": title, "summary": summary, "edit": edit})
	}
	switch data {
	case nsPrefs + "shifts":
		return section("Shift times", e.Stores.Shifts.Display(), nsShifts+"menu"), nil
	case nsPrefs + "reminders":
		return section("Reminders", e.Stores.Reminders.Display(), nsReminders+"menu"), nil
	case nsPrefs + "timezone":
		return section("Timezone", e.Stores.Timezone.Display(), nsTimezone+"menu"), nil
	case nsPrefs + "templates":
		return section("Templates", e.Stores.Templates.Display(), nsTemplates+"menu"), nil
	case nsPrefs + "reset":
		return e.render("prefs_reset", nil), nil
	case nsPrefs + "reset:confirm":
		s.Idle()
		err := errors.Join(
			e.Stores.Shifts.Reset(),
			e.Stores.Reminders.Reset(),
			e.Stores.Timezone.Reset(),
			e.Stores.Templates.Reset(),
		)
		return e.notice(e.text("prefs_reset", nil), "menu:prefs"), err
	}
	return e.unknown(data), nil
}
