package handlers

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
	"shifts-bot/internal/prefs"
)

const nsReminders = "reminders:"

// ReminderPresets are offered as one-tap lead times, in minutes.
var ReminderPresets = []int{5, 10, 15, 30, 60}

type RemindersEditor struct {
	base
	Store *prefs.ReminderStore
}

func NewRemindersEditor(catalog *menus.Catalog, store *prefs.ReminderStore) *RemindersEditor {
	return &RemindersEditor{base: base{catalog}, Store: store}
}

func (e *RemindersEditor) Name() string { return models.EditorReminders }

func (e *RemindersEditor) CanHandle(data string) bool {
	return hasNamespace(data, nsReminders)
}

func (e *RemindersEditor) HandleCallback(_ context.Context, s *models.Session, data string) (Reply, error) {
	action, arg := split(data, nsReminders)
	switch {
	case action == "menu":
		return e.menu(), nil
	case action == "toggle":
		_, err := e.Store.ToggleEnabled()
		return e.menu(), err
	case action == "sound":
		_, err := e.Store.ToggleSound()
		return e.menu(), err
	case action == "add" && arg == "":
		return e.presets(), nil
	case action == "add":
		return e.add(arg, nsReminders+"add")
	case action == "custom":
		s.Await(models.AwaitCustomReminder{})
		return e.prompt("", e.text("prompt_reminder", nil), nsReminders+"menu"), nil
	case action == "remove" && arg == "":
		return e.removable(), nil
	case action == "remove":
		return e.remove(arg)
	case action == "reset":
		err := e.Store.Reset()
		return e.notice(e.text("reminders_reset", nil), nsReminders+"menu"), err
	}
	return e.unknown(data), nil
}

func (e *RemindersEditor) HandleText(_ context.Context, s *models.Session, a models.Awaiting, text string) (Reply, error) {
	if _, ok := a.(models.AwaitCustomReminder); !ok {
		return Reply{}, fmt.Errorf("reminders editor cannot take %s", a.Token())
	}
	back := nsReminders + "menu"
	n, err := strconv.Atoi(text)
	if err != nil {
		s.Await(a)
		reason := fmt.Sprintf("%q is not a whole number of minutes.", text)
		return e.prompt(e.text("bad_reminder", menus.Vars{"reason": reason}), e.text("prompt_reminder", nil), back), nil
	}
	err = e.Store.Add(n)
	if verr, ok := validation(err); ok {
		s.Await(a)
		return e.prompt(e.text("bad_reminder", menus.Vars{"reason": verr.Error()}), e.text("prompt_reminder", nil), back), nil
	}
	return e.notice(e.text("reminder_added", menus.Vars{"minutes": strconv.Itoa(n)}), back), err
}

func (e *RemindersEditor) add(arg, back string) (Reply, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return e.unknown(nsReminders + "add:" + arg), nil
	}
	err = e.Store.Add(n)
	if verr, ok := validation(err); ok {
		return e.notice("⚠️ "+verr.Error(), back), nil
	}
	return e.notice(e.text("reminder_added", menus.Vars{"minutes": arg}), nsReminders+"menu"), err
}

func (e *RemindersEditor) remove(arg string) (Reply, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return e.unknown(nsReminders + "remove:" + arg), nil
	}
	err = e.Store.Remove(n)
	if verr, ok := validation(err); ok {
		return e.notice("⚠️ "+verr.Error(), nsReminders+"remove"), nil
	}
	return e.notice(e.text("reminder_removed", menus.Vars{"minutes": arg}), nsReminders+"menu"), err
}

func (e *RemindersEditor) menu() Reply {
	set := e.Store.Get()
	onOff := func(b bool) string {
		if b {
			return e.text("reminders_on", nil)
		}
		return e.text("reminders_off", nil)
	}
	toggle, sound := "🔔 Turn on", "🔊 Sound on"
	if set.Enabled {
		toggle = "🔕 Turn off"
	}
	if set.SoundEnabled {
		sound = "🔇 Mute"
	}
	return e.render("reminders", menus.Vars{
		"status":       onOff(set.Enabled),
		"sound":        onOff(set.SoundEnabled),
		"times":        prefs.FormatLeadTimes(set.BeforeShift),
		"toggle":       toggle,
		"toggle_sound": sound,
	})
}

func (e *RemindersEditor) presets() Reply {
	current := e.Store.Get().BeforeShift
	var buttons []menus.Button
	for _, m := range ReminderPresets {
		if slices.Contains(current, m) {
			continue
		}
		buttons = append(buttons, menus.Btn(fmt.Sprintf("%d min", m), fmt.Sprintf("%sadd:%d", nsReminders, m)))
	}
	return e.render("reminders_add", nil, menus.Grid(buttons, 3)...)
}

func (e *RemindersEditor) removable() Reply {
	var buttons []menus.Button
	for _, m := range e.Store.Get().BeforeShift {
		buttons = append(buttons, menus.Btn(fmt.Sprintf("❌ %d min", m), fmt.Sprintf("%sremove:%d", nsReminders, m)))
	}
	return e.render("reminders_remove", nil, menus.Grid(buttons, 3)...)
}
