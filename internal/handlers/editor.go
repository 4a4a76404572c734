package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"shifts-bot/internal/menus"
	"shifts-bot/internal/prefs"
)

// Stores are the process-wide preference stores shared by the editors.
type Stores struct {
	Shifts    *prefs.ShiftStore
	Reminders *prefs.ReminderStore
	Timezone  *prefs.TimezoneStore
	Templates *prefs.TemplateStore
}

// Summary is one line per store.
func (s Stores) Summary() string {
	return strings.Join([]string{
		s.Shifts.Display(),
		s.Reminders.Display(),
		s.Timezone.Display(),
		s.Templates.Display(),
	}, "\n\n")
}

// base is the rendering shared by all editors.
type base struct {
	menus *menus.Catalog
}

func (b base) render(name string, vars menus.Vars, rows ...[]menus.Button) Reply {
	return screen(b.menus.Render(name, vars, rows...))
}

func (b base) text(name string, vars menus.Vars) string {
	return b.menus.Text(name, vars)
}

// notice reports an outcome with a way back.
func (b base) notice(message, back string) Reply {
	return b.render("notice", menus.Vars{"message": message, "warning": "", "back": back})
}

// prompt asks for free text. errText, when set, explains why the previous
// answer was rejected.
func (b base) prompt(errText, prompt, back string) Reply {
	return b.render("prompt", menus.Vars{"error": errText, "prompt": prompt, "back": back})
}

func (b base) unknown(data string) Reply {
	return b.render("unknown", menus.Vars{"data": data})
}

// split parses "ns:action:arg". arg may itself contain colons.
func split(data, ns string) (action, arg string) {
	rest := strings.TrimPrefix(data, ns)
	action, arg, _ = strings.Cut(rest, ":")
	return action, arg
}

func validation(err error) (*prefs.ValidationError, bool) {
	var verr *prefs.ValidationError
	return verr, errors.As(err, &verr)
}

func formatDuration(d time.Duration) string {
	h, m := int(d.Hours()), int(d.Minutes())%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}

// hasNamespace matches a colon-terminated namespace as an exact prefix.
func hasNamespace(data, ns string) bool {
	return strings.HasPrefix(data, ns)
}
