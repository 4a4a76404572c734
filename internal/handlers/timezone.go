package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
	"shifts-bot/internal/prefs"
)

const (
	nsTimezone   = "tz:"
	zonesPerPage = 8
)

type TimezoneEditor struct {
	base
	Store *prefs.TimezoneStore
	Zones []string
	Now   func() time.Time
}

func NewTimezoneEditor(catalog *menus.Catalog, store *prefs.TimezoneStore, zones []string) *TimezoneEditor {
	return &TimezoneEditor{base: base{catalog}, Store: store, Zones: zones, Now: time.Now}
}

func (e *TimezoneEditor) Name() string { return models.EditorTimezone }

func (e *TimezoneEditor) CanHandle(data string) bool {
	return hasNamespace(data, nsTimezone)
}

func (e *TimezoneEditor) HandleCallback(_ context.Context, s *models.Session, data string) (Reply, error) {
	action, arg := split(data, nsTimezone)
	switch action {
	case "menu":
		return e.menu(), nil
	case "common":
		return e.common(), nil
	case "all":
		page, err := strconv.Atoi(arg)
		if err != nil {
			page = s.TimezonePage
		}
		return e.page(s, page), nil
	case "set":
		err := e.Store.Set(arg)
		if _, ok := validation(err); ok {
			return e.notice(e.text("bad_timezone", menus.Vars{"input": arg}), nsTimezone+"menu"), nil
		}
		return e.notice(e.text("timezone_set", menus.Vars{"zone": prefs.Label(arg)}), nsTimezone+"menu"), err
	case "type":
		s.Await(models.AwaitTimezoneName{})
		return e.prompt("", e.text("prompt_timezone", nil), nsTimezone+"menu"), nil
	case "reset":
		err := e.Store.Reset()
		return e.notice(e.text("timezone_reset", menus.Vars{"zone": prefs.Label(e.Store.Get())}), nsTimezone+"menu"), err
	}
	return e.unknown(data), nil
}

func (e *TimezoneEditor) HandleText(_ context.Context, s *models.Session, a models.Awaiting, text string) (Reply, error) {
	if _, ok := a.(models.AwaitTimezoneName); !ok {
		return Reply{}, fmt.Errorf("timezone editor cannot take %s", a.Token())
	}
	err := e.Store.Set(text)
	if _, ok := validation(err); ok {
		s.Await(a)
		return e.prompt(e.text("bad_timezone", menus.Vars{"input": text}), e.text("prompt_timezone", nil), nsTimezone+"menu"), nil
	}
	return e.notice(e.text("timezone_set", menus.Vars{"zone": prefs.Label(text)}), nsTimezone+"menu"), err
}

func (e *TimezoneEditor) menu() Reply {
	return e.render("timezone", menus.Vars{
		"zone": prefs.Label(e.Store.Get()),
		"now":  e.Now().In(e.Store.Location()).Format("Mon 02 Jan 15:04"),
	})
}

func (e *TimezoneEditor) common() Reply {
	current := e.Store.Get()
	var rows [][]menus.Button
	for _, c := range prefs.CommonTimezones {
		label := c.Label
		if c.Zone == current {
			label = "✅ " + label
		}
		rows = append(rows, menus.Row(menus.Btn(label, nsTimezone+"set:"+c.Zone)))
	}
	return e.render("timezone_common", nil, rows...)
}

// page shows one page of all zones and remembers it in the session.
func (e *TimezoneEditor) page(s *models.Session, page int) Reply {
	pages := max(1, (len(e.Zones)+zonesPerPage-1)/zonesPerPage)
	page = min(max(page, 0), pages-1)
	s.TimezonePage = page

	from := page * zonesPerPage
	to := min(from+zonesPerPage, len(e.Zones))
	var buttons []menus.Button
	for _, z := range e.Zones[from:to] {
		buttons = append(buttons, menus.Btn(z, nsTimezone+"set:"+z))
	}
	rows := menus.Grid(buttons, 2)

	var nav []menus.Button
	if page > 0 {
		nav = append(nav, menus.Btn("⬅️ Previous", fmt.Sprintf("%sall:%d", nsTimezone, page-1)))
	}
	if page < pages-1 {
		nav = append(nav, menus.Btn("Next ➡️", fmt.Sprintf("%sall:%d", nsTimezone, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return e.render("timezone_all", menus.Vars{
		"page":  strconv.Itoa(page + 1),
		"pages": strconv.Itoa(pages),
	}, rows...)
}
