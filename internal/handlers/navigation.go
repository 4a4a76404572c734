package handlers

import (
	"context"

	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
)

const nsMenu = "menu:"

// NavigationEditor moves between top-level menus. Leaving for a top-level
// menu drops pending shift edits and any outstanding prompt.
type NavigationEditor struct {
	base
	Stores Stores
}

func NewNavigationEditor(catalog *menus.Catalog, stores Stores) *NavigationEditor {
	return &NavigationEditor{base: base{catalog}, Stores: stores}
}

func (e *NavigationEditor) Name() string { return "navigation" }

func (e *NavigationEditor) CanHandle(data string) bool {
	return hasNamespace(data, nsMenu)
}

func (e *NavigationEditor) HandleCallback(_ context.Context, s *models.Session, data string) (Reply, error) {
	s.Idle()
	switch data {
	case nsMenu + "main":
		return e.render("main", nil), nil
	case nsMenu + "prefs":
		return e.render("prefs", menus.Vars{"summary": e.Stores.Summary()}), nil
	case nsMenu + "availability":
		return e.render("availability", nil), nil
	case nsMenu + "docs":
		return e.render("docs", nil), nil
	case nsMenu + "help":
		return e.render("help", nil), nil
	}
	return e.unknown(data), nil
}
