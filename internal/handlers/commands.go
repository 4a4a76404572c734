package handlers

import (
	"context"

	"shifts-bot/internal/models"
)

func (h *Handler) HandleCommand(_ context.Context, s *models.Session, cmd string) (Reply, error) {
	switch cmd {
	case "start", "menu", "cancel":
		s.Idle()
		return screen(h.Menus.Render("main", nil)), nil
	case "help":
		return screen(h.Menus.Render("help", nil)), nil
	}
	return screen(h.Menus.Render("fallback", nil)), nil
}
