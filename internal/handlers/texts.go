package handlers

import (
	"context"
	"strings"

	"shifts-bot/internal/models"
)

func (h *Handler) HandleText(ctx context.Context, s *models.Session, text string) (Reply, error) {
	a := s.TakeWaiting()
	if a == nil {
		return screen(h.Menus.Render("fallback", nil)), nil
	}

	for _, ed := range h.editors {
		te, ok := ed.(TextEditor)
		if ok && ed.Name() == a.Editor() {
			h.Log.Debug("text claimed", "editor", ed.Name(), "token", a.Token())
			return te.HandleText(ctx, s, a, strings.TrimSpace(text))
		}
	}
	h.Log.Warn("no editor for waiting token", "chat_id", s.ChatID, "token", a.Token())
	return screen(h.Menus.Render("fallback", nil)), nil
}
