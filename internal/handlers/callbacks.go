package handlers

import (
	"context"

	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
)

// HandleCallback offers data to the editors in probe order.
//
// Any button press clears the waiting-for slot, so a prompt never outlives
// the screen that asked it: text typed after pressing Cancel, Back or a
// menu button reaches the fallback instead of a stale editor. Editors whose
// button opens a prompt re-arm the slot themselves.
func (h *Handler) HandleCallback(ctx context.Context, s *models.Session, data string) (Reply, error) {
	s.TakeWaiting()

	for _, ed := range h.editors {
		if ed.CanHandle(data) {
			h.Log.Debug("callback claimed", "editor", ed.Name(), "data", data)
			return ed.HandleCallback(ctx, s, data)
		}
	}
	h.Log.Info("unclaimed callback", "chat_id", s.ChatID, "data", data)
	return screen(h.Menus.Render("unknown", menus.Vars{"data": data})), nil
}
