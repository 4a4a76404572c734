package handlers

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"runtime/debug"
	"time"

	"shifts-bot/internal/calendar"
	"shifts-bot/internal/menus"
	"shifts-bot/internal/models"
	"shifts-bot/internal/prefs"
)

type Kind int

const (
	Command Kind = iota
	Callback
	Text
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case Callback:
		return "callback"
	case Text:
		return "text"
	}
	return "unknown"
}

// Event is one inbound update from a chat.
type Event struct {
	ChatID int64
	Kind   Kind
	Data   string // command name, callback data or message text
}

// Reply is what the chat should show next. A reply without buttons is plain
// text.
type Reply struct {
	Text    string
	Buttons [][]menus.Button
}

func screen(s menus.Screen) Reply {
	return Reply{Text: s.Title, Buttons: s.Buttons}
}

// Editor owns one callback namespace.
type Editor interface {
	Name() string
	CanHandle(data string) bool
	HandleCallback(ctx context.Context, s *models.Session, data string) (Reply, error)
}

// TextEditor also receives the free text its prompts asked for.
type TextEditor interface {
	Editor
	HandleText(ctx context.Context, s *models.Session, a models.Awaiting, text string) (Reply, error)
}

// SessionStore keeps per-chat conversation state between events.
type SessionStore interface {
	Load(ctx context.Context, chatID int64) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
}

// Handler routes events to editors. Callbacks go to the first editor, in
// order, whose CanHandle accepts the data; text goes to the editor that
// armed the session's waiting-for slot.
type Handler struct {
	Sessions SessionStore
	Menus    *menus.Catalog
	Log      *slog.Logger
	Now      func() time.Time

	editors []Editor
}

func New(sessions SessionStore, catalog *menus.Catalog, log *slog.Logger, editors ...Editor) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Sessions: sessions, Menus: catalog, Log: log, Now: time.Now, editors: editors}
}

// Editors returns the probe order.
func (h *Handler) Editors() []Editor {
	return append([]Editor(nil), h.editors...)
}

// Handle processes one event. It never panics: failures become a screen
// pointing back to the main menu.
func (h *Handler) Handle(ctx context.Context, ev Event) (reply Reply) {
	log := h.Log.With("chat_id", ev.ChatID, "kind", ev.Kind.String())

	s, err := h.Sessions.Load(ctx, ev.ChatID)
	if err != nil {
		log.Error("load session", "err", err)
		s = models.NewSession(ev.ChatID)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("handler panic", "data", ev.Data, "panic", p, "stack", string(debug.Stack()))
			s.Idle()
			reply = screen(h.Menus.Render("failure", nil))
		}
		s.UpdatedAt = h.Now()
		if err := h.Sessions.Save(ctx, s); err != nil {
			log.Error("save session", "err", err)
		}
	}()

	switch ev.Kind {
	case Command:
		reply, err = h.HandleCommand(ctx, s, ev.Data)
	case Callback:
		reply, err = h.HandleCallback(ctx, s, ev.Data)
	case Text:
		reply, err = h.HandleText(ctx, s, ev.Data)
	default:
		reply = screen(h.Menus.Render("fallback", nil))
	}
	return h.finish(log, ev, reply, err)
}

// finish turns an editor error into what the user sees.
func (h *Handler) finish(log *slog.Logger, ev Event, reply Reply, err error) Reply {
	if err == nil {
		return reply
	}

	var perr *prefs.PersistenceError
	var terr *calendar.TransportError
	switch {
	case errors.As(err, &perr):
		log.Warn("preferences not persisted", "path", perr.Path, "err", perr.Err)
		reply.Text += html.EscapeString(h.Menus.Text("persist_warning", nil))
		return reply

	case errors.As(err, &terr):
		log.Warn("calendar call failed", "op", terr.Op, "retryable", terr.Retryable(), "err", terr.Err)
		retry := "menu:main"
		if ev.Kind == Callback {
			retry = ev.Data
		}
		if terr.Retryable() {
			return screen(h.Menus.Render("retry", menus.Vars{"retry": retry}))
		}
		return screen(h.Menus.Render("calendar_error", menus.Vars{"retry": retry, "detail": terr.Err.Error()}))
	}

	log.Error("handler failed", "data", ev.Data, "err", err)
	return screen(h.Menus.Render("failure", nil))
}
