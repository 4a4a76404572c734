package messages

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shifts-bot/internal/handlers"
	"shifts-bot/internal/menus"
)

type fakeSender struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	editErr   error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 100}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.editErr != nil {
		return nil, f.editErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func command(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 5},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name string
		upd  tgbotapi.Update
		want Inbound
		ok   bool
	}{
		{
			name: "command",
			upd:  tgbotapi.Update{Message: command("/start")},
			want: Inbound{Event: handlers.Event{ChatID: 5, Kind: handlers.Command, Data: "start"}},
			ok:   true,
		},
		{
			name: "text",
			upd:  tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}, Text: "08:30"}},
			want: Inbound{Event: handlers.Event{ChatID: 5, Kind: handlers.Text, Data: "08:30"}},
			ok:   true,
		},
		{
			name: "button",
			upd: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb1",
				Data:    "shifts:open:morning",
				Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: 5}},
			}},
			want: Inbound{
				Event:      handlers.Event{ChatID: 5, Kind: handlers.Callback, Data: "shifts:open:morning"},
				CallbackID: "cb1",
				MessageID:  77,
			},
			ok: true,
		},
		{
			name: "button without message",
			upd: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID: "cb2", Data: "menu:main", From: &tgbotapi.User{ID: 9},
			}},
			want: Inbound{Event: handlers.Event{ChatID: 9, Kind: handlers.Callback, Data: "menu:main"}, CallbackID: "cb2"},
			ok:   true,
		},
		{name: "other", upd: tgbotapi.Update{}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Update(tt.upd)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Update() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

var reply = handlers.Reply{
	Text:    "<b>Main</b>",
	Buttons: [][]menus.Button{{{Label: "Prefs", Data: "menu:prefs"}, {Label: "Help", Data: "menu:help"}}},
}

func TestDeliverMessage(t *testing.T) {
	s := &fakeSender{}
	in := Inbound{Event: handlers.Event{ChatID: 5, Kind: handlers.Command, Data: "start"}}
	if err := Deliver(s, in, reply); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 1 || len(s.requested) != 0 {
		t.Fatalf("sent=%d requested=%d", len(s.sent), len(s.requested))
	}
	msg := s.sent[0].(tgbotapi.MessageConfig)
	if msg.ParseMode != tgbotapi.ModeHTML || msg.Text != reply.Text {
		t.Errorf("message = %+v", msg)
	}
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || *kb.InlineKeyboard[0][1].CallbackData != "menu:help" {
		t.Errorf("keyboard = %+v", msg.ReplyMarkup)
	}
}

func TestDeliverCallbackEdits(t *testing.T) {
	s := &fakeSender{}
	in := Inbound{Event: handlers.Event{ChatID: 5, Kind: handlers.Callback}, CallbackID: "cb1", MessageID: 77}
	if err := Deliver(s, in, reply); err != nil {
		t.Fatal(err)
	}
	if len(s.requested) != 2 || len(s.sent) != 0 {
		t.Fatalf("requested=%d sent=%d", len(s.requested), len(s.sent))
	}
	if cb := s.requested[0].(tgbotapi.CallbackConfig); cb.CallbackQueryID != "cb1" {
		t.Errorf("answered %q", cb.CallbackQueryID)
	}
	edit := s.requested[1].(tgbotapi.EditMessageTextConfig)
	if edit.MessageID != 77 || edit.ReplyMarkup == nil || edit.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("edit = %+v", edit)
	}
}

func TestDeliverEditFallback(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantSent int
	}{
		{"not modified", errors.New("Bad Request: message is not modified"), 0},
		{"too old", errors.New("Bad Request: message can't be edited"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSender{editErr: tt.err}
			in := Inbound{Event: handlers.Event{ChatID: 5, Kind: handlers.Callback}, CallbackID: "cb1", MessageID: 77}
			if err := Deliver(s, in, reply); err != nil {
				t.Fatal(err)
			}
			if len(s.sent) != tt.wantSent {
				t.Errorf("sent = %d, want %d", len(s.sent), tt.wantSent)
			}
		})
	}
}
