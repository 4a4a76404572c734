package messages

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shifts-bot/internal/handlers"
	"shifts-bot/internal/menus"
)

// Sender is the part of *tgbotapi.BotAPI used to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Inbound is an update reduced to the router event plus what is needed to
// answer it in place.
type Inbound struct {
	handlers.Event
	CallbackID string
	MessageID  int // message that carried the pressed button
}

// Update converts a Telegram update. Updates the bot does not act on are
// reported with ok == false.
func Update(u tgbotapi.Update) (in Inbound, ok bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		in = Inbound{
			Event:      handlers.Event{Kind: handlers.Callback, Data: cq.Data},
			CallbackID: cq.ID,
		}
		switch {
		case cq.Message != nil:
			in.ChatID = cq.Message.Chat.ID
			in.MessageID = cq.Message.MessageID
		case cq.From != nil:
			in.ChatID = cq.From.ID
		default:
			return Inbound{}, false
		}
		return in, true

	case u.Message != nil && u.Message.Chat != nil:
		m := u.Message
		in.ChatID = m.Chat.ID
		if m.IsCommand() {
			in.Kind, in.Data = handlers.Command, m.Command()
		} else {
			in.Kind, in.Data = handlers.Text, m.Text
		}
		return in, true
	}
	return Inbound{}, false
}

// Deliver shows r in the chat. A pressed button is always answered and its
// message edited in place; anything else gets a new message.
func Deliver(s Sender, in Inbound, r handlers.Reply) error {
	if in.Kind != handlers.Callback {
		_, err := s.Send(newMessage(in.ChatID, r))
		return err
	}

	// Stops the client's loading spinner even when the edit fails.
	_, answerErr := s.Request(tgbotapi.NewCallback(in.CallbackID, ""))

	if in.MessageID == 0 {
		_, err := s.Send(newMessage(in.ChatID, r))
		return err
	}
	edit := tgbotapi.NewEditMessageText(in.ChatID, in.MessageID, r.Text)
	edit.ParseMode = tgbotapi.ModeHTML
	if kb, ok := keyboard(r.Buttons); ok {
		edit.ReplyMarkup = &kb
	}
	_, err := s.Request(edit)
	switch {
	case err == nil:
		return answerErr
	case strings.Contains(err.Error(), "message is not modified"):
		return answerErr
	}
	// Old messages can no longer be edited.
	_, err = s.Send(newMessage(in.ChatID, r))
	return err
}

func newMessage(chatID int64, r handlers.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb, ok := keyboard(r.Buttons); ok {
		msg.ReplyMarkup = kb
	}
	return msg
}

func keyboard(rows [][]menus.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...), true
}
