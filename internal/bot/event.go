package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// EventKind classifies inbound updates.
type EventKind string

const (
	KindText        EventKind = "text"
	KindCommand     EventKind = "command"
	KindCallback    EventKind = "callback"
	KindPhoto       EventKind = "photo"
	KindPreCheckout EventKind = "pre_checkout"
	KindPayment     EventKind = "payment"
)

// Event is a transport independent user action.
type Event struct {
	Kind     EventKind
	UpdateID int
	ChatID   int64
	UserID   int64

	// Text holds message text, photo caption or callback data.
	Text    string
	Command string
	Args    string

	CallbackID string
	PhotoID    string
	Payment    *PaymentEvent
}

// PaymentEvent carries provider callback data.
type PaymentEvent struct {
	QueryID  string
	Payload  string
	Currency string
	Total    int
	ChargeID string
}

// FromUpdate converts Telegram update into Event. Unsupported updates are reported as false.
func FromUpdate(update tgbotapi.Update) (Event, bool) {
	switch {
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		if q.From == nil {
			return Event{}, false
		}
		return Event{
			Kind:     KindPreCheckout,
			UpdateID: update.UpdateID,
			ChatID:   q.From.ID,
			UserID:   q.From.ID,
			Payment: &PaymentEvent{
				QueryID:  q.ID,
				Payload:  q.InvoicePayload,
				Currency: q.Currency,
				Total:    q.TotalAmount,
			},
		}, true
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil {
			return Event{}, false
		}
		ev := Event{
			Kind:       KindCallback,
			UpdateID:   update.UpdateID,
			ChatID:     q.From.ID,
			UserID:     q.From.ID,
			Text:       q.Data,
			CallbackID: q.ID,
		}
		if q.Message != nil && q.Message.Chat != nil {
			ev.ChatID = q.Message.Chat.ID
		}
		return ev, true
	case update.Message != nil:
		return fromMessage(update.UpdateID, update.Message)
	}
	return Event{}, false
}

func fromMessage(updateID int, m *tgbotapi.Message) (Event, bool) {
	if m.Chat == nil {
		return Event{}, false
	}
	ev := Event{UpdateID: updateID, ChatID: m.Chat.ID, UserID: m.Chat.ID}
	if m.From != nil {
		ev.UserID = m.From.ID
	}

	switch {
	case m.SuccessfulPayment != nil:
		p := m.SuccessfulPayment
		ev.Kind = KindPayment
		ev.Payment = &PaymentEvent{
			Payload:  p.InvoicePayload,
			Currency: p.Currency,
			Total:    p.TotalAmount,
			ChargeID: p.TelegramPaymentChargeID,
		}
	case len(m.Photo) > 0:
		ev.Kind = KindPhoto
		ev.PhotoID = m.Photo[len(m.Photo)-1].FileID
		ev.Text = strings.TrimSpace(m.Caption)
		ev.Command, ev.Args = splitCommand(ev.Text)
	case m.IsCommand():
		ev.Kind = KindCommand
		ev.Text = m.Text
		ev.Command = m.Command()
		ev.Args = strings.TrimSpace(m.CommandArguments())
	case m.Text != "":
		ev.Kind = KindText
		ev.Text = strings.TrimSpace(m.Text)
	default:
		return Event{}, false
	}
	return ev, true
}

// splitCommand parses "/cmd@bot args" found outside of message entities, e.g. photo captions.
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, args, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return head, strings.TrimSpace(args)
}
