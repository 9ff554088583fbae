package payment

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/polkiloo/flowershop/internal/domain/model"
)

const invoiceStartParameter = "flower_order"

// Sender posts prepared Telegram requests.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAdapter charges orders with Telegram invoices.
type TelegramAdapter struct {
	sender        Sender
	providerToken string
	currency      string
}

// NewTelegramAdapter constructs invoice based adapter.
func NewTelegramAdapter(sender Sender, providerToken, currency string) *TelegramAdapter {
	return &TelegramAdapter{sender: sender, providerToken: providerToken, currency: currency}
}

// Initiate sends invoice to customer chat and returns its payload.
func (a *TelegramAdapter) Initiate(ctx context.Context, order *model.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload := NewPayload(order.ID)
	invoice := tgbotapi.NewInvoice(
		order.CustomerID,
		fmt.Sprintf("Order #%d", order.ID),
		fmt.Sprintf("Delivery: %s\nAddress: %s", order.DeliveryTime, order.Address),
		payload,
		a.providerToken,
		invoiceStartParameter,
		a.currency,
		invoicePrices(order),
	)
	invoice.SuggestedTipAmounts = []int{}
	invoice.NeedName = true
	invoice.NeedPhoneNumber = true

	if _, err := a.sender.Send(invoice); err != nil {
		return "", fmt.Errorf("send invoice: %w", err)
	}
	return payload, nil
}

func invoicePrices(order *model.Order) []tgbotapi.LabeledPrice {
	prices := make([]tgbotapi.LabeledPrice, 0, len(order.Items))
	for _, item := range order.Items {
		prices = append(prices, tgbotapi.LabeledPrice{
			Label:  fmt.Sprintf("%s x%d", item.Title, item.Quantity),
			Amount: int(item.Subtotal()),
		})
	}
	return prices
}
