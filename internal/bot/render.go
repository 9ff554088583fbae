package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/usecase"
)

const (
	menuCatalog = "Catalog"
	menuCart    = "Cart"
	menuOrders  = "My orders"
	menuAdmin   = "Admin"

	maxListed  = 10
	maxNumbers = 30
	numbersRow = 5
)

// callback data
const (
	cbSize     = "size:"
	cbPick     = "pick:"
	cbRemove   = "remove:"
	cbCatalog  = "catalog"
	cbCart     = "cart"
	cbCheckout = "checkout"
	cbConfirm  = "confirm"
	cbBack     = "back"
	cbCancel   = "cancel"
)

func mainMenu(admin bool) [][]string {
	rows := [][]string{{menuCatalog, menuCart}, {menuOrders}}
	if admin {
		rows[1] = append(rows[1], menuAdmin)
	}
	return rows
}

func sizeKeyboard() [][]Button {
	row := make([]Button, 0, len(model.Sizes))
	for _, s := range model.Sizes {
		row = append(row, Button{Text: s.Title(), Data: cbSize + string(s)})
	}
	return [][]Button{row}
}

func numbersKeyboard(bouquets []model.Bouquet) [][]Button {
	var rows [][]Button
	var row []Button
	for i, b := range bouquets {
		if i == maxNumbers {
			break
		}
		row = append(row, Button{Text: "#" + strconv.Itoa(b.Number), Data: cbPick + strconv.Itoa(b.Number)})
		if len(row) == numbersRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, []Button{{Text: "Back", Data: cbCatalog}})
}

func cartKeyboard(view *usecase.SessionView) [][]Button {
	var rows [][]Button
	for _, line := range view.Lines {
		rows = append(rows, []Button{{
			Text: "Remove " + line.Bouquet.Title,
			Data: cbRemove + strconv.FormatInt(line.Bouquet.ID, 10),
		}})
	}
	return append(rows,
		[]Button{{Text: "Checkout", Data: cbCheckout}, {Text: "Continue shopping", Data: cbCatalog}},
		[]Button{{Text: "Clear cart", Data: cbCancel}},
	)
}

func reviewKeyboard(manual bool) [][]Button {
	confirm := "Pay in Telegram"
	if manual {
		confirm = "Confirm order"
	}
	return [][]Button{{{Text: confirm, Data: cbConfirm}, {Text: "Back", Data: cbBack}}}
}

func bouquetLine(b model.Bouquet, currency string) string {
	return fmt.Sprintf("#%d %s: %s", b.Number, b.Title, model.FormatPrice(b.Price, currency))
}

func bouquetList(bouquets []model.Bouquet, currency string) string {
	lines := make([]string, 0, maxListed)
	for i, b := range bouquets {
		if i == maxListed {
			break
		}
		lines = append(lines, bouquetLine(b, currency))
	}
	return strings.Join(lines, "\n")
}

func catalogText(bouquets []model.Bouquet, currency string) string {
	if len(bouquets) == 0 {
		return "No bouquets are available right now."
	}
	var b strings.Builder
	b.WriteString("Bouquets in stock:\n")
	var current model.Size
	for _, item := range bouquets {
		if item.Size != current {
			current = item.Size
			fmt.Fprintf(&b, "\n%s\n", current.Title())
		}
		b.WriteString(bouquetLine(item, currency))
		b.WriteString("\n")
	}
	b.WriteString("\nChoose a size:")
	return b.String()
}

func cartText(view *usecase.SessionView, currency string) string {
	if len(view.Lines) == 0 {
		return "Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("Your cart:\n")
	for _, line := range view.Lines {
		fmt.Fprintf(&b, "%s x%d: %s\n", line.Bouquet.Title, line.Quantity, model.FormatPrice(line.Subtotal(), currency))
	}
	fmt.Fprintf(&b, "Total: %s", model.FormatPrice(view.Total, currency))
	return b.String()
}

func reviewText(view *usecase.SessionView, currency string) string {
	return fmt.Sprintf("Please check your order:\n%s\nAddress: %s\nDelivery: %s\n\nIf everything is correct, confirm below.",
		cartText(view, currency), view.Delivery.Address, view.Delivery.Time)
}

func orderStatusText(order model.Order) string {
	if order.Status == model.OrderStatusCreated && order.PaymentRef == "" {
		return "awaiting manual confirmation"
	}
	if order.Status == model.OrderStatusCreated {
		return "awaiting payment"
	}
	return string(order.Status)
}

func ordersText(orders []model.Order, currency string) string {
	if len(orders) == 0 {
		return "You have no orders yet."
	}
	start := 0
	if len(orders) > maxListed {
		start = len(orders) - maxListed
	}
	parts := make([]string, 0, maxListed)
	for _, o := range orders[start:] {
		parts = append(parts, fmt.Sprintf("#%d: %s\nStatus: %s, %s",
			o.ID, model.FormatPrice(o.Total, currency), orderStatusText(o), o.CreatedAt.Format("2006-01-02 15:04")))
	}
	return strings.Join(parts, "\n\n")
}

func adminBouquetsText(bouquets []model.Bouquet, currency string) string {
	if len(bouquets) == 0 {
		return "Catalog is empty."
	}
	lines := make([]string, 0, len(bouquets))
	for _, b := range bouquets {
		mark := "✅"
		if !b.InStock {
			mark = "❌"
		}
		lines = append(lines, fmt.Sprintf("%s %s #%d %s %s (id:%d)",
			mark, strings.ToUpper(string(b.Size)), b.Number, b.Title, model.FormatPrice(b.Price, currency), b.ID))
	}
	return strings.Join(lines, "\n")
}

const adminHelp = `Admin commands:
/bouquets - list all bouquets
/add <size> <number> <price> <title> - add bouquet
/toggle <id> - switch availability
/seed - add demo bouquets
/paid <order id> - confirm payment
/cancel_order <order id> - cancel order
Send a photo captioned /photo <id> to set bouquet image.`

const customerHelp = `Use the menu below to browse bouquets.
/cart - show cart
/orders - your orders
/cancel - clear cart and start over`

// userMessage converts domain error into text shown to customer.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domainErrors.ErrItemUnavailable):
		return "Sorry, this bouquet is not available anymore."
	case errors.Is(err, domainErrors.ErrEmptyCart):
		return "Your cart is empty. Pick a bouquet first."
	case errors.Is(err, domainErrors.ErrInvalidQuantity):
		return fmt.Sprintf("Quantity must be between 1 and %d.", model.MaxQuantity)
	case errors.Is(err, domainErrors.ErrInvalidSize):
		return "Unknown size. Choose small, medium or big."
	case errors.Is(err, domainErrors.ErrInvalidAddress):
		return "Please send the full delivery address."
	case errors.Is(err, domainErrors.ErrInvalidDeliveryTime):
		return "Send time as HH:MM, optionally with today or tomorrow, e.g. today 18:30."
	case errors.Is(err, domainErrors.ErrInvalidState):
		return "This action is not available right now. Use the menu to continue."
	case errors.Is(err, domainErrors.ErrInvalidBouquet):
		return "Bouquet data is invalid: " + err.Error()
	case errors.Is(err, domainErrors.ErrAlreadyExists):
		return "A bouquet with this size and number already exists."
	case errors.Is(err, domainErrors.ErrNotFound):
		return "Nothing found with this number."
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		return "The order cannot be changed in its current status."
	case errors.Is(err, domainErrors.ErrRefundRequired):
		return "Your payment arrived after the order was closed. It will be refunded."
	case errors.Is(err, domainErrors.ErrPaymentFailure):
		return "Payment could not be processed."
	default:
		return "Something went wrong, please try again later."
	}
}
