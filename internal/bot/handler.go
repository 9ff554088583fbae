package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/usecase"
)

const addUsage = "Usage: /add <size> <number> <price> <title>, e.g. /add small 4 45.50 Tulips"

// Handler maps user events onto shop operations and renders replies.
type Handler struct {
	shop      ShopFacade
	messenger Messenger
	admins    model.AdminSet
	currency  string
	logger    *slog.Logger
}

// NewHandler constructs conversation handler.
func NewHandler(shop ShopFacade, messenger Messenger, admins model.AdminSet, currency string, logger *slog.Logger) *Handler {
	return &Handler{
		shop:      shop,
		messenger: messenger,
		admins:    admins,
		currency:  currency,
		logger:    logger,
	}
}

// Handle processes single event. Errors are reported to the user and logged.
func (h *Handler) Handle(ctx context.Context, ev Event) {
	var err error
	switch ev.Kind {
	case KindCommand:
		err = h.onCommand(ctx, ev)
	case KindText:
		err = h.onText(ctx, ev)
	case KindCallback:
		err = h.onCallback(ctx, ev)
	case KindPhoto:
		err = h.onPhoto(ctx, ev)
	case KindPreCheckout:
		err = h.onPreCheckout(ctx, ev)
	case KindPayment:
		err = h.onPayment(ctx, ev)
	}
	if err != nil {
		h.fail(ctx, ev, err)
	}
}

func (h *Handler) fail(ctx context.Context, ev Event, err error) {
	attrs := []any{
		slog.Int("update_id", ev.UpdateID),
		slog.Int64("user_id", ev.UserID),
		slog.String("kind", string(ev.Kind)),
		slog.String("error", err.Error()),
	}
	switch {
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		h.logger.Error("order transition rejected", attrs...)
	case domainErrors.IsUserError(err), errors.Is(err, domainErrors.ErrAlreadyExists):
		h.logger.Debug("request rejected", attrs...)
	default:
		h.logger.Error("event handling failed", attrs...)
	}
	h.text(ctx, ev.ChatID, userMessage(err))
}

func (h *Handler) isAdmin(ev Event) bool {
	return h.admins.Contains(ev.UserID)
}

func (h *Handler) send(ctx context.Context, reply Reply) {
	if err := h.messenger.Send(ctx, reply); err != nil {
		h.logger.Warn("reply failed", slog.Int64("chat_id", reply.ChatID), slog.String("error", err.Error()))
	}
}

func (h *Handler) text(ctx context.Context, chatID int64, text string) {
	h.send(ctx, Reply{ChatID: chatID, Text: text})
}

func (h *Handler) onCommand(ctx context.Context, ev Event) error {
	switch ev.Command {
	case "start":
		h.send(ctx, Reply{
			ChatID: ev.ChatID,
			Text:   "Welcome to the flower shop! Pick a bouquet from the catalog.",
			Menu:   mainMenu(h.isAdmin(ev)),
		})
		return nil
	case "help":
		help := customerHelp
		if h.isAdmin(ev) {
			help += "\n\n" + adminHelp
		}
		h.text(ctx, ev.ChatID, help)
		return nil
	case "catalog":
		return h.showCatalog(ctx, ev)
	case "cart":
		return h.showCart(ctx, ev)
	case "orders":
		return h.showOrders(ctx, ev)
	case "cancel":
		return h.cancel(ctx, ev)
	}

	if !h.isAdmin(ev) {
		if isAdminCommand(ev.Command) {
			return nil
		}
		h.text(ctx, ev.ChatID, customerHelp)
		return nil
	}
	return h.onAdminCommand(ctx, ev)
}

func isAdminCommand(cmd string) bool {
	switch cmd {
	case "bouquets", "add", "toggle", "seed", "paid", "cancel_order", "photo", "admin":
		return true
	}
	return false
}

func (h *Handler) onText(ctx context.Context, ev Event) error {
	switch ev.Text {
	case menuCatalog:
		return h.showCatalog(ctx, ev)
	case menuCart:
		return h.showCart(ctx, ev)
	case menuOrders:
		return h.showOrders(ctx, ev)
	case menuAdmin:
		if h.isAdmin(ev) {
			h.text(ctx, ev.ChatID, adminHelp)
		}
		return nil
	}

	view, err := h.shop.Session(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if view.State != model.StateCheckingOut {
		h.send(ctx, Reply{ChatID: ev.ChatID, Text: "Use the menu to choose bouquets.", Menu: mainMenu(h.isAdmin(ev))})
		return nil
	}

	switch {
	case view.Delivery.Address == "":
		if _, err := h.shop.SetAddress(ctx, ev.UserID, ev.Text); err != nil {
			return err
		}
		h.text(ctx, ev.ChatID, "When should we deliver? For example: today 18:30")
		return nil
	case view.Delivery.Time == "":
		view, err = h.shop.SetDeliveryTime(ctx, ev.UserID, ev.Text)
		if err != nil {
			return err
		}
	}
	h.send(ctx, Reply{ChatID: ev.ChatID, Text: reviewText(view, h.currency), Inline: reviewKeyboard(h.shop.ManualPayments())})
	return nil
}

func (h *Handler) onCallback(ctx context.Context, ev Event) error {
	if err := h.messenger.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
		h.logger.Warn("answer callback failed", slog.String("error", err.Error()))
	}

	data := ev.Text
	switch {
	case strings.HasPrefix(data, cbSize):
		return h.selectSize(ctx, ev, strings.TrimPrefix(data, cbSize))
	case strings.HasPrefix(data, cbPick):
		number, err := strconv.Atoi(strings.TrimPrefix(data, cbPick))
		if err != nil {
			return domainErrors.ErrNotFound
		}
		return h.pick(ctx, ev, number)
	case strings.HasPrefix(data, cbRemove):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, cbRemove), 10, 64)
		if err != nil {
			return domainErrors.ErrNotFound
		}
		view, err := h.shop.RemoveFromCart(ctx, ev.UserID, id)
		if err != nil {
			return err
		}
		h.renderCart(ctx, ev.ChatID, view)
		return nil
	}

	switch data {
	case cbCatalog, cbBack:
		return h.showCatalog(ctx, ev)
	case cbCart:
		return h.showCart(ctx, ev)
	case cbCheckout:
		if _, err := h.shop.StartCheckout(ctx, ev.UserID); err != nil {
			return err
		}
		h.text(ctx, ev.ChatID, "Send the delivery address:")
		return nil
	case cbConfirm:
		return h.placeOrder(ctx, ev)
	case cbCancel:
		return h.cancel(ctx, ev)
	}
	return nil
}

func (h *Handler) showCatalog(ctx context.Context, ev Event) error {
	bouquets, err := h.shop.Browse(ctx, ev.UserID)
	if err != nil {
		return err
	}
	h.send(ctx, Reply{ChatID: ev.ChatID, Text: catalogText(bouquets, h.currency), Inline: sizeKeyboard()})
	return nil
}

func (h *Handler) selectSize(ctx context.Context, ev Event, raw string) error {
	size, bouquets, err := h.shop.SelectSize(ctx, ev.UserID, raw)
	if err != nil {
		return err
	}
	if len(bouquets) == 0 {
		h.send(ctx, Reply{
			ChatID: ev.ChatID,
			Text:   fmt.Sprintf("No %s bouquets are in stock right now.", strings.ToLower(size.Title())),
			Inline: sizeKeyboard(),
		})
		return nil
	}

	var photos []string
	for _, b := range bouquets {
		if b.ImageRef != "" {
			photos = append(photos, b.ImageRef)
		}
	}
	if err := h.messenger.SendAlbum(ctx, ev.ChatID, photos); err != nil {
		h.logger.Warn("album failed", slog.String("size", string(size)), slog.String("error", err.Error()))
	}
	h.text(ctx, ev.ChatID, bouquetList(bouquets, h.currency))
	h.send(ctx, Reply{ChatID: ev.ChatID, Text: "Pick a bouquet number:", Inline: numbersKeyboard(bouquets)})
	return nil
}

func (h *Handler) pick(ctx context.Context, ev Event, number int) error {
	view, err := h.shop.AddByNumber(ctx, ev.UserID, number, 1)
	if err != nil {
		return err
	}
	h.send(ctx, Reply{ChatID: ev.ChatID, Text: "Added to cart.\n\n" + cartText(view, h.currency), Inline: cartKeyboard(view)})
	return nil
}

func (h *Handler) showCart(ctx context.Context, ev Event) error {
	view, err := h.shop.Session(ctx, ev.UserID)
	if err != nil {
		return err
	}
	h.renderCart(ctx, ev.ChatID, view)
	return nil
}

func (h *Handler) renderCart(ctx context.Context, chatID int64, view *usecase.SessionView) {
	if len(view.Lines) == 0 {
		h.send(ctx, Reply{ChatID: chatID, Text: cartText(view, h.currency), Inline: sizeKeyboard()})
		return
	}
	h.send(ctx, Reply{ChatID: chatID, Text: cartText(view, h.currency), Inline: cartKeyboard(view)})
}

func (h *Handler) showOrders(ctx context.Context, ev Event) error {
	orders, err := h.shop.CustomerOrders(ctx, ev.UserID)
	if err != nil {
		return err
	}
	h.text(ctx, ev.ChatID, ordersText(orders, h.currency))
	return nil
}

func (h *Handler) cancel(ctx context.Context, ev Event) error {
	if err := h.shop.CancelSession(ctx, ev.UserID); err != nil {
		return err
	}
	h.send(ctx, Reply{ChatID: ev.ChatID, Text: "Cart cleared. Choose a size to start again.", Inline: sizeKeyboard()})
	return nil
}

func (h *Handler) placeOrder(ctx context.Context, ev Event) error {
	order, err := h.shop.PlaceOrder(ctx, ev.UserID)
	if err != nil {
		if order == nil {
			return err
		}
		h.logger.Warn("payment initiation failed", slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
		h.send(ctx, Reply{
			ChatID: ev.ChatID,
			Text:   fmt.Sprintf("Payment for order #%d could not be started. The order is cancelled, please try again later.", order.ID),
			Menu:   mainMenu(h.isAdmin(ev)),
		})
		return nil
	}

	text := fmt.Sprintf("Order #%d is created. Total: %s. Please pay the invoice.", order.ID, model.FormatPrice(order.Total, h.currency))
	if h.shop.ManualPayments() {
		text = fmt.Sprintf("Order #%d is placed. Total: %s. Status: awaiting manual confirmation.", order.ID, model.FormatPrice(order.Total, h.currency))
	}
	h.send(ctx, Reply{ChatID: ev.ChatID, Text: text, Menu: mainMenu(h.isAdmin(ev))})
	return nil
}

func (h *Handler) onPreCheckout(ctx context.Context, ev Event) error {
	p := ev.Payment
	reason := ""
	if err := h.shop.PreCheckout(ctx, p.Payload, p.Total, p.Currency); err != nil {
		h.logger.Warn("pre-checkout rejected", slog.Int64("user_id", ev.UserID), slog.String("error", err.Error()))
		reason = "The order cannot be paid anymore."
	}
	if err := h.messenger.AnswerPreCheckout(ctx, p.QueryID, reason); err != nil {
		h.logger.Error("answer pre-checkout failed", slog.String("error", err.Error()))
	}
	return nil
}

func (h *Handler) onPayment(ctx context.Context, ev Event) error {
	order, err := h.shop.ConfirmPayment(ctx, ev.Payment.Payload, ev.Payment.ChargeID)
	if err != nil {
		return err
	}
	h.send(ctx, Reply{
		ChatID: ev.ChatID,
		Text:   fmt.Sprintf("Payment received! Order #%d is accepted.", order.ID),
		Menu:   mainMenu(h.isAdmin(ev)),
	})
	return nil
}

func (h *Handler) onPhoto(ctx context.Context, ev Event) error {
	if !h.isAdmin(ev) || ev.Command != "photo" {
		return nil
	}
	id, err := strconv.ParseInt(ev.Args, 10, 64)
	if err != nil {
		h.text(ctx, ev.ChatID, "Caption the photo with /photo <bouquet id>.")
		return nil
	}
	if err := h.shop.SetBouquetImage(ctx, id, ev.PhotoID); err != nil {
		return err
	}
	h.text(ctx, ev.ChatID, fmt.Sprintf("Photo saved for bouquet id:%d.", id))
	return nil
}

func (h *Handler) onAdminCommand(ctx context.Context, ev Event) error {
	switch ev.Command {
	case "admin":
		h.text(ctx, ev.ChatID, adminHelp)
	case "bouquets":
		bouquets, err := h.shop.AllBouquets(ctx)
		if err != nil {
			return err
		}
		h.text(ctx, ev.ChatID, adminBouquetsText(bouquets, h.currency))
	case "add":
		bouquet, ok := parseBouquet(ev.Args)
		if !ok {
			h.text(ctx, ev.ChatID, addUsage)
			return nil
		}
		created, err := h.shop.CreateBouquet(ctx, bouquet)
		if err != nil {
			return err
		}
		h.text(ctx, ev.ChatID, fmt.Sprintf("Added bouquet id:%d. Send a photo captioned /photo %d to set its image.", created.ID, created.ID))
	case "toggle":
		id, err := strconv.ParseInt(ev.Args, 10, 64)
		if err != nil {
			h.text(ctx, ev.ChatID, "Usage: /toggle <bouquet id>")
			return nil
		}
		b, err := h.shop.ToggleStock(ctx, id)
		if err != nil {
			return err
		}
		state := "in stock"
		if !b.InStock {
			state = "out of stock"
		}
		h.text(ctx, ev.ChatID, fmt.Sprintf("Bouquet id:%d is now %s.", b.ID, state))
	case "seed":
		added, err := h.shop.SeedCatalog(ctx)
		if err != nil {
			return err
		}
		h.text(ctx, ev.ChatID, fmt.Sprintf("Added %d demo bouquets.", added))
	case "paid", "cancel_order":
		id, err := strconv.ParseInt(ev.Args, 10, 64)
		if err != nil {
			h.text(ctx, ev.ChatID, fmt.Sprintf("Usage: /%s <order id>", ev.Command))
			return nil
		}
		status, done := model.OrderStatusPaid, "marked as paid"
		if ev.Command == "cancel_order" {
			status, done = model.OrderStatusCancelled, "cancelled"
		}
		if err := h.shop.SetOrderStatus(ctx, id, status, ev.UserID); err != nil {
			return err
		}
		h.text(ctx, ev.ChatID, fmt.Sprintf("Order #%d %s.", id, done))
	case "photo":
		h.text(ctx, ev.ChatID, "Send a photo captioned /photo <bouquet id>.")
	default:
		h.text(ctx, ev.ChatID, adminHelp)
	}
	return nil
}

func parseBouquet(args string) (model.Bouquet, bool) {
	fields := strings.Fields(args)
	if len(fields) < 4 {
		return model.Bouquet{}, false
	}
	size, ok := model.ParseSize(strings.ToLower(fields[0]))
	if !ok {
		return model.Bouquet{}, false
	}
	number, err := strconv.Atoi(fields[1])
	if err != nil {
		return model.Bouquet{}, false
	}
	price, ok := model.ParsePrice(strings.TrimPrefix(fields[2], "$"))
	if !ok {
		return model.Bouquet{}, false
	}
	return model.Bouquet{
		Size:    size,
		Number:  number,
		Title:   strings.Join(fields[3:], " "),
		Price:   price,
		InStock: true,
	}, true
}
