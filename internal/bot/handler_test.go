package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/polkiloo/flowershop/internal/app"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/payment"
	"github.com/polkiloo/flowershop/internal/storage/memory"
	"github.com/polkiloo/flowershop/internal/test"
	"github.com/polkiloo/flowershop/internal/usecase"
)

const (
	customerID = int64(7)
	adminID    = int64(100)
)

type messengerStub struct {
	mu          sync.Mutex
	replies     []Reply
	albums      [][]string
	callbacks   []string
	preCheckout map[string]string
}

func (m *messengerStub) SendText(ctx context.Context, chatID int64, text string) error {
	return m.Send(ctx, Reply{ChatID: chatID, Text: text})
}

func (m *messengerStub) Send(_ context.Context, reply Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply)
	return nil
}

func (m *messengerStub) SendAlbum(_ context.Context, _ int64, fileIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(fileIDs) > 0 {
		m.albums = append(m.albums, fileIDs)
	}
	return nil
}

func (m *messengerStub) AnswerCallback(_ context.Context, callbackID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callbackID)
	return nil
}

func (m *messengerStub) AnswerPreCheckout(_ context.Context, queryID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.preCheckout == nil {
		m.preCheckout = make(map[string]string)
	}
	m.preCheckout[queryID] = reason
	return nil
}

func (m *messengerStub) all() []Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Reply(nil), m.replies...)
}

func (m *messengerStub) last(t *testing.T) Reply {
	t.Helper()
	replies := m.all()
	if len(replies) == 0 {
		t.Fatal("expected a reply")
	}
	return replies[len(replies)-1]
}

type invoiceSender struct {
	mu       sync.Mutex
	invoices []tgbotapi.InvoiceConfig
}

func (s *invoiceSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := c.(tgbotapi.InvoiceConfig); ok {
		s.invoices = append(s.invoices, inv)
	}
	return tgbotapi.Message{}, nil
}

type handlerFixture struct {
	handler   *Handler
	messenger *messengerStub
	catalog   *test.CatalogRepositoryStub
	orders    *test.OrderRepositoryStub
	notifier  *test.OrderNotifierStub
	invoices  *invoiceSender
	shop      *app.ShopFacade
}

func newHandlerFixture(t *testing.T, telegramPayments bool) *handlerFixture {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	f := &handlerFixture{
		messenger: &messengerStub{},
		catalog: test.NewCatalogRepositoryStub(
			model.Bouquet{ID: 1, Size: model.SizeSmall, Number: 1, Title: "Roses", Price: 1000, InStock: true, ImageRef: "photo-1"},
			model.Bouquet{ID: 2, Size: model.SizeSmall, Number: 2, Title: "Tulips", Price: 500, InStock: false},
			model.Bouquet{ID: 3, Size: model.SizeBig, Number: 1, Title: "Lilies", Price: 3000, InStock: true},
		),
		orders:   test.NewOrderRepositoryStub(),
		notifier: &test.OrderNotifierStub{},
		invoices: &invoiceSender{},
	}

	orders := usecase.NewOrderUseCase(f.orders, logger, nil)
	catalog := usecase.NewCatalogUseCase(f.catalog, logger)
	var adapter payment.Adapter = payment.ManualAdapter{}
	if telegramPayments {
		adapter = payment.NewTelegramAdapter(f.invoices, "provider", "USD")
	}
	payments := payment.NewService(adapter, orders, f.messenger, "USD", logger)
	workflow := usecase.NewWorkflowUseCase(f.catalog, f.orders, memory.NewSessionStore(0), payments, f.notifier, logger, nil)
	f.shop = app.NewShopFacade(workflow, catalog, orders, payments, nil, nil)
	f.handler = NewHandler(f.shop, f.messenger, model.NewAdminSet(adminID), "USD", logger)
	return f
}

func (f *handlerFixture) command(user int64, cmd, args string) {
	f.handler.Handle(context.Background(), Event{Kind: KindCommand, ChatID: user, UserID: user, Command: cmd, Args: args})
}

func (f *handlerFixture) text(user int64, text string) {
	f.handler.Handle(context.Background(), Event{Kind: KindText, ChatID: user, UserID: user, Text: text})
}

func (f *handlerFixture) callback(user int64, data string) {
	f.handler.Handle(context.Background(), Event{Kind: KindCallback, ChatID: user, UserID: user, Text: data, CallbackID: "cb-" + data})
}

func requireText(t *testing.T, reply Reply, want string) {
	t.Helper()
	if !strings.Contains(reply.Text, want) {
		t.Fatalf("expected reply containing %q, got %q", want, reply.Text)
	}
}

func TestHandlerOrderingFlow(t *testing.T) {
	f := newHandlerFixture(t, false)

	f.command(customerID, "start", "")
	start := f.messenger.last(t)
	if len(start.Menu) == 0 || strings.Contains(strings.Join(start.Menu[1], ","), menuAdmin) {
		t.Fatalf("unexpected customer menu: %+v", start.Menu)
	}

	f.text(customerID, menuCatalog)
	requireText(t, f.messenger.last(t), "Bouquets in stock:")

	f.callback(customerID, cbSize+"small")
	if len(f.messenger.albums) != 1 || f.messenger.albums[0][0] != "photo-1" {
		t.Fatalf("expected album with bouquet photos, got %+v", f.messenger.albums)
	}
	picker := f.messenger.last(t)
	requireText(t, picker, "Pick a bouquet number")
	if picker.Inline[0][0].Data != cbPick+"1" {
		t.Fatalf("unexpected number keyboard: %+v", picker.Inline)
	}

	f.callback(customerID, cbPick+"1")
	requireText(t, f.messenger.last(t), "Total: $10.00")

	f.callback(customerID, cbCheckout)
	requireText(t, f.messenger.last(t), "delivery address")

	f.text(customerID, "ab")
	requireText(t, f.messenger.last(t), "full delivery address")

	f.text(customerID, "Main street 1")
	requireText(t, f.messenger.last(t), "When should we deliver")

	f.text(customerID, "whenever")
	requireText(t, f.messenger.last(t), "HH:MM")

	f.text(customerID, "today 18:30")
	review := f.messenger.last(t)
	requireText(t, review, "Address: Main street 1")
	if review.Inline[0][0].Text != "Confirm order" {
		t.Fatalf("expected manual confirmation button, got %+v", review.Inline)
	}

	f.callback(customerID, cbConfirm)
	requireText(t, f.messenger.last(t), "Order #1 is placed. Total: $10.00. Status: awaiting manual confirmation.")
	f.shop.Wait()

	if f.orders.Count() != 1 || len(f.notifier.Announced()) != 1 {
		t.Fatalf("expected one order announced, got %d/%d", f.orders.Count(), len(f.notifier.Announced()))
	}
	if len(f.messenger.callbacks) != 4 {
		t.Fatalf("every callback must be answered, got %v", f.messenger.callbacks)
	}

	f.command(customerID, "orders", "")
	requireText(t, f.messenger.last(t), "#1: $10.00\nStatus: awaiting manual confirmation")
}

func TestHandlerReportsUserErrors(t *testing.T) {
	f := newHandlerFixture(t, false)

	f.callback(customerID, cbPick+"1")
	requireText(t, f.messenger.last(t), "not available right now")

	f.callback(customerID, cbSize+"small")
	f.callback(customerID, cbPick+"2")
	requireText(t, f.messenger.last(t), "not available anymore")

	f.callback(customerID, cbPick+"9")
	requireText(t, f.messenger.last(t), "Nothing found")

	f.callback(customerID, cbCheckout)
	requireText(t, f.messenger.last(t), "cart is empty")

	f.callback(customerID, cbSize+"huge")
	requireText(t, f.messenger.last(t), "Unknown size")

	f.text(customerID, "hello")
	requireText(t, f.messenger.last(t), "Use the menu")

	f.command(customerID, "cart", "")
	requireText(t, f.messenger.last(t), "Your cart is empty.")
	if f.orders.Count() != 0 {
		t.Fatal("no orders expected")
	}
}

func TestHandlerCartEditing(t *testing.T) {
	f := newHandlerFixture(t, false)

	f.callback(customerID, cbSize+"big")
	f.callback(customerID, cbPick+"1")
	f.callback(customerID, cbPick+"1")
	cart := f.messenger.last(t)
	requireText(t, cart, "Lilies x2: $60.00")
	if cart.Inline[0][0].Data != cbRemove+"3" {
		t.Fatalf("expected remove button, got %+v", cart.Inline)
	}

	f.callback(customerID, cbRemove+"3")
	requireText(t, f.messenger.last(t), "Your cart is empty.")

	f.callback(customerID, cbPick+"1")
	f.command(customerID, "cancel", "")
	requireText(t, f.messenger.last(t), "Cart cleared")
	f.command(customerID, "cart", "")
	requireText(t, f.messenger.last(t), "Your cart is empty.")
}

func TestHandlerTelegramPayment(t *testing.T) {
	f := newHandlerFixture(t, true)
	ctx := context.Background()

	f.callback(customerID, cbSize+"small")
	f.callback(customerID, cbPick+"1")
	f.callback(customerID, cbCheckout)
	f.text(customerID, "Main street 1")
	f.text(customerID, "tomorrow 10:00")
	if f.messenger.last(t).Inline[0][0].Text != "Pay in Telegram" {
		t.Fatal("expected pay button")
	}
	f.callback(customerID, cbConfirm)
	requireText(t, f.messenger.last(t), "Please pay the invoice")
	f.shop.Wait()

	if len(f.invoices.invoices) != 1 {
		t.Fatalf("expected invoice, got %d", len(f.invoices.invoices))
	}
	payload := f.invoices.invoices[0].Payload

	f.handler.Handle(ctx, Event{Kind: KindPreCheckout, ChatID: customerID, UserID: customerID,
		Payment: &PaymentEvent{QueryID: "q-bad", Payload: payload, Currency: "USD", Total: 1}})
	f.handler.Handle(ctx, Event{Kind: KindPreCheckout, ChatID: customerID, UserID: customerID,
		Payment: &PaymentEvent{QueryID: "q-ok", Payload: payload, Currency: "USD", Total: 1000}})
	if f.messenger.preCheckout["q-bad"] == "" || f.messenger.preCheckout["q-ok"] != "" {
		t.Fatalf("unexpected pre-checkout answers: %+v", f.messenger.preCheckout)
	}

	f.handler.Handle(ctx, Event{Kind: KindPayment, ChatID: customerID, UserID: customerID,
		Payment: &PaymentEvent{Payload: payload, Currency: "USD", Total: 1000, ChargeID: "ch-1"}})
	requireText(t, f.messenger.last(t), "Payment received! Order #1 is accepted.")

	order, _ := f.orders.Get(ctx, 1)
	if order.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", order.Status)
	}
}

func TestHandlerPaymentForCancelledOrder(t *testing.T) {
	f := newHandlerFixture(t, true)
	ctx := context.Background()

	f.callback(customerID, cbSize+"small")
	f.callback(customerID, cbPick+"1")
	f.callback(customerID, cbCheckout)
	f.text(customerID, "Main street 1")
	f.text(customerID, "tomorrow 10:00")
	f.callback(customerID, cbConfirm)
	f.shop.Wait()
	payload := f.invoices.invoices[0].Payload

	if err := f.orders.UpdateStatus(ctx, 1, model.OrderStatusCancelled, "invoice expired"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.handler.Handle(ctx, Event{Kind: KindPayment, ChatID: customerID, UserID: customerID,
		Payment: &PaymentEvent{Payload: payload, Currency: "USD", Total: 1000, ChargeID: "ch-late"}})
	requireText(t, f.messenger.last(t), "It will be refunded.")

	order, _ := f.orders.Get(ctx, 1)
	if order.Status != model.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %s", order.Status)
	}
}

func TestHandlerAdminCommands(t *testing.T) {
	f := newHandlerFixture(t, false)
	ctx := context.Background()

	f.command(customerID, "add", "small 5 12.50 Daisies")
	f.command(customerID, "seed", "")
	if len(f.messenger.all()) != 0 {
		t.Fatal("admin commands must be ignored for customers")
	}

	f.command(adminID, "start", "")
	if !strings.Contains(strings.Join(f.messenger.last(t).Menu[1], ","), menuAdmin) {
		t.Fatal("expected admin menu entry")
	}

	f.command(adminID, "add", "small 5")
	requireText(t, f.messenger.last(t), "Usage: /add")

	f.command(adminID, "add", "small 5 12.50 Field Daisies")
	requireText(t, f.messenger.last(t), "Added bouquet id:4")
	created, err := f.catalog.Get(ctx, 4)
	if err != nil || created.Title != "Field Daisies" || created.Price != 1250 || !created.InStock {
		t.Fatalf("unexpected bouquet: %+v err=%v", created, err)
	}

	f.command(adminID, "add", "small 5 10 Duplicate")
	requireText(t, f.messenger.last(t), "already exists")

	f.command(adminID, "toggle", "4")
	requireText(t, f.messenger.last(t), "out of stock")

	f.command(adminID, "bouquets", "")
	requireText(t, f.messenger.last(t), "❌ SMALL #5 Field Daisies $12.50 (id:4)")

	f.handler.Handle(ctx, Event{Kind: KindPhoto, ChatID: adminID, UserID: adminID, Command: "photo", Args: "4", PhotoID: "file-4"})
	requireText(t, f.messenger.last(t), "Photo saved")
	if b, _ := f.catalog.Get(ctx, 4); b.ImageRef != "file-4" {
		t.Fatalf("expected image stored, got %q", b.ImageRef)
	}

	f.command(adminID, "seed", "")
	requireText(t, f.messenger.last(t), "Added 1 demo bouquets.")

	order, _ := f.orders.Create(ctx, model.Order{CustomerID: customerID, Items: []model.LineItem{{BouquetID: 1, Title: "Roses", Quantity: 1, UnitPrice: 1000}}})
	f.command(adminID, "paid", "1")
	requireText(t, f.messenger.last(t), "Order #1 marked as paid.")
	replies := f.messenger.all()
	if customerMsg := replies[len(replies)-2]; customerMsg.ChatID != customerID || !strings.Contains(customerMsg.Text, "confirmed") {
		t.Fatalf("expected customer to be told, got %+v", customerMsg)
	}
	if stored, _ := f.orders.Get(ctx, order.ID); stored.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", stored.Status)
	}

	f.command(adminID, "cancel_order", "1")
	requireText(t, f.messenger.last(t), "cannot be changed")

	f.command(adminID, "paid", "x")
	requireText(t, f.messenger.last(t), "Usage: /paid")
}

func TestParseBouquet(t *testing.T) {
	b, ok := parseBouquet("BIG 3 $45.5 Autumn mix")
	if !ok || b.Size != model.SizeBig || b.Number != 3 || b.Price != 4550 || b.Title != "Autumn mix" {
		t.Fatalf("unexpected parse: %+v ok=%v", b, ok)
	}
	for _, bad := range []string{"", "huge 1 10 x", "small x 10 y", "small 1 ten y", "small 1 10"} {
		if _, ok := parseBouquet(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
