package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/test"
	"github.com/polkiloo/flowershop/internal/usecase"
)

type senderStub struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	err  error
}

func (s *senderStub) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c)
	return tgbotapi.Message{MessageID: len(s.sent)}, nil
}

type failingAdapter struct{ err error }

func (a failingAdapter) Initiate(context.Context, *model.Order) (string, error) {
	return "", a.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fixture struct {
	service *Service
	repo    *test.OrderRepositoryStub
	text    *test.TextSenderStub
	sender  *senderStub
	order   *model.Order
}

func newFixture(t *testing.T, adapter func(Sender) Adapter) *fixture {
	t.Helper()
	repo := test.NewOrderRepositoryStub()
	orders := usecase.NewOrderUseCase(repo, discardLogger(), nil)
	sender := &senderStub{}
	text := &test.TextSenderStub{}

	order, err := repo.Create(context.Background(), model.Order{
		CustomerID:   42,
		Items:        []model.LineItem{{BouquetID: 1, Title: "Roses", Quantity: 2, UnitPrice: 1000}, {BouquetID: 2, Title: "Tulips", Quantity: 1, UnitPrice: 500}},
		Address:      "Main street 1",
		DeliveryTime: "today 18:30",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	return &fixture{
		service: NewService(adapter(sender), orders, text, "USD", discardLogger()),
		repo:    repo,
		text:    text,
		sender:  sender,
		order:   order,
	}
}

func telegram(s Sender) Adapter { return NewTelegramAdapter(s, "provider", "USD") }

func TestPayloadRoundTrip(t *testing.T) {
	payload := NewPayload(17)
	if !strings.HasPrefix(payload, "order:17:") {
		t.Fatalf("unexpected payload %q", payload)
	}
	id, err := ParsePayload(payload)
	if err != nil || id != 17 {
		t.Fatalf("expected 17, got %d err=%v", id, err)
	}
	if NewPayload(17) == payload {
		t.Fatal("payloads must be unique")
	}

	for _, bad := range []string{"", "order:17", "order:x:" + strings.Split(payload, ":")[2], "invoice:17:abc", "order:17:not-a-uuid", "order:-1:" + strings.Split(payload, ":")[2]} {
		if _, err := ParsePayload(bad); !errors.Is(err, domainErrors.ErrPaymentFailure) {
			t.Errorf("expected payment failure for %q, got %v", bad, err)
		}
	}
}

func TestTelegramInitiateSendsInvoice(t *testing.T) {
	f := newFixture(t, telegram)
	ctx := context.Background()

	if err := f.service.Initiate(ctx, f.order); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected one invoice, got %d", len(f.sender.sent))
	}
	invoice, ok := f.sender.sent[0].(tgbotapi.InvoiceConfig)
	if !ok {
		t.Fatalf("expected invoice config, got %T", f.sender.sent[0])
	}
	if invoice.ChatID != 42 || invoice.Currency != "USD" || invoice.ProviderToken != "provider" {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}
	if len(invoice.Prices) != 2 || invoice.Prices[0].Amount != 2000 || invoice.Prices[1].Amount != 500 {
		t.Fatalf("unexpected prices: %+v", invoice.Prices)
	}
	if invoice.SuggestedTipAmounts == nil {
		t.Fatal("tip amounts must be an empty list")
	}

	stored, _ := f.repo.Get(ctx, f.order.ID)
	if stored.PaymentRef != invoice.Payload || f.order.PaymentRef != invoice.Payload {
		t.Fatalf("expected payment ref %q stored, got %q", invoice.Payload, stored.PaymentRef)
	}
	if f.service.Manual() {
		t.Fatal("telegram adapter is not manual")
	}
}

func TestInitiateFailureCancelsOrder(t *testing.T) {
	f := newFixture(t, telegram)
	f.sender.err = errors.New("bad gateway")
	ctx := context.Background()

	err := f.service.Initiate(ctx, f.order)
	if !errors.Is(err, domainErrors.ErrPaymentFailure) {
		t.Fatalf("expected payment failure, got %v", err)
	}
	stored, _ := f.repo.Get(ctx, f.order.ID)
	if stored.Status != model.OrderStatusCancelled || f.order.Status != model.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %s", stored.Status)
	}
}

func TestManualAdapterLeavesOrderCreated(t *testing.T) {
	f := newFixture(t, func(Sender) Adapter { return ManualAdapter{} })
	ctx := context.Background()

	if err := f.service.Initiate(ctx, f.order); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if !f.service.Manual() {
		t.Fatal("expected manual mode")
	}
	stored, _ := f.repo.Get(ctx, f.order.ID)
	if stored.Status != model.OrderStatusCreated || stored.PaymentRef != "" {
		t.Fatalf("unexpected order: %+v", stored)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("manual adapter must not send invoices")
	}
}

func TestPreCheckoutAndConfirm(t *testing.T) {
	f := newFixture(t, telegram)
	ctx := context.Background()
	if err := f.service.Initiate(ctx, f.order); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	payload := f.order.PaymentRef

	if err := f.service.PreCheckout(ctx, payload, 2499, "USD"); !errors.Is(err, domainErrors.ErrPaymentFailure) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	if err := f.service.PreCheckout(ctx, payload, 2500, "EUR"); !errors.Is(err, domainErrors.ErrPaymentFailure) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
	if err := f.service.PreCheckout(ctx, NewPayload(f.order.ID), 2500, "USD"); !errors.Is(err, domainErrors.ErrPaymentFailure) {
		t.Fatalf("expected foreign payload to be rejected, got %v", err)
	}
	if err := f.service.PreCheckout(ctx, payload, 2500, "usd"); err != nil {
		t.Fatalf("pre-checkout: %v", err)
	}

	order, err := f.service.Confirm(ctx, payload, "charge-1")
	if err != nil || order.Status != model.OrderStatusPaid {
		t.Fatalf("confirm: %+v err=%v", order, err)
	}
	again, err := f.service.Confirm(ctx, payload, "charge-1")
	if err != nil || again.Status != model.OrderStatusPaid {
		t.Fatalf("repeated confirm must be ignored: %+v err=%v", again, err)
	}
	if err := f.service.PreCheckout(ctx, payload, 2500, "USD"); !errors.Is(err, domainErrors.ErrPaymentFailure) {
		t.Fatalf("expected paid order to be rejected, got %v", err)
	}

	updates := f.repo.Updates()
	if len(updates) != 1 || updates[0].Status != model.OrderStatusPaid || updates[0].Reason != "charge charge-1" {
		t.Fatalf("unexpected updates: %+v", updates)
	}
}

func TestConfirmAfterCancelRequiresRefund(t *testing.T) {
	f := newFixture(t, telegram)
	ctx := context.Background()
	if err := f.service.Initiate(ctx, f.order); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if err := f.service.Fail(ctx, f.order.ID, "invoice expired"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	_, err := f.service.Confirm(ctx, f.order.PaymentRef, "charge-late")
	if !errors.Is(err, domainErrors.ErrRefundRequired) || !strings.Contains(err.Error(), "charge-late") {
		t.Fatalf("expected refund required, got %v", err)
	}
	stored, _ := f.repo.Get(ctx, f.order.ID)
	if stored.Status != model.OrderStatusCancelled {
		t.Fatalf("expected order to stay cancelled, got %s", stored.Status)
	}
}

func TestFailCancelsAndTellsCustomer(t *testing.T) {
	f := newFixture(t, telegram)
	ctx := context.Background()

	if err := f.service.Fail(ctx, f.order.ID, "invoice expired"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	stored, _ := f.repo.Get(ctx, f.order.ID)
	if stored.Status != model.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}
	msgs := f.text.Messages()
	if len(msgs) != 1 || msgs[0].ChatID != 42 || !strings.Contains(msgs[0].Text, "invoice expired") {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	if err := f.service.Fail(ctx, f.order.ID, "again"); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := f.service.Fail(ctx, 999, "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.text.Messages()) != 1 {
		t.Fatal("failed transitions must not notify customer")
	}
}

func TestAdminDecisions(t *testing.T) {
	f := newFixture(t, func(Sender) Adapter { return ManualAdapter{} })
	ctx := context.Background()
	f.text.FailFor = map[int64]error{42: errors.New("blocked")}

	if err := f.service.MarkPaid(ctx, f.order.ID, 7); err != nil {
		t.Fatalf("mark paid must succeed even when customer is unreachable: %v", err)
	}
	if err := f.service.CancelByAdmin(ctx, f.order.ID, 7); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	updates := f.repo.Updates()
	if updates[0].Reason != "confirmed by admin 7" {
		t.Fatalf("unexpected reason %q", updates[0].Reason)
	}

	second, _ := f.repo.Create(ctx, model.Order{CustomerID: 43})
	if err := f.service.CancelByAdmin(ctx, second.ID, 7); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	msgs := f.text.Messages()
	if len(msgs) != 1 || msgs[0].ChatID != 43 {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestInitiateReportsCancelFailure(t *testing.T) {
	f := newFixture(t, func(Sender) Adapter { return failingAdapter{err: errors.New("down")} })
	f.repo.UpdateStatusFn = func(context.Context, int64, model.OrderStatus, string) error {
		return errors.New("db down")
	}

	err := f.service.Initiate(context.Background(), f.order)
	if !IsRejected(err) || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected combined failure, got %v", err)
	}
	if f.order.Status != model.OrderStatusCreated {
		t.Fatalf("status must stay created when cancel failed, got %s", f.order.Status)
	}
}
