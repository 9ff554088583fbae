package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/storage/memory"
	"github.com/polkiloo/flowershop/internal/test"
)

type workflowFixture struct {
	workflow *WorkflowUseCase
	catalog  *test.CatalogRepositoryStub
	orders   *test.OrderRepositoryStub
	sessions *memory.SessionStore
	payments *test.PaymentInitiatorStub
	notifier *test.OrderNotifierStub
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		catalog: test.NewCatalogRepositoryStub(
			model.Bouquet{ID: 1, Size: model.SizeSmall, Number: 1, Title: "Roses", Price: 1000, InStock: true},
			model.Bouquet{ID: 2, Size: model.SizeSmall, Number: 2, Title: "Tulips", Price: 500, InStock: true},
			model.Bouquet{ID: 3, Size: model.SizeBig, Number: 1, Title: "Lilies", Price: 3000, InStock: false},
			model.Bouquet{ID: 4, Size: model.SizeMedium, Number: 1, Title: "Peonies", Price: 2000, InStock: true},
		),
		orders:   test.NewOrderRepositoryStub(),
		sessions: memory.NewSessionStore(0),
		payments: &test.PaymentInitiatorStub{},
		notifier: &test.OrderNotifierStub{},
	}
	f.workflow = NewWorkflowUseCase(f.catalog, f.orders, f.sessions, f.payments, f.notifier, discardLogger(), nil)
	return f
}

func (f *workflowFixture) checkout(t *testing.T, customerID int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.workflow.Checkout(ctx, customerID); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := f.workflow.SetAddress(ctx, customerID, "Main street 1"); err != nil {
		t.Fatalf("set address: %v", err)
	}
	if _, err := f.workflow.SetDeliveryTime(ctx, customerID, "tomorrow 10:00"); err != nil {
		t.Fatalf("set delivery time: %v", err)
	}
}

func TestWorkflowCheckoutScenario(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	if _, err := f.workflow.AddItem(ctx, 7, 1, 2); err != nil {
		t.Fatalf("add roses: %v", err)
	}
	view, err := f.workflow.AddItem(ctx, 7, 2, 1)
	if err != nil {
		t.Fatalf("add tulips: %v", err)
	}
	if view.State != model.StateCartNonEmpty || view.Total != 2500 || len(view.Lines) != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}

	f.checkout(t, 7)

	order, err := f.workflow.Confirm(ctx, 7)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	f.workflow.Wait()

	if order.Total != 2500 || order.Status != model.OrderStatusCreated {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Address != "Main street 1" || order.DeliveryTime != "tomorrow 10:00" {
		t.Fatalf("unexpected delivery: %+v", order)
	}
	if len(order.Items) != 2 || order.Items[0].UnitPrice != 1000 || order.Items[0].Quantity != 2 || order.Items[1].Title != "Tulips" {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if calls := f.payments.Calls(); len(calls) != 1 || calls[0] != order.ID {
		t.Fatalf("expected payment initiation for order %d, got %v", order.ID, calls)
	}
	if announced := f.notifier.Announced(); len(announced) != 1 || announced[0].ID != order.ID {
		t.Fatalf("expected notification for order %d, got %+v", order.ID, announced)
	}

	if f.sessions.Len() != 0 {
		t.Fatal("expected completed session to be discarded")
	}
	snap, err := f.workflow.Snapshot(ctx, 7)
	if err != nil || snap.State != model.StateBrowsing || len(snap.Lines) != 0 {
		t.Fatalf("expected fresh session after completion: %+v err=%v", snap, err)
	}
}

func TestWorkflowEmptyCartCheckout(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	if _, err := f.workflow.Checkout(ctx, 1); !errors.Is(err, domainErrors.ErrEmptyCart) {
		t.Fatalf("expected empty cart, got %v", err)
	}

	_, _ = f.workflow.AddItem(ctx, 1, 1, 1)
	_, _ = f.workflow.RemoveItem(ctx, 1, 1)
	if _, err := f.workflow.Checkout(ctx, 1); !errors.Is(err, domainErrors.ErrEmptyCart) {
		t.Fatalf("expected empty cart after removal, got %v", err)
	}
	if _, err := f.workflow.Confirm(ctx, 1); !errors.Is(err, domainErrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if f.orders.Count() != 0 {
		t.Fatalf("expected no orders, got %d", f.orders.Count())
	}
}

func TestWorkflowUnavailableItemLeavesCartUntouched(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	if _, err := f.workflow.AddItem(ctx, 5, 1, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	before, _ := f.workflow.Snapshot(ctx, 5)

	if _, err := f.workflow.AddItem(ctx, 5, 3, 1); !errors.Is(err, domainErrors.ErrItemUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := f.workflow.AddItem(ctx, 5, 99, 1); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.workflow.AddItem(ctx, 5, 2, 0); !errors.Is(err, domainErrors.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}

	after, _ := f.workflow.Snapshot(ctx, 5)
	if fmt.Sprint(before.Lines) != fmt.Sprint(after.Lines) || before.State != after.State {
		t.Fatalf("cart changed: before=%+v after=%+v", before, after)
	}
}

func TestWorkflowOrderMatchesCartForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	available := []int64{1, 2, 4}
	prices := map[int64]int64{1: 1000, 2: 500, 4: 2000}

	for round := 0; round < 25; round++ {
		f := newWorkflowFixture(t)
		ctx := context.Background()
		customer := int64(round + 1)

		expected := make(map[int64]int)
		var order []int64
		steps := 1 + rng.Intn(8)
		for i := 0; i < steps; i++ {
			id := available[rng.Intn(len(available))]
			qty := 1 + rng.Intn(3)
			if _, err := f.workflow.AddItem(ctx, customer, id, qty); err != nil {
				t.Fatalf("add: %v", err)
			}
			if _, seen := expected[id]; !seen {
				order = append(order, id)
			}
			expected[id] += qty
		}

		f.checkout(t, customer)
		created, err := f.workflow.Confirm(ctx, customer)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		f.workflow.Wait()

		if len(created.Items) != len(order) {
			t.Fatalf("round %d: expected %d lines, got %d", round, len(order), len(created.Items))
		}
		var total int64
		for i, item := range created.Items {
			if item.BouquetID != order[i] || item.Quantity != expected[item.BouquetID] || item.UnitPrice != prices[item.BouquetID] {
				t.Fatalf("round %d: unexpected line %+v", round, item)
			}
			total += item.Subtotal()
		}
		if created.Total != total {
			t.Fatalf("round %d: total %d != %d", round, created.Total, total)
		}
	}
}

func TestWorkflowSelectSizeAndAddByNumber(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	if _, _, err := f.workflow.SelectSize(ctx, 1, "giant"); !errors.Is(err, domainErrors.ErrInvalidSize) {
		t.Fatalf("expected invalid size, got %v", err)
	}
	if _, err := f.workflow.AddByNumber(ctx, 1, 1, 1); !errors.Is(err, domainErrors.ErrInvalidState) {
		t.Fatalf("expected invalid state without size, got %v", err)
	}

	size, bouquets, err := f.workflow.SelectSize(ctx, 1, "small")
	if err != nil || size != model.SizeSmall || len(bouquets) != 2 {
		t.Fatalf("unexpected selection: %s %+v err=%v", size, bouquets, err)
	}
	snap, _ := f.workflow.Snapshot(ctx, 1)
	if snap.State != model.StateSelecting {
		t.Fatalf("expected selecting, got %s", snap.State)
	}

	view, err := f.workflow.AddByNumber(ctx, 1, 2, 3)
	if err != nil || len(view.Lines) != 1 || view.Lines[0].Bouquet.ID != 2 || view.Lines[0].Quantity != 3 {
		t.Fatalf("unexpected view: %+v err=%v", view, err)
	}
	if _, err := f.workflow.AddByNumber(ctx, 1, 9, 1); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, _, err := f.workflow.SelectSize(ctx, 1, "medium"); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap, _ = f.workflow.Snapshot(ctx, 1)
	if snap.State != model.StateCartNonEmpty || snap.Size != model.SizeMedium {
		t.Fatalf("expected cart state kept with new size, got %+v", snap)
	}
}

func TestWorkflowCheckoutValidation(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	if _, err := f.workflow.SetAddress(ctx, 1, "Main street 1"); !errors.Is(err, domainErrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}

	_, _ = f.workflow.AddItem(ctx, 1, 1, 1)
	if _, err := f.workflow.Checkout(ctx, 1); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := f.workflow.SetAddress(ctx, 1, "abc"); !errors.Is(err, domainErrors.ErrInvalidAddress) {
		t.Fatalf("expected invalid address, got %v", err)
	}
	if _, err := f.workflow.SetDeliveryTime(ctx, 1, "whenever"); !errors.Is(err, domainErrors.ErrInvalidDeliveryTime) {
		t.Fatalf("expected invalid time, got %v", err)
	}
	if _, err := f.workflow.Confirm(ctx, 1); !errors.Is(err, domainErrors.ErrInvalidState) {
		t.Fatalf("expected incomplete delivery, got %v", err)
	}
	if _, err := f.workflow.AddItem(ctx, 1, 2, 1); !errors.Is(err, domainErrors.ErrInvalidState) {
		t.Fatalf("expected add during checkout to be rejected, got %v", err)
	}

	view, err := f.workflow.SetAddress(ctx, 1, "Main street 1")
	if err != nil || view.Delivery.Address != "Main street 1" {
		t.Fatalf("unexpected view: %+v err=%v", view, err)
	}

	if _, err := f.workflow.Browse(ctx, 1); err != nil {
		t.Fatalf("browse: %v", err)
	}
	snap, _ := f.workflow.Snapshot(ctx, 1)
	if snap.State != model.StateCartNonEmpty || snap.Delivery.Address != "" || len(snap.Lines) != 1 {
		t.Fatalf("expected browse to leave checkout with cart kept: %+v", snap)
	}
}

func TestWorkflowConfirmRechecksStock(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	_, _ = f.workflow.AddItem(ctx, 1, 1, 1)
	f.checkout(t, 1)

	if err := f.catalog.SetInStock(ctx, 1, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := f.workflow.Confirm(ctx, 1); !errors.Is(err, domainErrors.ErrItemUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if f.orders.Count() != 0 {
		t.Fatal("no order must be created")
	}
	snap, _ := f.workflow.Snapshot(ctx, 1)
	if snap.State != model.StateCheckingOut {
		t.Fatalf("expected session unchanged, got %s", snap.State)
	}
}

func TestWorkflowRemoveUnavailableItemLeavesCheckout(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	_, _ = f.workflow.AddItem(ctx, 1, 1, 1)
	_, _ = f.workflow.AddItem(ctx, 1, 2, 2)
	f.checkout(t, 1)

	if err := f.catalog.SetInStock(ctx, 1, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := f.workflow.Confirm(ctx, 1); !errors.Is(err, domainErrors.ErrItemUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	view, err := f.workflow.RemoveItem(ctx, 1, 1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if view.State != model.StateCartNonEmpty || view.Delivery.Address != "" || len(view.Lines) != 1 {
		t.Fatalf("expected checkout left with tulips kept: %+v", view)
	}

	f.checkout(t, 1)
	order, err := f.workflow.Confirm(ctx, 1)
	if err != nil {
		t.Fatalf("confirm after remove: %v", err)
	}
	f.workflow.Wait()
	if order.Total != 1000 || len(order.Items) != 1 {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestWorkflowRemoveLastItemDuringCheckout(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	_, _ = f.workflow.AddItem(ctx, 1, 1, 1)
	f.checkout(t, 1)

	view, err := f.workflow.RemoveItem(ctx, 1, 1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if view.State != model.StateSelecting || len(view.Lines) != 0 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if _, err := f.workflow.Confirm(ctx, 1); !errors.Is(err, domainErrors.ErrInvalidState) {
		t.Fatalf("expected confirm outside checkout to be rejected, got %v", err)
	}
}

func TestWorkflowQuantityIsCapped(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	if _, err := f.workflow.AddItem(ctx, 1, 1, math.MaxInt); !errors.Is(err, domainErrors.ErrInvalidQuantity) {
		t.Fatalf("expected huge quantity rejected, got %v", err)
	}
	if _, err := f.workflow.AddItem(ctx, 1, 1, model.MaxQuantity); err != nil {
		t.Fatalf("add max: %v", err)
	}
	if _, err := f.workflow.AddItem(ctx, 1, 1, 1); !errors.Is(err, domainErrors.ErrInvalidQuantity) {
		t.Fatalf("expected quantity over cap rejected, got %v", err)
	}
	if _, _, err := f.workflow.SelectSize(ctx, 1, "small"); err != nil {
		t.Fatalf("select size: %v", err)
	}
	if _, err := f.workflow.AddByNumber(ctx, 1, 1, 1); !errors.Is(err, domainErrors.ErrInvalidQuantity) {
		t.Fatalf("expected quantity over cap rejected by number, got %v", err)
	}

	snap, _ := f.workflow.Snapshot(ctx, 1)
	if len(snap.Lines) != 1 || snap.Lines[0].Quantity != model.MaxQuantity || snap.Total != 1000*model.MaxQuantity {
		t.Fatalf("expected cart unchanged at cap, got %+v", snap.Lines)
	}
}

func TestWorkflowConfirmReturnsPaymentFailure(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.payments.InitiateFn = func(context.Context, *model.Order) error {
		return fmt.Errorf("%w: provider down", domainErrors.ErrPaymentFailure)
	}

	_, _ = f.workflow.AddItem(ctx, 1, 1, 1)
	f.checkout(t, 1)

	order, err := f.workflow.Confirm(ctx, 1)
	f.workflow.Wait()
	if !errors.Is(err, domainErrors.ErrPaymentFailure) {
		t.Fatalf("expected payment failure, got %v", err)
	}
	if order == nil || order.ID == 0 {
		t.Fatalf("expected created order to be returned, got %+v", order)
	}
	if f.sessions.Len() != 0 {
		t.Fatal("expected session to be discarded")
	}
}

func TestWorkflowConfirmCreateFailureKeepsSession(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.orders.CreateFn = func(context.Context, model.Order) (*model.Order, error) {
		return nil, errors.New("db down")
	}

	_, _ = f.workflow.AddItem(ctx, 1, 1, 1)
	f.checkout(t, 1)

	if _, err := f.workflow.Confirm(ctx, 1); err == nil {
		t.Fatal("expected error")
	}
	snap, _ := f.workflow.Snapshot(ctx, 1)
	if snap.State != model.StateCheckingOut || len(snap.Lines) != 1 {
		t.Fatalf("expected session unchanged: %+v", snap)
	}
	if len(f.payments.Calls()) != 0 || len(f.notifier.Announced()) != 0 {
		t.Fatal("payment and notification must not run for failed create")
	}
}

func TestWorkflowCancelDiscardsSession(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	_, _ = f.workflow.AddItem(ctx, 1, 1, 2)
	if err := f.workflow.Cancel(ctx, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	snap, _ := f.workflow.Snapshot(ctx, 1)
	if len(snap.Lines) != 0 || snap.State != model.StateBrowsing {
		t.Fatalf("expected empty session after cancel: %+v", snap)
	}
	if f.orders.Count() != 0 {
		t.Fatal("cancel must not create orders")
	}
}

func TestWorkflowSerializesCustomerUpdates(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.workflow.AddItem(ctx, 1, 1, 1); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	snap, _ := f.workflow.Snapshot(ctx, 1)
	if len(snap.Lines) != 1 || snap.Lines[0].Quantity != n {
		t.Fatalf("expected quantity %d, got %+v", n, snap.Lines)
	}
}

func TestWorkflowSharedLockStripe(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	if stripe(5) != stripe(5+lockStripes) || stripe(-1) < 0 {
		t.Fatal("unexpected stripe mapping")
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for _, id := range []int64{5, 5 + lockStripes} {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if _, err := f.workflow.AddItem(ctx, id, 2, 1); err != nil {
					t.Errorf("add: %v", err)
				}
			}(id)
		}
	}
	wg.Wait()

	for _, id := range []int64{5, 5 + lockStripes} {
		snap, _ := f.workflow.Snapshot(ctx, id)
		if len(snap.Lines) != 1 || snap.Lines[0].Quantity != n {
			t.Fatalf("customer %d: expected quantity %d, got %+v", id, n, snap.Lines)
		}
	}
}
