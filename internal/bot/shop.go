package bot

import (
	"context"

	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/usecase"
)

// Shop lists operations available to bot conversations.
type Shop interface {
	Browse(ctx context.Context, customerID int64) ([]model.Bouquet, error)
	SelectSize(ctx context.Context, customerID int64, size string) (model.Size, []model.Bouquet, error)
	AddByNumber(ctx context.Context, customerID int64, number, quantity int) (*usecase.SessionView, error)
	RemoveFromCart(ctx context.Context, customerID, bouquetID int64) (*usecase.SessionView, error)
	Session(ctx context.Context, customerID int64) (*usecase.SessionView, error)
	StartCheckout(ctx context.Context, customerID int64) (*usecase.SessionView, error)
	SetAddress(ctx context.Context, customerID int64, address string) (*usecase.SessionView, error)
	SetDeliveryTime(ctx context.Context, customerID int64, value string) (*usecase.SessionView, error)
	PlaceOrder(ctx context.Context, customerID int64) (*model.Order, error)
	CancelSession(ctx context.Context, customerID int64) error
	CustomerOrders(ctx context.Context, customerID int64) ([]model.Order, error)

	ManualPayments() bool
	PreCheckout(ctx context.Context, payload string, total int, currency string) error
	ConfirmPayment(ctx context.Context, payload, chargeID string) (*model.Order, error)
}

// AdminShop lists catalog and order management operations.
type AdminShop interface {
	AllBouquets(ctx context.Context) ([]model.Bouquet, error)
	CreateBouquet(ctx context.Context, bouquet model.Bouquet) (*model.Bouquet, error)
	ToggleStock(ctx context.Context, id int64) (*model.Bouquet, error)
	SetBouquetImage(ctx context.Context, id int64, ref string) error
	SeedCatalog(ctx context.Context) (int, error)
	SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus, adminID int64) error
}

// ShopFacade aggregates operations used by the bot.
type ShopFacade interface {
	Shop
	AdminShop
}
