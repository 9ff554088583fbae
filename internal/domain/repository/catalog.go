package repository

import (
	"context"

	"github.com/polkiloo/flowershop/internal/domain/model"
)

// CatalogRepository describes persistence operations with bouquets.
type CatalogRepository interface {
	ListAvailable(ctx context.Context) ([]model.Bouquet, error)
	ListAvailableBySize(ctx context.Context, size model.Size) ([]model.Bouquet, error)
	List(ctx context.Context) ([]model.Bouquet, error)
	Get(ctx context.Context, id int64) (*model.Bouquet, error)
	GetByNumber(ctx context.Context, size model.Size, number int) (*model.Bouquet, error)
	Create(ctx context.Context, bouquet model.Bouquet) (*model.Bouquet, error)
	SetInStock(ctx context.Context, id int64, inStock bool) error
	SetImage(ctx context.Context, id int64, ref string) error
}
