package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/domain/repository"
)

// CatalogUseCase serves catalog reads and admin catalog management.
type CatalogUseCase struct {
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

// NewCatalogUseCase constructs CatalogUseCase.
func NewCatalogUseCase(catalog repository.CatalogRepository, logger *slog.Logger) *CatalogUseCase {
	return &CatalogUseCase{catalog: catalog, logger: logger}
}

// demoBouquets are inserted by Seed; image references are placeholders until admins upload photos.
var demoBouquets = []model.Bouquet{
	{Size: model.SizeSmall, Number: 1, Title: "Bouquet of Peonies", Price: 4500, InStock: true},
	{Size: model.SizeSmall, Number: 2, Title: "Bouquet of Spray Roses", Price: 6000, InStock: true},
	{Size: model.SizeMedium, Number: 3, Title: "Bouquet of Garden Roses", Price: 7500, InStock: true},
}

// ListAvailable returns in-stock bouquets ordered by size then number.
func (u *CatalogUseCase) ListAvailable(ctx context.Context) ([]model.Bouquet, error) {
	return u.catalog.ListAvailable(ctx)
}

// ListAvailableBySize returns in-stock bouquets of a size.
func (u *CatalogUseCase) ListAvailableBySize(ctx context.Context, size model.Size) ([]model.Bouquet, error) {
	if _, ok := model.ParseSize(string(size)); !ok {
		return nil, domainErrors.ErrInvalidSize
	}
	return u.catalog.ListAvailableBySize(ctx, size)
}

// List returns the whole catalog including out of stock items.
func (u *CatalogUseCase) List(ctx context.Context) ([]model.Bouquet, error) {
	return u.catalog.List(ctx)
}

func (u *CatalogUseCase) Get(ctx context.Context, id int64) (*model.Bouquet, error) {
	return u.catalog.Get(ctx, id)
}

func (u *CatalogUseCase) GetByNumber(ctx context.Context, size model.Size, number int) (*model.Bouquet, error) {
	return u.catalog.GetByNumber(ctx, size, number)
}

// Create validates and stores a new bouquet.
func (u *CatalogUseCase) Create(ctx context.Context, bouquet model.Bouquet) (*model.Bouquet, error) {
	if _, ok := model.ParseSize(string(bouquet.Size)); !ok {
		return nil, domainErrors.ErrInvalidSize
	}
	bouquet.Title = strings.TrimSpace(bouquet.Title)
	switch {
	case bouquet.Title == "":
		return nil, fmt.Errorf("%w: title is required", domainErrors.ErrInvalidBouquet)
	case bouquet.Number < 1:
		return nil, fmt.Errorf("%w: number must be positive", domainErrors.ErrInvalidBouquet)
	case bouquet.Price < 0:
		return nil, fmt.Errorf("%w: price must not be negative", domainErrors.ErrInvalidBouquet)
	}

	created, err := u.catalog.Create(ctx, bouquet)
	if err != nil {
		return nil, err
	}
	u.logger.Info("bouquet created",
		slog.Int64("bouquet_id", created.ID),
		slog.String("size", string(created.Size)),
		slog.Int("number", created.Number))
	return created, nil
}

// ToggleStock flips availability flag and returns updated bouquet.
func (u *CatalogUseCase) ToggleStock(ctx context.Context, id int64) (*model.Bouquet, error) {
	bouquet, err := u.catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bouquet.InStock = !bouquet.InStock
	if err := u.catalog.SetInStock(ctx, id, bouquet.InStock); err != nil {
		return nil, err
	}
	return bouquet, nil
}

// SetImage attaches photo reference to bouquet.
func (u *CatalogUseCase) SetImage(ctx context.Context, id int64, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("%w: image reference is required", domainErrors.ErrInvalidBouquet)
	}
	return u.catalog.SetImage(ctx, id, ref)
}

// Seed inserts demo bouquets, skipping those already present. Returns number inserted.
func (u *CatalogUseCase) Seed(ctx context.Context) (int, error) {
	var added int
	for _, b := range demoBouquets {
		if _, err := u.catalog.Create(ctx, b); err != nil {
			if errors.Is(err, domainErrors.ErrAlreadyExists) {
				continue
			}
			return added, fmt.Errorf("seed catalog: %w", err)
		}
		added++
	}
	return added, nil
}
