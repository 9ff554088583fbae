package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/server/http/dto"
)

// CatalogHandler serves bouquet listing.
type CatalogHandler struct {
	facade CatalogFacade
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(facade CatalogFacade) *CatalogHandler {
	return &CatalogHandler{facade: facade}
}

// List handles GET /api/catalog.
func (h *CatalogHandler) List(c *gin.Context) {
	bouquets, err := h.facade.Catalog(c.Request.Context())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	response := make([]dto.BouquetResponse, 0, len(bouquets))
	for _, b := range bouquets {
		response = append(response, toBouquetResponse(b))
	}
	c.JSON(http.StatusOK, response)
}

func toBouquetResponse(b model.Bouquet) dto.BouquetResponse {
	return dto.BouquetResponse{
		ID:      b.ID,
		Size:    string(b.Size),
		Number:  b.Number,
		Title:   b.Title,
		Price:   model.Amount(b.Price),
		InStock: b.InStock,
	}
}
