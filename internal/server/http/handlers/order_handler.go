package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/server/http/dto"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Get handles GET /api/admin/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := h.facade.Order(ctx, id)
	if err != nil {
		c.Status(statusFor(err))
		return
	}
	history, err := h.facade.OrderHistory(ctx, id)
	if err != nil {
		c.Status(statusFor(err))
		return
	}

	response := toOrderResponse(*order)
	for _, change := range history {
		response.History = append(response.History, dto.StatusChangeResponse{
			From:   string(change.From),
			To:     string(change.To),
			Reason: change.Reason,
			At:     change.At,
		})
	}
	c.JSON(http.StatusOK, response)
}

// ListByCustomer handles GET /api/admin/customers/:id/orders.
func (h *OrderHandler) ListByCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	orders, err := h.facade.CustomerOrders(c.Request.Context(), id)
	if err != nil {
		c.Status(statusFor(err))
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, response)
}

// SetStatus handles POST /api/admin/orders/:id/status.
func (h *OrderHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	status, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.facade.SetOrderStatus(c.Request.Context(), id, status, req.AdminID); err != nil {
		c.Status(statusFor(err))
		return
	}
	c.Status(http.StatusOK)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.Status(http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		return http.StatusConflict
	case domainErrors.IsUserError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	items := make([]dto.LineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.LineItemResponse{
			BouquetID: item.BouquetID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: model.Amount(item.UnitPrice),
			Subtotal:  model.Amount(item.Subtotal()),
		})
	}
	return dto.OrderResponse{
		ID:           order.ID,
		CustomerID:   order.CustomerID,
		Status:       string(order.Status),
		Total:        model.Amount(order.Total),
		Address:      order.Address,
		DeliveryTime: order.DeliveryTime,
		Items:        items,
		CreatedAt:    order.CreatedAt,
	}
}
