package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/model"
	"github.com/ridwanfathin/labellens-service/internal/service"
)

// OrderHandler handles HTTP requests for wholesale orders
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrder handles the POST /v1/orders endpoint
// @Summary Place a wholesale order
// @Description Duplicate product lines are merged by summing their quantity
// @Tags orders
// @Accept json
// @Produce json
// @Param order body model.PlaceOrderRequest true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 422 {object} model.ErrorResponse "Validation failed"
// @Router /v1/orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req model.PlaceOrderRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), service.PlaceOrderRequest{
		EmployeeEmail: req.EmployeeEmail,
		OutletName:    req.OutletName,
		Items:         model.ToDomainItems(req.Items),
	})
	if err != nil {
		respondError(c, "failed_to_place_order", err)
		return
	}
	respondCreated(c, order)
}

// ListMyOrders handles the GET /v1/orders endpoint
// @Summary List an employee's orders
// @Tags orders
// @Produce json
// @Param employee query string true "Employee email"
// @Success 200 {object} model.OrdersListResponse
// @Failure 400 {object} model.ErrorResponse "Missing employee"
// @Router /v1/orders [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	email := strings.TrimSpace(c.Query("employee"))
	if email == "" {
		respondBadRequest(c, ErrInvalidQueryParams, newErrorDetail("employee", "is required"))
		return
	}

	orders, err := h.orderService.ListByEmployee(c.Request.Context(), email)
	if err != nil {
		respondError(c, "failed_to_list_orders", err)
		return
	}
	respondOK(c, model.NewOrdersListResponse(orders))
}

// ListAllOrders handles the GET /v1/orders/all endpoint
// @Summary List every order
// @Tags orders
// @Produce json
// @Param search query string false "Outlet, employee or product"
// @Param date query string false "Creation day (YYYY-MM-DD)"
// @Success 200 {object} model.OrdersListResponse
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Router /v1/orders/all [get]
func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		respondBadRequest(c, ErrInvalidQueryParams, newErrorDetail("date", err.Error()))
		return
	}

	orders, err := h.orderService.ListAll(c.Request.Context(), domain.OrderFilter{
		Search: c.Query("search"),
		Date:   date,
	})
	if err != nil {
		respondError(c, "failed_to_list_all_orders", err)
		return
	}
	respondOK(c, model.NewOrdersListResponse(orders))
}

// UpdateOrderStatus handles the PATCH /v1/orders/:id/status endpoint
// @Summary Change an order's status
// @Tags orders
// @Accept json
// @Param id path string true "Order id"
// @Param request body model.UpdateOrderStatusRequest true "New status"
// @Success 204
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Failure 422 {object} model.ErrorResponse "Unknown status"
// @Router /v1/orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := getPathParam(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidID)
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}

	if err := h.orderService.UpdateStatus(c.Request.Context(), id, domain.OrderStatus(req.Status)); err != nil {
		respondError(c, "failed_to_update_order_status", err)
		return
	}
	respondNoContent(c)
}

// UpdateOrderItems handles the PUT /v1/orders/:id/items endpoint
// @Summary Replace the items of a pending order
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order id"
// @Param request body model.UpdateOrderItemsRequest true "Items"
// @Success 200 {object} domain.Order
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Failure 422 {object} model.ErrorResponse "Order is no longer pending"
// @Router /v1/orders/{id}/items [put]
func (h *OrderHandler) UpdateOrderItems(c *gin.Context) {
	id, err := getPathParam(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidID)
		return
	}

	var req model.UpdateOrderItemsRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}

	order, err := h.orderService.UpdateItems(c.Request.Context(), id, model.ToDomainItems(req.Items))
	if err != nil {
		respondError(c, "failed_to_update_order_items", err)
		return
	}
	respondOK(c, order)
}
