package model

import (
	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// OrderItemRequest is one line of an order request
type OrderItemRequest struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// PlaceOrderRequest places a new wholesale order
type PlaceOrderRequest struct {
	EmployeeEmail string             `json:"employeeEmail"`
	OutletName    string             `json:"outletName"`
	Items         []OrderItemRequest `json:"items"`
}

// UpdateOrderStatusRequest moves an order to a new status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderItemsRequest replaces the items of a pending order
type UpdateOrderItemsRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// OrdersListResponse lists orders
type OrdersListResponse struct {
	Data  []domain.Order `json:"data"`
	Total int            `json:"total"`
}

// ToDomainItems converts request lines to domain items
func ToDomainItems(items []OrderItemRequest) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.OrderItem{ProductName: it.ProductName, Quantity: it.Quantity})
	}
	return out
}

// NewOrdersListResponse wraps a list of orders
func NewOrdersListResponse(orders []domain.Order) OrdersListResponse {
	if orders == nil {
		orders = []domain.Order{}
	}
	return OrdersListResponse{Data: orders, Total: len(orders)}
}
