package domain

import (
	"time"
)

// OrderStatus tracks a wholesale order through delivery
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderDispatched OrderStatus = "Dispatched"
	OrderDelivered  OrderStatus = "Delivered"
)

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderDispatched, OrderDelivered:
		return true
	}
	return false
}

// OrderItem is one product line of an order
type OrderItem struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// Order is a wholesale order placed by an employee for an outlet
type Order struct {
	ID            string      `json:"id"`
	CreatedAt     time.Time   `json:"createdAt"`
	EmployeeEmail string      `json:"employeeEmail"`
	OutletName    string      `json:"outletName"`
	Items         []OrderItem `json:"items"`
	Status        OrderStatus `json:"status"`
	TotalQuantity int         `json:"totalQuantity"`
}

// OrderFilter narrows ListAll results
type OrderFilter struct {
	Search string
	Date   *time.Time
}

// TotalQuantity sums item quantities
func TotalQuantity(items []OrderItem) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}
