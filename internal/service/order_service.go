package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/repository"
)

// ErrOrderLocked is returned when items of a dispatched or delivered order are edited
var ErrOrderLocked = &domain.ValidationError{Fields: map[string]string{"status": "items can only be changed while the order is Pending"}}

// PlaceOrderRequest is the input of PlaceOrder
type PlaceOrderRequest struct {
	EmployeeEmail string
	OutletName    string
	Items         []domain.OrderItem
}

// OrderService defines the wholesale order operations
type OrderService interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error)
	ListByEmployee(ctx context.Context, email string) ([]domain.Order, error)
	ListAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	UpdateItems(ctx context.Context, id string, items []domain.OrderItem) (*domain.Order, error)
}

// OrderServiceImpl implements OrderService
type OrderServiceImpl struct {
	repository repository.OrderRepository
	logger     zerolog.Logger
	now        func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(repo repository.OrderRepository, logger zerolog.Logger) OrderService {
	return &OrderServiceImpl{
		repository: repo,
		logger:     logger.With().Str("component", "orders").Logger(),
		now:        time.Now,
	}
}

// PlaceOrder validates and stores a new Pending order
func (s *OrderServiceImpl) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	fields := map[string]string{}
	outlet := strings.TrimSpace(req.OutletName)
	if outlet == "" {
		fields["outletName"] = "is required"
	}
	if strings.TrimSpace(req.EmployeeEmail) == "" {
		fields["employeeEmail"] = "is required"
	}
	items, err := normalizeItems(req.Items)
	if err != nil {
		for k, v := range err.Fields {
			fields[k] = v
		}
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	order := &domain.Order{
		CreatedAt:     s.now().UTC(),
		EmployeeEmail: strings.TrimSpace(req.EmployeeEmail),
		OutletName:    outlet,
		Items:         items,
		Status:        domain.OrderPending,
		TotalQuantity: domain.TotalQuantity(items),
	}
	if err := s.repository.Create(ctx, order); err != nil {
		return nil, &Error{Op: "create_order", Err: err}
	}

	s.logger.Info().Str("order_id", order.ID).Int("total", order.TotalQuantity).Msg("order placed")
	return order, nil
}

// ListByEmployee returns one employee's orders, newest first
func (s *OrderServiceImpl) ListByEmployee(ctx context.Context, email string) ([]domain.Order, error) {
	orders, err := s.repository.ListByEmployee(ctx, email)
	if err != nil {
		return nil, &Error{Op: "list_orders", Err: err}
	}
	return orders, nil
}

// ListAll returns every order, newest first, narrowed by filter
func (s *OrderServiceImpl) ListAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	orders, err := s.repository.ListAll(ctx)
	if err != nil {
		return nil, &Error{Op: "list_all_orders", Err: err}
	}

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if filter.Date != nil && !sameDay(o.CreatedAt, *filter.Date) {
			continue
		}
		if term != "" && !orderMatches(o, term) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// UpdateStatus moves an order to a new status
func (s *OrderServiceImpl) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if !status.Valid() {
		return &domain.ValidationError{Fields: map[string]string{"status": "must be Pending, Dispatched or Delivered"}}
	}
	if err := s.repository.UpdateStatus(ctx, id, status); err != nil {
		return &Error{Op: "update_order_status", Err: err}
	}
	s.logger.Info().Str("order_id", id).Str("status", string(status)).Msg("order status updated")
	return nil
}

// UpdateItems replaces the items of a Pending order
func (s *OrderServiceImpl) UpdateItems(ctx context.Context, id string, items []domain.OrderItem) (*domain.Order, error) {
	normalized, verr := normalizeItems(items)
	if verr != nil {
		return nil, verr
	}

	order, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, &Error{Op: "get_order", Err: err}
	}
	if order.Status != domain.OrderPending {
		return nil, ErrOrderLocked
	}

	if err := s.repository.ReplaceItems(ctx, id, normalized); err != nil {
		if errors.Is(err, repository.ErrOrderNotPending) {
			// the status moved on after the check above
			return nil, ErrOrderLocked
		}
		return nil, &Error{Op: "replace_order_items", Err: err}
	}

	order.Items = normalized
	order.TotalQuantity = domain.TotalQuantity(normalized)
	return order, nil
}

// normalizeItems trims names, rejects empty lines and merges duplicates by
// summing their quantity. First occurrence keeps its position.
func normalizeItems(items []domain.OrderItem) ([]domain.OrderItem, *domain.ValidationError) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Fields: map[string]string{"items": "at least one item is required"}}
	}

	out := make([]domain.OrderItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.ProductName)
		if name == "" {
			return nil, &domain.ValidationError{Fields: map[string]string{"items": "product name is required"}}
		}
		if it.Quantity <= 0 {
			return nil, &domain.ValidationError{Fields: map[string]string{"items": "quantity must be greater than zero"}}
		}

		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, domain.OrderItem{ProductName: name, Quantity: it.Quantity})
	}
	return out, nil
}

func orderMatches(o domain.Order, term string) bool {
	if strings.Contains(strings.ToLower(o.OutletName), term) ||
		strings.Contains(strings.ToLower(o.EmployeeEmail), term) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.ProductName), term) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
