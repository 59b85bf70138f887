package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

var (
	// ErrOrderNotFound is returned when an order id does not exist
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNotPending is returned when items change on an order that has left Pending
	ErrOrderNotPending = errors.New("order is no longer pending")
)

// OrderRepository persists wholesale orders
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByEmployee(ctx context.Context, email string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	ReplaceItems(ctx context.Context, id string, items []domain.OrderItem) error
}

// orderRecord is the orders table
type orderRecord struct {
	ID            string            `gorm:"column:id;primaryKey;type:uuid"`
	CreatedAt     time.Time         `gorm:"column:created_at;index"`
	EmployeeEmail string            `gorm:"column:employee_email;type:varchar(255);index"`
	OutletName    string            `gorm:"column:outlet_name;type:varchar(255)"`
	Status        string            `gorm:"column:status;type:varchar(20);default:'Pending'"`
	TotalQuantity int               `gorm:"column:total_quantity"`
	Items         []orderItemRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRecord) TableName() string { return "orders" }

// orderItemRecord is one line of an order
type orderItemRecord struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     string `gorm:"column:order_id;type:uuid;index"`
	Position    int    `gorm:"column:position"`
	ProductName string `gorm:"column:product_name;type:varchar(255)"`
	Quantity    int    `gorm:"column:quantity"`
}

func (orderItemRecord) TableName() string { return "order_items" }

// GormOrderRepository implements OrderRepository with gorm on PostgreSQL
type GormOrderRepository struct {
	db *gorm.DB
}

// OpenOrderDB connects gorm to PostgreSQL and migrates the order tables
func OpenOrderDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("ORDERS_DB_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect orders database: %w", err)
	}

	if err := db.AutoMigrate(&orderRecord{}, &orderItemRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate orders schema: %w", err)
	}
	return db, nil
}

// NewGormOrderRepository creates a repository on an open gorm handle
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create inserts an order and its items, assigning an id when empty
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	rec := toOrderRecord(order)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID loads a single order
func (r *GormOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var rec orderRecord
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	order := fromOrderRecord(rec)
	return &order, nil
}

// ListByEmployee returns an employee's orders, newest first
func (r *GormOrderRepository) ListByEmployee(ctx context.Context, email string) ([]domain.Order, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("employee_email = ?", email))
}

// ListAll returns every order, newest first
func (r *GormOrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, r.db.WithContext(ctx))
}

func (r *GormOrderRepository) list(_ context.Context, q *gorm.DB) ([]domain.Order, error) {
	var recs []orderRecord
	err := q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(recs))
	for _, rec := range recs {
		orders = append(orders, fromOrderRecord(rec))
	}
	return orders, nil
}

// UpdateStatus sets an order's status
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ReplaceItems swaps the items of a Pending order and recomputes its total.
// The status is checked in the same statement that claims the row.
func (r *GormOrderRepository) ReplaceItems(ctx context.Context, id string, items []domain.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orderRecord{}).
			Where("id = ? AND status = ?", id, string(domain.OrderPending)).
			Update("total_quantity", domain.TotalQuantity(items))
		if res.Error != nil {
			return fmt.Errorf("failed to update order total: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&orderRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to look up order: %w", err)
			}
			if count == 0 {
				return ErrOrderNotFound
			}
			return ErrOrderNotPending
		}

		if err := tx.Where("order_id = ?", id).Delete(&orderItemRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear order items: %w", err)
		}

		recs := toItemRecords(id, items)
		if len(recs) == 0 {
			return nil
		}
		if err := tx.Create(&recs).Error; err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
		}
		return nil
	})
}

func toOrderRecord(o *domain.Order) orderRecord {
	return orderRecord{
		ID:            o.ID,
		CreatedAt:     o.CreatedAt,
		EmployeeEmail: o.EmployeeEmail,
		OutletName:    o.OutletName,
		Status:        string(o.Status),
		TotalQuantity: o.TotalQuantity,
		Items:         toItemRecords(o.ID, o.Items),
	}
}

func toItemRecords(orderID string, items []domain.OrderItem) []orderItemRecord {
	recs := make([]orderItemRecord, 0, len(items))
	for i, it := range items {
		recs = append(recs, orderItemRecord{
			OrderID:     orderID,
			Position:    i,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
		})
	}
	return recs
}

func fromOrderRecord(rec orderRecord) domain.Order {
	items := make([]domain.OrderItem, 0, len(rec.Items))
	for _, it := range rec.Items {
		items = append(items, domain.OrderItem{ProductName: it.ProductName, Quantity: it.Quantity})
	}
	return domain.Order{
		ID:            rec.ID,
		CreatedAt:     rec.CreatedAt,
		EmployeeEmail: rec.EmployeeEmail,
		OutletName:    rec.OutletName,
		Items:         items,
		Status:        domain.OrderStatus(rec.Status),
		TotalQuantity: rec.TotalQuantity,
	}
}
