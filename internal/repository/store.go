package repository

import (
	"context"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// Collection names used in NotFoundError
const (
	CollectionPending   = "pending image"
	CollectionConfirmed = "confirmed product"
)

// Store persists the pending-image queue and the confirmed-product history.
// The two collections are independent. Implementations provide per-operation
// atomicity only; callers sequence conflicting writes themselves.
type Store interface {
	// Pending queue
	Enqueue(ctx context.Context, item domain.QueuedImage) (int64, error)
	ListPending(ctx context.Context) ([]domain.QueuedImage, error)
	GetPending(ctx context.Context, id int64) (domain.QueuedImage, error)
	UpdatePendingFields(ctx context.Context, id int64, fields domain.PartialDetails) error
	RemovePending(ctx context.Context, id int64) error

	// Confirmed history
	AddConfirmed(ctx context.Context, product domain.ConfirmedProduct) (int64, error)
	PromotePending(ctx context.Context, id int64, product domain.ConfirmedProduct) (int64, error)
	ListConfirmed(ctx context.Context) ([]domain.ConfirmedProduct, error)
	GetConfirmed(ctx context.Context, timestamp int64) (domain.ConfirmedProduct, error)
	UpdateConfirmed(ctx context.Context, timestamp int64, details domain.ProductDetails) error
	RemoveConfirmed(ctx context.Context, timestamp int64) error
	RemoveAllConfirmed(ctx context.Context) error

	Close() error
}

// LatestTimestamp returns the largest confirmed key, or 0 for an empty history
func LatestTimestamp(ctx context.Context, s Store) (int64, error) {
	products, err := s.ListConfirmed(ctx)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, nil
	}
	return products[len(products)-1].Timestamp, nil
}
