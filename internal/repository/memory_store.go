package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// MemoryStore is a Store kept in process memory
type MemoryStore struct {
	mu        sync.Mutex
	nextID    int64
	pending   map[int64]domain.QueuedImage
	confirmed map[int64]domain.ConfirmedProduct
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending:   make(map[int64]domain.QueuedImage),
		confirmed: make(map[int64]domain.ConfirmedProduct),
	}
}

func (s *MemoryStore) Enqueue(_ context.Context, item domain.QueuedImage) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	item.ID = s.nextID
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}
	item.Prefilled = item.Prefilled.Clone()
	s.pending[item.ID] = item
	return item.ID, nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]domain.QueuedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.QueuedImage, 0, len(s.pending))
	for _, item := range s.pending {
		item.Prefilled = item.Prefilled.Clone()
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *MemoryStore) GetPending(_ context.Context, id int64) (domain.QueuedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.pending[id]
	if !ok {
		return domain.QueuedImage{}, &domain.NotFoundError{Collection: CollectionPending, Key: id}
	}
	item.Prefilled = item.Prefilled.Clone()
	return item, nil
}

func (s *MemoryStore) UpdatePendingFields(_ context.Context, id int64, fields domain.PartialDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.pending[id]
	if !ok {
		return &domain.NotFoundError{Collection: CollectionPending, Key: id}
	}
	item.Prefilled = item.Prefilled.Merge(fields)
	s.pending[id] = item
	return nil
}

func (s *MemoryStore) RemovePending(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
	return nil
}

func (s *MemoryStore) AddConfirmed(_ context.Context, product domain.ConfirmedProduct) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmed[product.Timestamp] = product
	return product.Timestamp, nil
}

func (s *MemoryStore) PromotePending(_ context.Context, id int64, product domain.ConfirmedProduct) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmed[product.Timestamp] = product
	delete(s.pending, id)
	return product.Timestamp, nil
}

func (s *MemoryStore) ListConfirmed(_ context.Context) ([]domain.ConfirmedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]domain.ConfirmedProduct, 0, len(s.confirmed))
	for _, p := range s.confirmed {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Timestamp < products[j].Timestamp })
	return products, nil
}

func (s *MemoryStore) GetConfirmed(_ context.Context, timestamp int64) (domain.ConfirmedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.confirmed[timestamp]
	if !ok {
		return domain.ConfirmedProduct{}, &domain.NotFoundError{Collection: CollectionConfirmed, Key: timestamp}
	}
	return p, nil
}

func (s *MemoryStore) UpdateConfirmed(_ context.Context, timestamp int64, details domain.ProductDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.confirmed[timestamp]
	if !ok {
		return &domain.NotFoundError{Collection: CollectionConfirmed, Key: timestamp}
	}
	p.Details = details
	s.confirmed[timestamp] = p
	return nil
}

func (s *MemoryStore) RemoveConfirmed(_ context.Context, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.confirmed, timestamp)
	return nil
}

func (s *MemoryStore) RemoveAllConfirmed(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmed = make(map[int64]domain.ConfirmedProduct)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
