package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridwanfathin/labellens-service/internal/coord"
	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/notify"
	"github.com/ridwanfathin/labellens-service/internal/repository"
)

// MsgQueueItemRemoved is shown after an item is dropped from the queue
const MsgQueueItemRemoved = "Image removed from queue."

// Error represents a failed service operation
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusSource reports transient sync progress per queue id
type StatusSource interface {
	Statuses() map[int64]domain.Status
}

// QueueEntry is a pending item without its image bytes
type QueueEntry struct {
	ID         int64                 `json:"id"`
	Filename   string                `json:"filename"`
	MIMEType   string                `json:"mimeType"`
	Size       int                   `json:"size"`
	Prefilled  domain.PartialDetails `json:"prefilled"`
	EnqueuedAt time.Time             `json:"enqueuedAt"`
	Status     domain.Status         `json:"status,omitempty"`
}

// QueueService defines the operations on the pending queue exposed to clients
type QueueService interface {
	List(ctx context.Context) ([]QueueEntry, error)
	Image(ctx context.Context, id int64) ([]byte, string, error)
	UpdateFields(ctx context.Context, id int64, fields domain.PartialDetails) error
	Remove(ctx context.Context, id int64) error
}

// QueueServiceImpl implements QueueService
type QueueServiceImpl struct {
	store    repository.Store
	statuses StatusSource
	coord    *coord.Coordinator
	sink     notify.Sink
	logger   zerolog.Logger
}

// NewQueueService creates a new QueueService
func NewQueueService(store repository.Store, statuses StatusSource, c *coord.Coordinator, sink notify.Sink, logger zerolog.Logger) QueueService {
	if sink == nil {
		sink = notify.Discard
	}
	return &QueueServiceImpl{
		store:    store,
		statuses: statuses,
		coord:    c,
		sink:     sink,
		logger:   logger.With().Str("component", "queue").Logger(),
	}
}

// List returns pending items in queue order with their sync status
func (s *QueueServiceImpl) List(ctx context.Context) ([]QueueEntry, error) {
	items, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, &Error{Op: "list_queue", Err: err}
	}

	var statuses map[int64]domain.Status
	if s.statuses != nil {
		statuses = s.statuses.Statuses()
	}

	entries := make([]QueueEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, QueueEntry{
			ID:         item.ID,
			Filename:   item.Filename,
			MIMEType:   item.MIMEType,
			Size:       len(item.Image),
			Prefilled:  item.Prefilled,
			EnqueuedAt: item.EnqueuedAt,
			Status:     statuses[item.ID],
		})
	}
	return entries, nil
}

// Image returns the stored bytes of a pending item
func (s *QueueServiceImpl) Image(ctx context.Context, id int64) ([]byte, string, error) {
	item, err := s.store.GetPending(ctx, id)
	if err != nil {
		return nil, "", &Error{Op: "get_queue_image", Err: err}
	}
	return item.Image, item.MIMEType, nil
}

// UpdateFields merges operator input into a pending item's prefilled fields
func (s *QueueServiceImpl) UpdateFields(ctx context.Context, id int64, fields domain.PartialDetails) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	if _, held := s.coord.Claimed(id); held {
		return domain.ErrItemBusy
	}

	if err := s.store.UpdatePendingFields(ctx, id, fields); err != nil {
		return &Error{Op: "update_queue_fields", Err: err}
	}
	s.logger.Info().Int64("queue_id", id).Int("fields", len(fields)).Msg("queue item fields updated")
	return nil
}

// Remove drops an item from the queue. Items a pass or session is working on
// cannot be removed.
func (s *QueueServiceImpl) Remove(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, held := s.coord.Claimed(id); held {
		return domain.ErrItemBusy
	}

	if err := s.store.RemovePending(ctx, id); err != nil {
		return &Error{Op: "remove_queue_item", Err: err}
	}
	s.sink.Notify(MsgQueueItemRemoved, notify.Success)
	s.logger.Info().Int64("queue_id", id).Msg("queue item removed")
	return nil
}

func validateID(id int64) error {
	if id <= 0 {
		return &domain.ValidationError{Fields: map[string]string{"id": "must be a positive integer"}}
	}
	return nil
}
