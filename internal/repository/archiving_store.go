package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// ImageArchive is an off-device copy of confirmed images
type ImageArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// ArchivingStore mirrors confirmed images to an ImageArchive. Archive
// failures are logged and never fail the wrapped store call.
type ArchivingStore struct {
	Store
	archive ImageArchive
	logger  zerolog.Logger
}

// NewArchivingStore wraps next
func NewArchivingStore(next Store, archive ImageArchive, logger zerolog.Logger) *ArchivingStore {
	return &ArchivingStore{
		Store:   next,
		archive: archive,
		logger:  logger.With().Str("component", "archive").Logger(),
	}
}

// ArchiveKey is the object key of a confirmed product image
func ArchiveKey(timestamp int64, mimeType string) string {
	ext := "bin"
	if strings.HasPrefix(mimeType, "image/") {
		ext = strings.TrimPrefix(mimeType, "image/")
		if ext == "jpeg" {
			ext = "jpg"
		}
	}
	return fmt.Sprintf("products/%d.%s", timestamp, ext)
}

func (s *ArchivingStore) AddConfirmed(ctx context.Context, product domain.ConfirmedProduct) (int64, error) {
	ts, err := s.Store.AddConfirmed(ctx, product)
	if err != nil {
		return 0, err
	}
	s.put(ctx, product)
	return ts, nil
}

func (s *ArchivingStore) PromotePending(ctx context.Context, id int64, product domain.ConfirmedProduct) (int64, error) {
	ts, err := s.Store.PromotePending(ctx, id, product)
	if err != nil {
		return 0, err
	}
	s.put(ctx, product)
	return ts, nil
}

func (s *ArchivingStore) RemoveConfirmed(ctx context.Context, timestamp int64) error {
	// the key depends on the MIME type, so look the product up first
	mimeType := ""
	if p, err := s.Store.GetConfirmed(ctx, timestamp); err == nil {
		mimeType = p.MIMEType
	} else if !domain.IsNotFound(err) {
		s.logger.Warn().Err(err).Int64("timestamp", timestamp).Msg("archived image not removed")
	}

	if err := s.Store.RemoveConfirmed(ctx, timestamp); err != nil {
		return err
	}
	if mimeType != "" {
		s.delete(ctx, ArchiveKey(timestamp, mimeType))
	}
	return nil
}

func (s *ArchivingStore) RemoveAllConfirmed(ctx context.Context) error {
	products, listErr := s.Store.ListConfirmed(ctx)

	if err := s.Store.RemoveAllConfirmed(ctx); err != nil {
		return err
	}
	if listErr != nil {
		s.logger.Warn().Err(listErr).Msg("archived images not removed")
		return nil
	}
	for _, p := range products {
		s.delete(ctx, ArchiveKey(p.Timestamp, p.MIMEType))
	}
	return nil
}

func (s *ArchivingStore) put(ctx context.Context, product domain.ConfirmedProduct) {
	key := ArchiveKey(product.Timestamp, product.MIMEType)
	if err := s.archive.Put(ctx, key, product.Image, product.MIMEType); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to archive image")
		return
	}
	s.logger.Debug().Str("key", key).Msg("archived image")
}

func (s *ArchivingStore) delete(ctx context.Context, key string) {
	if err := s.archive.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to remove archived image")
	}
}
