package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridwanfathin/labellens-service/internal/database"
	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db   *database.PostgresDB
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on an open database. The schema is created
// by database.Migrate.
func NewPostgresStore(db *database.PostgresDB) *PostgresStore {
	return &PostgresStore{
		db:   db,
		pool: db.GetPool(),
	}
}

func (s *PostgresStore) Enqueue(ctx context.Context, item domain.QueuedImage) (int64, error) {
	prefilled := item.Prefilled
	if prefilled == nil {
		prefilled = domain.PartialDetails{}
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pending_images (filename, mime_type, image, prefilled)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING id
	`, item.Filename, item.MIMEType, item.Image, prefilled).Scan(&id)
	if err != nil {
		return 0, &domain.StorageError{Op: "enqueue", Err: err}
	}
	return id, nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]domain.QueuedImage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, mime_type, image, prefilled, enqueued_at
		FROM pending_images
		ORDER BY id
	`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list_pending", Err: err}
	}
	defer rows.Close()

	var items []domain.QueuedImage
	for rows.Next() {
		var item domain.QueuedImage
		if err := rows.Scan(&item.ID, &item.Filename, &item.MIMEType, &item.Image, &item.Prefilled, &item.EnqueuedAt); err != nil {
			return nil, &domain.StorageError{Op: "list_pending", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list_pending", Err: err}
	}
	return items, nil
}

func (s *PostgresStore) GetPending(ctx context.Context, id int64) (domain.QueuedImage, error) {
	var item domain.QueuedImage
	err := s.pool.QueryRow(ctx, `
		SELECT id, filename, mime_type, image, prefilled, enqueued_at
		FROM pending_images
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Filename, &item.MIMEType, &item.Image, &item.Prefilled, &item.EnqueuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QueuedImage{}, &domain.NotFoundError{Collection: CollectionPending, Key: id}
	}
	if err != nil {
		return domain.QueuedImage{}, &domain.StorageError{Op: "get_pending", Err: err}
	}
	return item, nil
}

func (s *PostgresStore) UpdatePendingFields(ctx context.Context, id int64, fields domain.PartialDetails) error {
	if fields == nil {
		fields = domain.PartialDetails{}
	}

	// jsonb concatenation merges keys, right side wins
	tag, err := s.pool.Exec(ctx, `
		UPDATE pending_images
		SET prefilled = prefilled || $2::jsonb
		WHERE id = $1
	`, id, fields)
	if err != nil {
		return &domain.StorageError{Op: "update_pending_fields", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Collection: CollectionPending, Key: id}
	}
	return nil
}

func (s *PostgresStore) RemovePending(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM pending_images WHERE id = $1`, id); err != nil {
		return &domain.StorageError{Op: "remove_pending", Err: err}
	}
	return nil
}

const upsertConfirmed = `
	INSERT INTO confirmed_products (ts, details, image, mime_type)
	VALUES ($1, $2::jsonb, $3, $4)
	ON CONFLICT (ts) DO UPDATE
	SET details = EXCLUDED.details, image = EXCLUDED.image, mime_type = EXCLUDED.mime_type, updated_at = now()
`

func (s *PostgresStore) AddConfirmed(ctx context.Context, product domain.ConfirmedProduct) (int64, error) {
	_, err := s.pool.Exec(ctx, upsertConfirmed, product.Timestamp, product.Details, product.Image, product.MIMEType)
	if err != nil {
		return 0, &domain.StorageError{Op: "add_confirmed", Err: err}
	}
	return product.Timestamp, nil
}

func (s *PostgresStore) PromotePending(ctx context.Context, id int64, product domain.ConfirmedProduct) (int64, error) {
	err := s.db.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertConfirmed, product.Timestamp, product.Details, product.Image, product.MIMEType); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM pending_images WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return 0, &domain.StorageError{Op: "promote_pending", Err: err}
	}
	return product.Timestamp, nil
}

func (s *PostgresStore) ListConfirmed(ctx context.Context) ([]domain.ConfirmedProduct, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, details, image, mime_type
		FROM confirmed_products
		ORDER BY ts
	`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list_confirmed", Err: err}
	}
	defer rows.Close()

	var products []domain.ConfirmedProduct
	for rows.Next() {
		var p domain.ConfirmedProduct
		if err := rows.Scan(&p.Timestamp, &p.Details, &p.Image, &p.MIMEType); err != nil {
			return nil, &domain.StorageError{Op: "list_confirmed", Err: err}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list_confirmed", Err: err}
	}
	return products, nil
}

func (s *PostgresStore) GetConfirmed(ctx context.Context, timestamp int64) (domain.ConfirmedProduct, error) {
	var p domain.ConfirmedProduct
	err := s.pool.QueryRow(ctx, `
		SELECT ts, details, image, mime_type
		FROM confirmed_products
		WHERE ts = $1
	`, timestamp).Scan(&p.Timestamp, &p.Details, &p.Image, &p.MIMEType)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ConfirmedProduct{}, &domain.NotFoundError{Collection: CollectionConfirmed, Key: timestamp}
	}
	if err != nil {
		return domain.ConfirmedProduct{}, &domain.StorageError{Op: "get_confirmed", Err: err}
	}
	return p, nil
}

func (s *PostgresStore) UpdateConfirmed(ctx context.Context, timestamp int64, details domain.ProductDetails) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE confirmed_products
		SET details = $2::jsonb, updated_at = now()
		WHERE ts = $1
	`, timestamp, details)
	if err != nil {
		return &domain.StorageError{Op: "update_confirmed", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Collection: CollectionConfirmed, Key: timestamp}
	}
	return nil
}

func (s *PostgresStore) RemoveConfirmed(ctx context.Context, timestamp int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM confirmed_products WHERE ts = $1`, timestamp); err != nil {
		return &domain.StorageError{Op: "remove_confirmed", Err: err}
	}
	return nil
}

func (s *PostgresStore) RemoveAllConfirmed(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM confirmed_products`); err != nil {
		return &domain.StorageError{Op: "remove_all_confirmed", Err: err}
	}
	return nil
}

// Close closes the underlying pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
