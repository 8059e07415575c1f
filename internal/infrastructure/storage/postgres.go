package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/cartwise/backend/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS shopping_lists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS line_items (
	seq         BIGSERIAL,
	id          TEXT PRIMARY KEY,
	list_id     TEXT NOT NULL REFERENCES shopping_lists(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	quantity    DOUBLE PRECISION NOT NULL,
	unit        TEXT NOT NULL DEFAULT '',
	total_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	image_url   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_line_items_list_id ON line_items(list_id);
`

// PostgresRepository stores shopping lists in PostgreSQL
type PostgresRepository struct {
	*Broadcaster
	pool *pgxpool.Pool
	log  zerolog.Logger
}

var _ domain.ShoppingListRepository = (*PostgresRepository)(nil)

// NewPostgresRepository connects to dbURL and ensures the schema exists
func NewPostgresRepository(ctx context.Context, dbURL string, log zerolog.Logger) (*PostgresRepository, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("%w: postgres url is empty", domain.ErrInvalidRequest)
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	repoLog := log.With().Str("component", "postgres_store").Logger()
	repoLog.Info().Msg("Postgres store ready")

	return &PostgresRepository{
		Broadcaster: NewBroadcaster(),
		pool:        pool,
		log:         repoLog,
	}, nil
}

// CreateList saves a new list, assigning its id and creation time
func (r *PostgresRepository) CreateList(ctx context.Context, list *domain.ShoppingList) error {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	list.CreatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO shopping_lists (id, name, created_at) VALUES ($1, $2, $3)`,
		list.ID, list.Name, list.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert list: %w", err)
	}
	return nil
}

// GetList returns a list by id or domain.ErrListNotFound
func (r *PostgresRepository) GetList(ctx context.Context, listID string) (*domain.ShoppingList, error) {
	var list domain.ShoppingList
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM shopping_lists WHERE id = $1`, listID,
	).Scan(&list.ID, &list.Name, &list.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListNotFound
		}
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return &list, nil
}

// AddItem appends an item to its list and notifies subscribers
func (r *PostgresRepository) AddItem(ctx context.Context, item *domain.LineItem) error {
	if _, err := r.GetList(ctx, item.ListID); err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO line_items (id, list_id, name, quantity, unit, total_price, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.ListID, item.Name, item.Quantity, item.Unit, item.TotalPrice, item.ImageURL, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert line item: %w", err)
	}

	r.Notify(item.ListID)
	return nil
}

// DeleteItem removes an item from a list and notifies subscribers
func (r *PostgresRepository) DeleteItem(ctx context.Context, listID, itemID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM line_items WHERE id = $1 AND list_id = $2`, itemID, listID)
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}

	r.Notify(listID)
	return nil
}

// GetLineItemsForList returns the list's items in insertion order
func (r *PostgresRepository) GetLineItemsForList(ctx context.Context, listID string) ([]domain.LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, list_id, name, quantity, unit, total_price, image_url, created_at
		FROM line_items
		WHERE list_id = $1
		ORDER BY seq`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit,
			&item.TotalPrice, &item.ImageURL, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line items: %w", err)
	}

	return items, nil
}

// Close releases subscribers and the connection pool
func (r *PostgresRepository) Close() error {
	r.CloseAll()
	r.pool.Close()
	return nil
}
