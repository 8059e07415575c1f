package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/cartwise/backend/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shopping_lists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS line_items (
	id          TEXT PRIMARY KEY,
	list_id     TEXT NOT NULL REFERENCES shopping_lists(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	quantity    REAL NOT NULL,
	unit        TEXT NOT NULL DEFAULT '',
	total_price REAL NOT NULL DEFAULT 0,
	image_url   TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_line_items_list_id ON line_items(list_id);
`

// SQLiteRepository stores shopping lists in a local SQLite database
type SQLiteRepository struct {
	*Broadcaster
	db  *sql.DB
	log zerolog.Logger
}

var _ domain.ShoppingListRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteRepository(ctx context.Context, path string, log zerolog.Logger) (*SQLiteRepository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	connStr := absPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	repoLog := log.With().Str("component", "sqlite_store").Logger()
	repoLog.Info().Str("path", absPath).Msg("SQLite store ready")

	return &SQLiteRepository{
		Broadcaster: NewBroadcaster(),
		db:          db,
		log:         repoLog,
	}, nil
}

// CreateList saves a new list, assigning its id and creation time
func (r *SQLiteRepository) CreateList(ctx context.Context, list *domain.ShoppingList) error {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	list.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shopping_lists (id, name, created_at) VALUES (?, ?, ?)`,
		list.ID, list.Name, formatTime(list.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert list: %w", err)
	}
	return nil
}

// GetList returns a list by id or domain.ErrListNotFound
func (r *SQLiteRepository) GetList(ctx context.Context, listID string) (*domain.ShoppingList, error) {
	var list domain.ShoppingList
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM shopping_lists WHERE id = ?`, listID,
	).Scan(&list.ID, &list.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListNotFound
		}
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	list.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// AddItem appends an item to its list and notifies subscribers
func (r *SQLiteRepository) AddItem(ctx context.Context, item *domain.LineItem) error {
	if _, err := r.GetList(ctx, item.ListID); err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO line_items (id, list_id, name, quantity, unit, total_price, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ListID, item.Name, item.Quantity, item.Unit, item.TotalPrice, item.ImageURL,
		formatTime(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert line item: %w", err)
	}

	r.Notify(item.ListID)
	return nil
}

// DeleteItem removes an item from a list and notifies subscribers
func (r *SQLiteRepository) DeleteItem(ctx context.Context, listID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM line_items WHERE id = ? AND list_id = ?`, itemID, listID)
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}

	r.Notify(listID)
	return nil
}

// GetLineItemsForList returns the list's items in insertion order. An unknown
// list has no items.
func (r *SQLiteRepository) GetLineItemsForList(ctx context.Context, listID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, list_id, name, quantity, unit, total_price, image_url, created_at
		FROM line_items
		WHERE list_id = ?
		ORDER BY rowid`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		var createdAt string
		if err := rows.Scan(&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit,
			&item.TotalPrice, &item.ImageURL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line items: %w", err)
	}

	return items, nil
}

// Close releases subscribers and the database handle
func (r *SQLiteRepository) Close() error {
	r.CloseAll()
	return r.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}
