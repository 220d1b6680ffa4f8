package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	pickup_at     TEXT NOT NULL,
	receipt       TEXT NOT NULL,
	total         TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_pickup_at ON orders(pickup_at);
`

// SQLiteArchive stores confirmed orders in a SQLite database.
type SQLiteArchive struct {
	conn *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*SQLiteArchive, error) {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening order archive: %w", err)
	}
	// SQLite serializes writers anyway.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating order schema: %w", err)
	}
	return &SQLiteArchive{conn: conn}, nil
}

// Close closes the database.
func (a *SQLiteArchive) Close() error {
	return a.conn.Close()
}

// Save inserts an order. Saving the same ID twice is an error.
func (a *SQLiteArchive) Save(ctx context.Context, order *domain.Order) error {
	receipt, err := json.Marshal(order.Receipt)
	if err != nil {
		return fmt.Errorf("encoding receipt: %w", err)
	}

	_, err = a.conn.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, customer_name, pickup_at, receipt, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, order.ID, order.UserID, order.CustomerName,
		order.PickupAt.UTC().Format(time.RFC3339), string(receipt),
		order.Receipt.Total.String(), order.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving order %s: %w", order.ID, err)
	}
	return nil
}

// Get loads an order by ID.
func (a *SQLiteArchive) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := a.conn.QueryRowContext(ctx, `
		SELECT id, user_id, customer_name, pickup_at, receipt, created_at
		FROM orders WHERE id = ?
	`, id)
	return scanOrder(row)
}

// ListByUser returns the orders of a user, most recent pickup first.
func (a *SQLiteArchive) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.conn.QueryContext(ctx, `
		SELECT id, user_id, customer_name, pickup_at, receipt, created_at
		FROM orders WHERE user_id = ?
		ORDER BY pickup_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		order                        domain.Order
		pickupAt, receipt, createdAt string
	)
	err := s.Scan(&order.ID, &order.UserID, &order.CustomerName, &pickupAt, &receipt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading order: %w", err)
	}

	if order.PickupAt, err = time.Parse(time.RFC3339, pickupAt); err != nil {
		return nil, fmt.Errorf("reading pickup time of %s: %w", order.ID, err)
	}
	if order.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("reading creation time of %s: %w", order.ID, err)
	}
	if err := json.Unmarshal([]byte(receipt), &order.Receipt); err != nil {
		return nil, fmt.Errorf("decoding receipt of %s: %w", order.ID, err)
	}
	return &order, nil
}
