// Package journal records the order pipeline (checks, placements and
// deletions) in a local sqlite database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/betbot/degiro/pkg/sdk/degiro"
)

// Entry kinds.
const (
	KindChecked = "checked"
	KindPlaced  = "placed"
	KindDeleted = "deleted"
)

type Entry struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	ProductID      string    `json:"productId,omitempty"`
	Action         string    `json:"action,omitempty"`
	OrderType      string    `json:"orderType,omitempty"`
	TimeType       string    `json:"timeType,omitempty"`
	Size           string    `json:"size,omitempty"`
	Price          string    `json:"price,omitempty"`
	StopPrice      string    `json:"stopPrice,omitempty"`
	ConfirmationID string    `json:"confirmationId,omitempty"`
	OrderID        string    `json:"orderId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// timeLayout is fixed width so created_at sorts as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Journal implements degiro.OrderHook.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

var _ degiro.OrderHook = (*Journal)(nil)

func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db, now: time.Now}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS order_events (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  product_id TEXT,
  action TEXT,
  order_type TEXT,
  time_type TEXT,
  size TEXT,
  price TEXT,
  stop_price TEXT,
  confirmation_id TEXT,
  order_id TEXT,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_order_events_created ON order_events(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_order_events_order_id ON order_events(order_id);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}
	}
	return nil
}

func (j *Journal) OrderChecked(ctx context.Context, o degiro.CheckedOrder) error {
	e := entryFor(KindChecked, o.Order)
	e.ConfirmationID = o.ConfirmationID
	return j.insert(ctx, e)
}

func (j *Journal) OrderPlaced(ctx context.Context, o degiro.PlacedOrder) error {
	e := entryFor(KindPlaced, o.Order)
	e.ConfirmationID = o.ConfirmationID
	e.OrderID = o.OrderID
	return j.insert(ctx, e)
}

func (j *Journal) OrderDeleted(ctx context.Context, orderID string) error {
	return j.insert(ctx, Entry{Kind: KindDeleted, OrderID: orderID})
}

func entryFor(kind string, o degiro.Order) Entry {
	e := Entry{
		Kind:      kind,
		ProductID: o.ProductID,
		Action:    string(o.Action),
		OrderType: o.OrderType.String(),
		TimeType:  o.TimeType.String(),
		Size:      o.Size.String(),
	}
	if o.Price.Valid {
		e.Price = o.Price.Decimal.String()
	}
	if o.StopPrice.Valid {
		e.StopPrice = o.StopPrice.Decimal.String()
	}
	return e
}

func (j *Journal) insert(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
INSERT INTO order_events (id, kind, product_id, action, order_type, time_type, size, price, stop_price, confirmation_id, order_id, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`, uuid.NewString(), e.Kind, nullable(e.ProductID), nullable(e.Action), nullable(e.OrderType), nullable(e.TimeType),
		nullable(e.Size), nullable(e.Price), nullable(e.StopPrice), nullable(e.ConfirmationID), nullable(e.OrderID),
		j.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("journal %s: %w", e.Kind, err)
	}
	return nil
}

// List returns the newest entries first. limit is clamped to 1..500 and
// defaults to 50.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, kind, product_id, action, order_type, time_type, size, price, stop_price, confirmation_id, order_id, created_at
FROM order_events
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                                            Entry
			productID, action, orderType, timeType, size sql.NullString
			price, stopPrice, confirmationID, orderID    sql.NullString
			createdAt                                    string
		)
		if err := rows.Scan(&e.ID, &e.Kind, &productID, &action, &orderType, &timeType, &size,
			&price, &stopPrice, &confirmationID, &orderID, &createdAt); err != nil {
			return nil, err
		}
		e.ProductID = productID.String
		e.Action = action.String
		e.OrderType = orderType.String
		e.TimeType = timeType.String
		e.Size = size.String
		e.Price = price.String
		e.StopPrice = stopPrice.String
		e.ConfirmationID = confirmationID.String
		e.OrderID = orderID.String
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
