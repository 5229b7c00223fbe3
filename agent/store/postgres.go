// Package store persists menu, order, reservation, and customer records in
// Postgres. The orchestration core only sees the contract.Store interface;
// every schema here belongs to this collaborator.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/BrianMwas/vocare/agent/contract"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
}

type menuItemModel struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID          string   `bun:"id,pk"`
	Name        string   `bun:"name,notnull"`
	Category    string   `bun:"category,notnull"`
	Price       float64  `bun:"price,notnull"`
	Description string   `bun:"description"`
	Allergens   []string `bun:"allergens,array"`
	Available   bool     `bun:"available,notnull"`
}

type orderModel struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID           int64     `bun:"id,pk,autoincrement"`
	CallID       string    `bun:"call_id,notnull"`
	CallerNumber string    `bun:"caller_number"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type orderLineModel struct {
	bun.BaseModel `bun:"table:order_lines,alias:ol"`

	ID           int64  `bun:"id,pk,autoincrement"`
	OrderID      int64  `bun:"order_id,notnull"`
	ItemID       string `bun:"item_id,notnull"`
	Name         string `bun:"name,notnull"`
	Quantity     int    `bun:"quantity,notnull"`
	Modification string `bun:"modification"`
}

type reservationModel struct {
	bun.BaseModel `bun:"table:reservations,alias:r"`

	ID           int64     `bun:"id,pk,autoincrement"`
	CallID       string    `bun:"call_id,notnull"`
	CallerNumber string    `bun:"caller_number"`
	PartySize    int       `bun:"party_size,notnull"`
	At           time.Time `bun:"at,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type customerModel struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	CallerNumber string `bun:"caller_number,pk"`
	History      string `bun:"history"`
}

// PostgresStore implements contract.Store on bun.
type PostgresStore struct {
	db *bun.DB
}

var _ contractx.Store = (*PostgresStore)(nil)

func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (s *PostgresStore) ListMenuItems(ctx context.Context) ([]contractx.MenuItem, error) {
	var models []menuItemModel
	if err := s.db.NewSelect().Model(&models).Order("category", "id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}

	items := make([]contractx.MenuItem, 0, len(models))
	for _, m := range models {
		items = append(items, contractx.MenuItem{
			ID:          m.ID,
			Name:        m.Name,
			Category:    m.Category,
			Price:       m.Price,
			Description: m.Description,
			Allergens:   m.Allergens,
			Available:   m.Available,
		})
	}
	return items, nil
}

func (s *PostgresStore) SaveOrder(ctx context.Context, rec contractx.OrderRecord) error {
	if len(rec.Lines) == 0 {
		return fmt.Errorf("%w: order has no lines", contractx.ErrValidation)
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order := &orderModel{
			CallID:       rec.CallID,
			CallerNumber: rec.CallerNumber,
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		lines := make([]orderLineModel, 0, len(rec.Lines))
		for _, l := range rec.Lines {
			lines = append(lines, orderLineModel{
				OrderID:      order.ID,
				ItemID:       l.ItemID,
				Name:         l.Name,
				Quantity:     l.Quantity,
				Modification: l.Modification,
			})
		}
		if _, err := tx.NewInsert().Model(&lines).Exec(ctx); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) SaveReservation(ctx context.Context, rec contractx.ReservationRecord) error {
	at, err := time.Parse(time.RFC3339, rec.At)
	if err != nil {
		return fmt.Errorf("%w: reservation time %q: %v", contractx.ErrValidation, rec.At, err)
	}

	model := &reservationModel{
		CallID:       rec.CallID,
		CallerNumber: rec.CallerNumber,
		PartySize:    rec.PartySize,
		At:           at.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// LookupCustomer returns empty history for unrecognized callers; only
// transport-level failures are errors.
func (s *PostgresStore) LookupCustomer(ctx context.Context, callerNumber string) (string, error) {
	var model customerModel
	err := s.db.NewSelect().
		Model(&model).
		Where("caller_number = ?", callerNumber).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup customer: %w", err)
	}
	return model.History, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
