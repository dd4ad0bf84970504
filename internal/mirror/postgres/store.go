// Package postgres mirrors sales into a PostgreSQL table, one row per
// (owner, sale id).
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"teatracker/m/domain"
	"teatracker/m/internal/mirror"
)

var _ mirror.Mirror = (*Store)(nil)

type saleRow struct {
	OwnerID     string          `db:"owner_id"`
	SaleID      int64           `db:"sale_id"`
	Date        string          `db:"date"`
	Name        string          `db:"name"`
	Phone       string          `db:"phone"`
	Business    string          `db:"business"`
	Address     string          `db:"address"`
	Kgs         decimal.Decimal `db:"kgs"`
	Price       decimal.Decimal `db:"price"`
	Total       decimal.Decimal `db:"total"`
	PaymentType string          `db:"payment_type"`
	Cash        decimal.Decimal `db:"cash"`
	Online      decimal.Decimal `db:"online"`
	PaidAmount  decimal.Decimal `db:"paid_amount"`
	Remaining   decimal.Decimal `db:"remaining"`
	CreatedAt   int64           `db:"created_at"`
}

func toRow(owner string, s *domain.Sale) saleRow {
	return saleRow{
		OwnerID:     owner,
		SaleID:      s.ID,
		Date:        s.Date,
		Name:        s.Name,
		Phone:       s.Phone,
		Business:    s.Business,
		Address:     s.Address,
		Kgs:         s.Kgs,
		Price:       s.Price,
		Total:       s.Total,
		PaymentType: string(s.PaymentType),
		Cash:        s.Cash,
		Online:      s.Online,
		PaidAmount:  s.PaidAmount,
		Remaining:   s.Remaining,
		CreatedAt:   s.CreatedAt,
	}
}

const upsertSale = `INSERT INTO mirrored_sales (owner_id, sale_id, date, name, phone, business, address,
    kgs, price, total, payment_type, cash, online, paid_amount, remaining, created_at, updated_at)
VALUES (:owner_id, :sale_id, :date, :name, :phone, :business, :address,
    :kgs, :price, :total, :payment_type, :cash, :online, :paid_amount, :remaining, :created_at, NOW())
ON CONFLICT (owner_id, sale_id) DO UPDATE SET
    date = EXCLUDED.date,
    name = EXCLUDED.name,
    phone = EXCLUDED.phone,
    business = EXCLUDED.business,
    address = EXCLUDED.address,
    kgs = EXCLUDED.kgs,
    price = EXCLUDED.price,
    total = EXCLUDED.total,
    payment_type = EXCLUDED.payment_type,
    cash = EXCLUDED.cash,
    online = EXCLUDED.online,
    paid_amount = EXCLUDED.paid_amount,
    remaining = EXCLUDED.remaining,
    created_at = EXCLUDED.created_at,
    updated_at = NOW()`

// Store writes sales to PostgreSQL.
type Store struct {
	db *sqlx.DB
}

// New wraps an open PostgreSQL handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the mirror table.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS mirrored_sales (
            owner_id TEXT NOT NULL,
            sale_id BIGINT NOT NULL,
            date TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            business TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            kgs NUMERIC NOT NULL DEFAULT 0,
            price NUMERIC NOT NULL DEFAULT 0,
            total NUMERIC NOT NULL DEFAULT 0,
            payment_type TEXT NOT NULL DEFAULT 'unspecified',
            cash NUMERIC NOT NULL DEFAULT 0,
            online NUMERIC NOT NULL DEFAULT 0,
            paid_amount NUMERIC NOT NULL DEFAULT 0,
            remaining NUMERIC NOT NULL DEFAULT 0,
            created_at BIGINT NOT NULL,
            updated_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY (owner_id, sale_id)
        )`)
	if err != nil {
		return fmt.Errorf("mirror/postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) UpsertSale(ctx context.Context, owner string, sale *domain.Sale) error {
	if _, err := s.db.NamedExecContext(ctx, upsertSale, toRow(owner, sale)); err != nil {
		return fmt.Errorf("mirror/postgres: upsert sale %d: %w", sale.ID, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
