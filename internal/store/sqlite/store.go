// Package sqlite implements store.Store on a local SQLite file via sqlx.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"teatracker/m/domain"
	"teatracker/m/internal/ledger"
	"teatracker/m/internal/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

const saleColumns = `id, date, name, phone, business, address, kgs, price, total, payment_type,
    cash, online, paid_amount, remaining, created_at, synced`

const insertSale = `INSERT INTO sales (date, name, phone, business, address, kgs, price, total, payment_type,
    cash, online, paid_amount, remaining, created_at, synced)
VALUES (:date, :name, :phone, :business, :address, :kgs, :price, :total, :payment_type,
    :cash, :online, :paid_amount, :remaining, :created_at, :synced)`

const upsertSale = `INSERT INTO sales (` + saleColumns + `)
VALUES (:id, :date, :name, :phone, :business, :address, :kgs, :price, :total, :payment_type,
    :cash, :online, :paid_amount, :remaining, :created_at, :synced)
ON CONFLICT(id) DO UPDATE SET
    date = excluded.date,
    name = excluded.name,
    phone = excluded.phone,
    business = excluded.business,
    address = excluded.address,
    kgs = excluded.kgs,
    price = excluded.price,
    total = excluded.total,
    payment_type = excluded.payment_type,
    cash = excluded.cash,
    online = excluded.online,
    paid_amount = excluded.paid_amount,
    remaining = excluded.remaining,
    created_at = excluded.created_at,
    synced = excluded.synced`

// Store is the SQLite ledger store.
type Store struct {
	db *sqlx.DB
}

// New wraps an open, migrated database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customers ====================

func (s *Store) SaveCustomer(ctx context.Context, c *domain.Customer) error {
	if c.Phone == "" {
		return &ledger.ValidationError{Field: "phone", Message: "customer key is required"}
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO customers (phone, name, business, address)
        VALUES (:phone, :name, :business, :address)
        ON CONFLICT(phone) DO UPDATE SET
            name = excluded.name,
            business = excluded.business,
            address = excluded.address`, c)
	if err != nil {
		return ledger.StoreError("save customer", err)
	}
	return nil
}

func (s *Store) GetAllCustomers(ctx context.Context) ([]domain.Customer, error) {
	customers := []domain.Customer{}
	if err := s.db.SelectContext(ctx, &customers, `SELECT phone, name, business, address FROM customers ORDER BY rowid`); err != nil {
		return nil, ledger.StoreError("list customers", err)
	}
	return customers, nil
}

// SearchCustomers filters in Go so that case folding covers non-ASCII
// names, which SQLite's LOWER does not.
func (s *Store) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	all, err := s.GetAllCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return all, nil
	}
	matched := []domain.Customer{}
	for _, c := range all {
		if c.Matches(query) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// ==================== Sales ====================

func (s *Store) AddSale(ctx context.Context, sale *domain.Sale) error {
	if sale.CreatedAt == 0 {
		sale.CreatedAt = time.Now().UnixMilli()
	}
	res, err := s.db.NamedExecContext(ctx, insertSale, sale)
	if err != nil {
		return ledger.StoreError("add sale", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ledger.StoreError("add sale", err)
	}
	sale.ID = id
	return nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	sale := new(domain.Sale)
	err := s.db.GetContext(ctx, sale, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, ledger.StoreError("get sale", err)
	}
	return sale, nil
}

func (s *Store) GetAllSales(ctx context.Context) ([]*domain.Sale, error) {
	return s.selectSales(ctx, "list sales", `SELECT `+saleColumns+` FROM sales ORDER BY id`)
}

func (s *Store) UpdateSale(ctx context.Context, sale *domain.Sale) error {
	if _, err := s.db.NamedExecContext(ctx, upsertSale, sale); err != nil {
		return ledger.StoreError(fmt.Sprintf("update sale %d", sale.ID), err)
	}
	return nil
}

// UpdateSales writes every sale in one transaction.
func (s *Store) UpdateSales(ctx context.Context, sales []*domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ledger.StoreError("begin update", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertSale)
	if err != nil {
		return ledger.StoreError("prepare update", err)
	}
	defer stmt.Close()

	for _, sale := range sales {
		if _, err := stmt.ExecContext(ctx, sale); err != nil {
			return ledger.StoreError(fmt.Sprintf("update sale %d", sale.ID), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ledger.StoreError("commit update", err)
	}
	return nil
}

func (s *Store) MarkSynced(ctx context.Context, id int64, expected *domain.Sale) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE sales SET synced = 1
        WHERE id = ? AND synced = 0 AND cash = ? AND online = ? AND paid_amount = ? AND remaining = ?`,
		id, expected.Cash, expected.Online, expected.PaidAmount, expected.Remaining)
	if err != nil {
		return false, ledger.StoreError(fmt.Sprintf("mark sale %d synced", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ledger.StoreError(fmt.Sprintf("mark sale %d synced", id), err)
	}
	return n == 1, nil
}

// ==================== Index lookups ====================

func (s *Store) ListSalesByPhone(ctx context.Context, phone string) ([]*domain.Sale, error) {
	return s.selectSales(ctx, "list sales by phone",
		`SELECT `+saleColumns+` FROM sales WHERE phone = ? ORDER BY id`, phone)
}

func (s *Store) ListSalesByDate(ctx context.Context, date string) ([]*domain.Sale, error) {
	return s.selectSales(ctx, "list sales by date",
		`SELECT `+saleColumns+` FROM sales WHERE date = ? ORDER BY id`, date)
}

func (s *Store) ListPendingSales(ctx context.Context) ([]*domain.Sale, error) {
	return s.selectSales(ctx, "list pending sales",
		`SELECT `+saleColumns+` FROM sales WHERE remaining > 0 ORDER BY id`)
}

func (s *Store) ListUnsyncedSales(ctx context.Context) ([]*domain.Sale, error) {
	return s.selectSales(ctx, "list unsynced sales",
		`SELECT `+saleColumns+` FROM sales WHERE synced = 0 ORDER BY id`)
}

func (s *Store) selectSales(ctx context.Context, op, query string, args ...any) ([]*domain.Sale, error) {
	sales := []*domain.Sale{}
	if err := s.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, ledger.StoreError(op, err)
	}
	return sales, nil
}
