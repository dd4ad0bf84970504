// Package store defines the local ledger persistence contract.
package store

import (
	"context"

	"teatracker/m/domain"
)

// Store keeps customers keyed by phone and sales keyed by an
// auto-assigned id. Every write lands atomically or not at all.
// Concurrent writes to the same record are last-write-wins.
type Store interface {
	// Customer methods
	SaveCustomer(ctx context.Context, c *domain.Customer) error
	GetAllCustomers(ctx context.Context) ([]domain.Customer, error)
	SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error)

	// Sale methods
	AddSale(ctx context.Context, s *domain.Sale) error
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	GetAllSales(ctx context.Context) ([]*domain.Sale, error)
	UpdateSale(ctx context.Context, s *domain.Sale) error
	UpdateSales(ctx context.Context, sales []*domain.Sale) error
	// MarkSynced sets synced on sale id only while its stored payment
	// fields still equal expected's and it is unsynced. It reports
	// whether the flag was set.
	MarkSynced(ctx context.Context, id int64, expected *domain.Sale) (bool, error)

	// Secondary index lookups
	ListSalesByPhone(ctx context.Context, phone string) ([]*domain.Sale, error)
	ListSalesByDate(ctx context.Context, date string) ([]*domain.Sale, error)
	ListPendingSales(ctx context.Context) ([]*domain.Sale, error)
	ListUnsyncedSales(ctx context.Context) ([]*domain.Sale, error)

	Ping(ctx context.Context) error
	Close() error
}
