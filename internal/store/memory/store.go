// Package memory is an in-process store.Store used by tests and
// throwaway runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"teatracker/m/domain"
	"teatracker/m/internal/ledger"
	"teatracker/m/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	customers     map[string]domain.Customer
	customerOrder []string

	sales  map[int64]domain.Sale
	nextID int64
	closed bool

	// failWrites makes every write return a store error.
	failWrites bool
}

func New() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
		sales:     make(map[int64]domain.Sale),
		nextID:    1,
	}
}

// FailWrites toggles simulated storage failures.
func (s *Store) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

func (s *Store) writable(op string) error {
	if s.closed {
		return ledger.StoreError(op, fmt.Errorf("store is closed"))
	}
	if s.failWrites {
		return ledger.StoreError(op, fmt.Errorf("simulated write failure"))
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ledger.StoreError("ping", fmt.Errorf("store is closed"))
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Customer Store implementation
func (s *Store) SaveCustomer(_ context.Context, c *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable("save customer"); err != nil {
		return err
	}
	if c.Phone == "" {
		return &ledger.ValidationError{Field: "phone", Message: "customer key is required"}
	}
	if _, exists := s.customers[c.Phone]; !exists {
		s.customerOrder = append(s.customerOrder, c.Phone)
	}
	s.customers[c.Phone] = *c
	return nil
}

func (s *Store) GetAllCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Customer, 0, len(s.customerOrder))
	for _, phone := range s.customerOrder {
		result = append(result, s.customers[phone])
	}
	return result, nil
}

func (s *Store) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	all, err := s.GetAllCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return all, nil
	}
	result := make([]domain.Customer, 0)
	for _, c := range all {
		if c.Matches(query) {
			result = append(result, c)
		}
	}
	return result, nil
}

// Sale Store implementation
func (s *Store) AddSale(_ context.Context, sale *domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable("add sale"); err != nil {
		return err
	}
	if sale.CreatedAt == 0 {
		sale.CreatedAt = time.Now().UnixMilli()
	}
	sale.ID = s.nextID
	s.nextID++
	s.sales[sale.ID] = *sale
	return nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %d: %w", id, ledger.ErrNotFound)
	}
	return &sale, nil
}

func (s *Store) GetAllSales(_ context.Context) ([]*domain.Sale, error) {
	return s.filter(func(*domain.Sale) bool { return true }), nil
}

func (s *Store) UpdateSale(ctx context.Context, sale *domain.Sale) error {
	return s.UpdateSales(ctx, []*domain.Sale{sale})
}

func (s *Store) UpdateSales(_ context.Context, sales []*domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable("update sales"); err != nil {
		return err
	}
	for _, sale := range sales {
		s.sales[sale.ID] = *sale
		if sale.ID >= s.nextID {
			s.nextID = sale.ID + 1
		}
	}
	return nil
}

func (s *Store) MarkSynced(_ context.Context, id int64, expected *domain.Sale) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable("mark synced"); err != nil {
		return false, err
	}
	sale, ok := s.sales[id]
	if !ok || sale.Synced ||
		!sale.Cash.Equal(expected.Cash) ||
		!sale.Online.Equal(expected.Online) ||
		!sale.PaidAmount.Equal(expected.PaidAmount) ||
		!sale.Remaining.Equal(expected.Remaining) {
		return false, nil
	}
	sale.Synced = true
	s.sales[id] = sale
	return true, nil
}

func (s *Store) ListSalesByPhone(_ context.Context, phone string) ([]*domain.Sale, error) {
	return s.filter(func(sale *domain.Sale) bool { return sale.Phone == phone }), nil
}

func (s *Store) ListSalesByDate(_ context.Context, date string) ([]*domain.Sale, error) {
	return s.filter(func(sale *domain.Sale) bool { return sale.Date == date }), nil
}

func (s *Store) ListPendingSales(_ context.Context) ([]*domain.Sale, error) {
	return s.filter((*domain.Sale).Pending), nil
}

func (s *Store) ListUnsyncedSales(_ context.Context) ([]*domain.Sale, error) {
	return s.filter(func(sale *domain.Sale) bool { return !sale.Synced }), nil
}

// filter returns copies ordered by id.
func (s *Store) filter(keep func(*domain.Sale) bool) []*domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Sale, 0)
	for _, sale := range s.sales {
		c := sale
		if keep(&c) {
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
