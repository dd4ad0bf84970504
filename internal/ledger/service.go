package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"teatracker/m/domain"
	"teatracker/m/internal/store"
)

// SyncTrigger starts a best-effort background push of unsynced sales.
type SyncTrigger interface {
	Trigger()
}

type nopTrigger struct{}

func (nopTrigger) Trigger() {}

// Service records sales and payments against the local store.
type Service struct {
	store  store.Store
	sync   SyncTrigger
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithSyncTrigger sets what runs after every local write.
func WithSyncTrigger(t SyncTrigger) Option {
	return func(s *Service) { s.sync = t }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over an opened store.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		sync:   nopTrigger{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backing store.
func (s *Service) Store() store.Store { return s.store }

// RecordSale validates and stores a new sale, then snapshots the
// customer under its phone.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (*domain.Sale, error) {
	return s.addSale(ctx, in, true)
}

// ImportSale stores a historical sale. Unlike RecordSale the phone may
// be missing.
func (s *Service) ImportSale(ctx context.Context, in SaleInput) (*domain.Sale, error) {
	return s.addSale(ctx, in, false)
}

func (s *Service) addSale(ctx context.Context, in SaleInput, requirePhone bool) (*domain.Sale, error) {
	sale, err := NewSale(in, s.now(), requirePhone)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddSale(ctx, sale); err != nil {
		return nil, err
	}
	if sale.Phone != "" {
		c := sale.Customer()
		if err := s.store.SaveCustomer(ctx, &c); err != nil {
			// The sale itself is committed; only the lookup snapshot is lost.
			s.logger.Warn("customer snapshot not saved", "phone", sale.Phone, "error", err)
		}
	}
	s.logger.Info("sale recorded", "id", sale.ID, "total", sale.Total.String(), "remaining", sale.Remaining.String())
	s.sync.Trigger()
	return sale, nil
}

// SaveCustomer upserts a customer by phone.
func (s *Service) SaveCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	phone, err := ValidatePhone(c.Phone)
	if err != nil {
		return nil, err
	}
	c.Phone = phone
	c.Name = strings.TrimSpace(c.Name)
	c.Business = strings.TrimSpace(c.Business)
	c.Address = strings.TrimSpace(c.Address)
	if err := s.store.SaveCustomer(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Customers(ctx context.Context) ([]domain.Customer, error) {
	return s.store.GetAllCustomers(ctx)
}

func (s *Service) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	return s.store.SearchCustomers(ctx, query)
}

func (s *Service) Sales(ctx context.Context) ([]*domain.Sale, error) {
	return s.store.GetAllSales(ctx)
}

func (s *Service) Sale(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.store.GetSale(ctx, id)
}

// CollectPayment applies a payment to one sale.
func (s *Service) CollectPayment(ctx context.Context, saleID int64, add Split) (*domain.Sale, Split, error) {
	if !nonNegative(add.Cash).Add(nonNegative(add.Online)).IsPositive() {
		return nil, Split{}, ErrInvalidAmount
	}
	sale, err := s.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, Split{}, err
	}
	applied, err := RecordPayment(sale, add)
	if err != nil {
		return nil, Split{}, err
	}
	if err := s.store.UpdateSale(ctx, sale); err != nil {
		return nil, Split{}, err
	}
	s.logger.Info("payment recorded", "sale", sale.ID,
		"cash", applied.Cash.String(), "online", applied.Online.String(), "remaining", sale.Remaining.String())
	s.sync.Trigger()
	return sale, applied, nil
}

// CombinedPayment is a single amount received from one customer.
type CombinedPayment struct {
	Customer domain.CustomerRef `json:"customer"`
	Amount   decimal.Decimal    `json:"amount"`
	// Mode is the default channel, cash or online.
	Mode string `json:"mode"`
	// Splits carries per-sale channel splits resolved up front.
	Splits map[int64]Split `json:"splits,omitempty"`
}

// CollectCombinedPayment spreads a payment over the customer's pending
// sales oldest first and writes every touched sale in one transaction.
func (s *Service) CollectCombinedPayment(ctx context.Context, p CombinedPayment) (Allocation, error) {
	if !p.Amount.IsPositive() {
		return Allocation{}, ErrInvalidAmount
	}
	if p.Customer.Phone == "" && p.Customer.Name == "" {
		return Allocation{}, invalid("customer", "phone or name is required")
	}
	ref, err := normalizeRef(p.Customer)
	if err != nil {
		return Allocation{}, err
	}
	p.Customer = ref

	var candidates []*domain.Sale
	if p.Customer.Phone != "" {
		candidates, err = s.store.ListSalesByPhone(ctx, p.Customer.Phone)
	} else {
		candidates, err = s.store.ListPendingSales(ctx)
	}
	if err != nil {
		return Allocation{}, err
	}
	owned := candidates[:0]
	for _, sale := range candidates {
		if p.Customer.Owns(sale) {
			owned = append(owned, sale)
		}
	}
	if len(owned) == 0 {
		return Allocation{}, fmt.Errorf("customer %q: %w", p.Customer.Key(), ErrNotFound)
	}

	fallback := NormalizePaymentType(p.Mode)
	alloc, err := AllocateCombinedPayment(owned, p.Amount, PlanSplitter{Plan: p.Splits, Fallback: fallback})
	if err != nil {
		return Allocation{}, err
	}
	if err := s.store.UpdateSales(ctx, alloc.Sales); err != nil {
		return Allocation{}, err
	}
	if alloc.Leftover.IsPositive() {
		s.logger.Warn("combined payment exceeded outstanding balance",
			"customer", p.Customer.Key(), "leftover", alloc.Leftover.String())
	}
	s.logger.Info("combined payment recorded", "customer", p.Customer.Key(),
		"sales", len(alloc.Sales), "allocated", alloc.Allocated.String())
	s.sync.Trigger()
	return alloc, nil
}

// normalizeRef cleans a phone the way sales store it.
func normalizeRef(ref domain.CustomerRef) (domain.CustomerRef, error) {
	ref.Name = strings.TrimSpace(ref.Name)
	ref.Address = strings.TrimSpace(ref.Address)
	if ref.Phone = strings.TrimSpace(ref.Phone); ref.Phone == "" {
		return ref, nil
	}
	phone, err := ValidatePhone(ref.Phone)
	if err != nil {
		return ref, err
	}
	ref.Phone = phone
	return ref, nil
}

// Pending groups every outstanding balance by customer.
func (s *Service) Pending(ctx context.Context) ([]domain.PendingGroup, error) {
	sales, err := s.store.ListPendingSales(ctx)
	if err != nil {
		return nil, err
	}
	return GroupPendingByCustomer(sales), nil
}

// History returns one customer's sales oldest first.
func (s *Service) History(ctx context.Context, ref domain.CustomerRef) (History, error) {
	ref, err := normalizeRef(ref)
	if err != nil {
		return History{}, err
	}
	var sales []*domain.Sale
	if ref.Phone != "" {
		sales, err = s.store.ListSalesByPhone(ctx, ref.Phone)
	} else {
		sales, err = s.store.GetAllSales(ctx)
	}
	if err != nil {
		return History{}, err
	}
	return CustomerHistory(sales, ref), nil
}

// KgsSold sums kilograms sold on date; an empty date means today.
func (s *Service) KgsSold(ctx context.Context, date string) (string, decimal.Decimal, error) {
	if date == "" {
		date = s.now().Format(domain.DateLayout)
	} else if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return "", decimal.Zero, invalid("date", "must be in YYYY-MM-DD format")
	}
	sales, err := s.store.ListSalesByDate(ctx, date)
	if err != nil {
		return "", decimal.Zero, err
	}
	return date, KgsOnDate(sales, date), nil
}
