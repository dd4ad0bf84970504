package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"teatracker/m/domain"
	"teatracker/m/internal/ledger"
)

func TestStoreReturnsCopies(t *testing.T) {
	st := New()
	ctx := context.Background()

	sale := &domain.Sale{Date: "2024-01-01", Phone: "1111111111", Total: decimal.NewFromInt(100), Remaining: decimal.NewFromInt(100)}
	if err := st.AddSale(ctx, sale); err != nil {
		t.Fatalf("AddSale: %v", err)
	}
	got, err := st.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	got.Remaining = decimal.Zero

	again, _ := st.GetSale(ctx, sale.ID)
	if !again.Remaining.Equal(decimal.NewFromInt(100)) {
		t.Errorf("stored sale mutated through returned pointer: remaining %s", again.Remaining)
	}
}

func TestStoreFailures(t *testing.T) {
	st := New()
	ctx := context.Background()

	st.FailWrites(true)
	if err := st.AddSale(ctx, &domain.Sale{}); !errors.Is(err, ledger.ErrStore) {
		t.Errorf("AddSale: got %v, want ErrStore", err)
	}
	st.FailWrites(false)

	if _, err := st.GetSale(ctx, 9); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("GetSale: got %v, want ErrNotFound", err)
	}

	_ = st.Close()
	if err := st.Ping(ctx); !errors.Is(err, ledger.ErrStore) {
		t.Errorf("Ping after close: got %v, want ErrStore", err)
	}
	if err := st.SaveCustomer(ctx, &domain.Customer{Phone: "1"}); !errors.Is(err, ledger.ErrStore) {
		t.Errorf("SaveCustomer after close: got %v, want ErrStore", err)
	}
}

func TestCustomerOrderIsInsertionOrder(t *testing.T) {
	st := New()
	ctx := context.Background()
	for _, p := range []string{"3", "1", "2", "1"} {
		if err := st.SaveCustomer(ctx, &domain.Customer{Phone: p}); err != nil {
			t.Fatalf("SaveCustomer: %v", err)
		}
	}
	all, _ := st.GetAllCustomers(ctx)
	want := []string{"3", "1", "2"}
	if len(all) != len(want) {
		t.Fatalf("got %d customers, want %d", len(all), len(want))
	}
	for i, c := range all {
		if c.Phone != want[i] {
			t.Errorf("customer %d: got %s, want %s", i, c.Phone, want[i])
		}
	}
}

func TestMarkSyncedComparesPayment(t *testing.T) {
	st := New()
	ctx := context.Background()

	sale := &domain.Sale{Date: "2024-01-01", Total: decimal.NewFromInt(100), Remaining: decimal.NewFromInt(100)}
	if err := st.AddSale(ctx, sale); err != nil {
		t.Fatalf("AddSale: %v", err)
	}
	snapshot := *sale

	paid := *sale
	paid.Cash = decimal.NewFromInt(40)
	paid.PaidAmount = decimal.NewFromInt(40)
	paid.Remaining = decimal.NewFromInt(60)
	if err := st.UpdateSale(ctx, &paid); err != nil {
		t.Fatalf("UpdateSale: %v", err)
	}

	if ok, err := st.MarkSynced(ctx, sale.ID, &snapshot); err != nil || ok {
		t.Errorf("stale snapshot: got %v (%v), want false", ok, err)
	}
	if ok, err := st.MarkSynced(ctx, sale.ID, &paid); err != nil || !ok {
		t.Errorf("current snapshot: got %v (%v), want true", ok, err)
	}
	if ok, _ := st.MarkSynced(ctx, sale.ID, &paid); ok {
		t.Error("already synced sale marked again")
	}
	got, _ := st.GetSale(ctx, sale.ID)
	if !got.Synced || !got.Remaining.Equal(decimal.NewFromInt(60)) {
		t.Errorf("got synced %v remaining %s, want true 60", got.Synced, got.Remaining)
	}
}
