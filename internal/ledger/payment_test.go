package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"teatracker/m/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func checkInvariant(t *testing.T, s *domain.Sale) {
	t.Helper()
	if !s.PaidAmount.Equal(s.Cash.Add(s.Online)) {
		t.Errorf("paidAmount: got %s, want cash+online %s", s.PaidAmount, s.Cash.Add(s.Online))
	}
	if !s.PaidAmount.Add(s.Remaining).Equal(s.Total) {
		t.Errorf("paid+remaining: got %s, want total %s", s.PaidAmount.Add(s.Remaining), s.Total)
	}
	if s.Remaining.IsNegative() {
		t.Errorf("remaining is negative: %s", s.Remaining)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.5", "12.5"},
		{" 40 ", "40"},
		{"", "0"},
		{"abc", "0"},
		{"-5", "0"},
	}
	for _, tt := range tests {
		if got := ParseAmount(tt.in); !got.Equal(dec(tt.want)) {
			t.Errorf("ParseAmount(%q): got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		kgs, price, want string
	}{
		{"10", "50", "500"},
		{"2.5", "120", "300"},
		{"0", "50", "0"},
		{"-3", "50", "0"},
		{"0.1", "0.2", "0.02"},
	}
	for _, tt := range tests {
		if got := ComputeTotal(dec(tt.kgs), dec(tt.price)); !got.Equal(dec(tt.want)) {
			t.Errorf("ComputeTotal(%s, %s): got %s, want %s", tt.kgs, tt.price, got, tt.want)
		}
	}
}

func TestNormalizePaymentType(t *testing.T) {
	tests := map[string]domain.PaymentType{
		"cash":    domain.PaymentCash,
		" Online": domain.PaymentOnline,
		"MIXED":   domain.PaymentMixed,
		"none":    domain.PaymentUnspecified,
		"":        domain.PaymentUnspecified,
		"cheque":  domain.PaymentUnspecified,
	}
	for in, want := range tests {
		if got := NormalizePaymentType(in); got != want {
			t.Errorf("NormalizePaymentType(%q): got %s, want %s", in, got, want)
		}
	}
}

func TestClassifyPayment(t *testing.T) {
	tests := []struct {
		name       string
		pt         domain.PaymentType
		cash, onl  string
		wantCash   string
		wantOnline string
	}{
		{"cash zeroes online", domain.PaymentCash, "100", "50", "100", "0"},
		{"online zeroes cash", domain.PaymentOnline, "100", "50", "0", "50"},
		{"mixed keeps both", domain.PaymentMixed, "100", "50", "100", "50"},
		{"unspecified zeroes both", domain.PaymentUnspecified, "100", "50", "0", "0"},
		{"negatives clamp", domain.PaymentMixed, "-1", "-2", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cash, online := ClassifyPayment(tt.pt, dec(tt.cash), dec(tt.onl))
			if !cash.Equal(dec(tt.wantCash)) || !online.Equal(dec(tt.wantOnline)) {
				t.Errorf("got (%s, %s), want (%s, %s)", cash, online, tt.wantCash, tt.wantOnline)
			}
		})
	}
}

func TestBalanceMixed(t *testing.T) {
	tests := []struct {
		name               string
		total, cash, onl   string
		edited             Field
		wantCash, wantOnl  string
	}{
		{"cash edited", "500", "200", "0", FieldCash, "200", "300"},
		{"online edited", "500", "0", "120", FieldOnline, "380", "120"},
		{"cash above total", "500", "600", "10", FieldCash, "600", "0"},
		{"no edit within total", "500", "100", "100", FieldNone, "100", "100"},
		{"no edit over total", "500", "400", "300", FieldNone, "400", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BalanceMixed(dec(tt.total), dec(tt.cash), dec(tt.onl), tt.edited)
			if !got.Cash.Equal(dec(tt.wantCash)) || !got.Online.Equal(dec(tt.wantOnl)) {
				t.Errorf("got (%s, %s), want (%s, %s)", got.Cash, got.Online, tt.wantCash, tt.wantOnl)
			}
		})
	}
}

func TestNewSaleExample(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	sale, err := NewSale(SaleInput{
		Name:        "Asha",
		Phone:       "98765-43210",
		Kgs:         dec("10"),
		Price:       dec("50"),
		PaymentType: "cash",
		Cash:        dec("200"),
	}, now, true)
	if err != nil {
		t.Fatalf("NewSale: %v", err)
	}
	if !sale.Total.Equal(dec("500")) {
		t.Errorf("total: got %s, want 500", sale.Total)
	}
	if !sale.Remaining.Equal(dec("300")) {
		t.Errorf("remaining: got %s, want 300", sale.Remaining)
	}
	if sale.Synced {
		t.Error("new sale should be unsynced")
	}
	if sale.Phone != "9876543210" {
		t.Errorf("phone: got %q, want digits only", sale.Phone)
	}
	if sale.Date != "2024-03-09" {
		t.Errorf("date: got %q, want today", sale.Date)
	}
	if sale.CreatedAt != now.UnixMilli() {
		t.Errorf("createdAt: got %d, want %d", sale.CreatedAt, now.UnixMilli())
	}
	checkInvariant(t, sale)
}

func TestNewSaleCapsPaymentAtTotal(t *testing.T) {
	sale, err := NewSale(SaleInput{
		Phone:       "9876543210",
		Kgs:         dec("2"),
		Price:       dec("100"),
		PaymentType: "mixed",
		Cash:        dec("150"),
		Online:      dec("150"),
	}, time.Now(), true)
	if err != nil {
		t.Fatalf("NewSale: %v", err)
	}
	if !sale.Cash.Equal(dec("150")) || !sale.Online.Equal(dec("50")) {
		t.Errorf("split: got (%s, %s), want (150, 50)", sale.Cash, sale.Online)
	}
	if !sale.Remaining.IsZero() {
		t.Errorf("remaining: got %s, want 0", sale.Remaining)
	}
	checkInvariant(t, sale)
}

func TestNewSaleValidation(t *testing.T) {
	tests := []struct {
		name         string
		in           SaleInput
		requirePhone bool
	}{
		{"short phone", SaleInput{Phone: "12345"}, true},
		{"missing phone", SaleInput{}, true},
		{"bad date", SaleInput{Phone: "9876543210", Date: "09/03/2024"}, true},
		{"bad optional phone", SaleInput{Phone: "12"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSale(tt.in, time.Now(), tt.requirePhone)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("got %T, want *ValidationError", err)
			}
		})
	}

	if _, err := NewSale(SaleInput{Kgs: dec("1"), Price: dec("1")}, time.Now(), false); err != nil {
		t.Errorf("phoneless import: got %v, want nil", err)
	}
}

func TestRecordPayment(t *testing.T) {
	newSale := func() *domain.Sale {
		s, err := NewSale(SaleInput{Phone: "9876543210", Kgs: dec("10"), Price: dec("50")}, time.Now(), true)
		if err != nil {
			t.Fatalf("NewSale: %v", err)
		}
		s.Synced = true
		return s
	}

	t.Run("partial", func(t *testing.T) {
		s := newSale()
		applied, err := RecordPayment(s, Split{Cash: dec("200")})
		if err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
		if !applied.Cash.Equal(dec("200")) {
			t.Errorf("applied: got %s, want 200", applied.Cash)
		}
		if !s.Remaining.Equal(dec("300")) {
			t.Errorf("remaining: got %s, want 300", s.Remaining)
		}
		if s.Synced {
			t.Error("payment should clear synced")
		}
		checkInvariant(t, s)
	})

	t.Run("overpayment capped online first", func(t *testing.T) {
		s := newSale()
		applied, err := RecordPayment(s, Split{Cash: dec("400"), Online: dec("400")})
		if err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
		if !applied.Cash.Equal(dec("400")) || !applied.Online.Equal(dec("100")) {
			t.Errorf("applied: got (%s, %s), want (400, 100)", applied.Cash, applied.Online)
		}
		if !s.Remaining.IsZero() {
			t.Errorf("remaining: got %s, want 0", s.Remaining)
		}
		checkInvariant(t, s)
	})

	t.Run("non-positive", func(t *testing.T) {
		s := newSale()
		if _, err := RecordPayment(s, Split{Cash: dec("-5")}); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("got %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("settled", func(t *testing.T) {
		s := newSale()
		if _, err := RecordPayment(s, Split{Cash: dec("500")}); err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
		if _, err := RecordPayment(s, Split{Cash: dec("1")}); !errors.Is(err, ErrSettled) {
			t.Errorf("got %v, want ErrSettled", err)
		}
	})
}

func pendingSale(id int64, date, remaining string) *domain.Sale {
	total := dec(remaining)
	return &domain.Sale{
		ID:         id,
		Date:       date,
		Phone:      "9876543210",
		Total:      total,
		Cash:       decimal.Zero,
		Online:     decimal.Zero,
		PaidAmount: decimal.Zero,
		Remaining:  total,
		Synced:     true,
	}
}

func TestAllocateCombinedPaymentExample(t *testing.T) {
	first := pendingSale(1, "2024-01-01", "100")
	second := pendingSale(2, "2024-01-02", "200")

	// Input order is reversed to check the date ordering.
	alloc, err := AllocateCombinedPayment([]*domain.Sale{second, first}, dec("150"), CashSplitter)
	if err != nil {
		t.Fatalf("AllocateCombinedPayment: %v", err)
	}
	if !first.Remaining.IsZero() {
		t.Errorf("first remaining: got %s, want 0", first.Remaining)
	}
	if !second.Remaining.Equal(dec("150")) {
		t.Errorf("second remaining: got %s, want 150", second.Remaining)
	}
	if !alloc.Allocated.Equal(dec("150")) || !alloc.Leftover.IsZero() {
		t.Errorf("allocated/leftover: got %s/%s, want 150/0", alloc.Allocated, alloc.Leftover)
	}
	if len(alloc.Applied) != 2 || alloc.Applied[0].SaleID != 1 || !alloc.Applied[0].Cash.Equal(dec("100")) {
		t.Errorf("applied: got %+v", alloc.Applied)
	}
	for _, s := range []*domain.Sale{first, second} {
		if s.Synced {
			t.Errorf("sale %d should be unsynced", s.ID)
		}
		checkInvariant(t, s)
	}
}

func TestAllocateCombinedPayment(t *testing.T) {
	t.Run("leftover reported", func(t *testing.T) {
		s := pendingSale(1, "2024-01-01", "100")
		alloc, err := AllocateCombinedPayment([]*domain.Sale{s}, dec("180"), OnlineSplitter)
		if err != nil {
			t.Fatalf("AllocateCombinedPayment: %v", err)
		}
		if !alloc.Leftover.Equal(dec("80")) {
			t.Errorf("leftover: got %s, want 80", alloc.Leftover)
		}
		if !s.Online.Equal(dec("100")) {
			t.Errorf("online: got %s, want 100", s.Online)
		}
	})

	t.Run("settled sales untouched", func(t *testing.T) {
		settled := pendingSale(1, "2023-12-01", "0")
		open := pendingSale(2, "2024-01-01", "50")
		alloc, err := AllocateCombinedPayment([]*domain.Sale{settled, open}, dec("20"), nil)
		if err != nil {
			t.Fatalf("AllocateCombinedPayment: %v", err)
		}
		if len(alloc.Sales) != 1 || alloc.Sales[0].ID != 2 {
			t.Errorf("touched: got %+v, want only sale 2", alloc.Sales)
		}
		if !settled.Synced {
			t.Error("settled sale should keep its synced flag")
		}
	})

	t.Run("same date keeps input order", func(t *testing.T) {
		a := pendingSale(7, "2024-01-01", "50")
		b := pendingSale(3, "2024-01-01", "50")
		if _, err := AllocateCombinedPayment([]*domain.Sale{a, b}, dec("50"), nil); err != nil {
			t.Fatalf("AllocateCombinedPayment: %v", err)
		}
		if !a.Remaining.IsZero() || !b.Remaining.Equal(dec("50")) {
			t.Errorf("remaining: got a=%s b=%s, want a=0 b=50", a.Remaining, b.Remaining)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		s := pendingSale(1, "2024-01-01", "50")
		if _, err := AllocateCombinedPayment([]*domain.Sale{s}, decimal.Zero, nil); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("got %v, want ErrInvalidAmount", err)
		}
	})
}

func TestPlanSplitter(t *testing.T) {
	s := pendingSale(4, "2024-01-01", "100")
	tests := []struct {
		name       string
		splitter   PlanSplitter
		pay        string
		wantCash   string
		wantOnline string
	}{
		{"exact plan", PlanSplitter{Plan: map[int64]Split{4: {Cash: dec("30"), Online: dec("70")}}}, "100", "30", "70"},
		{"plan over pay", PlanSplitter{Plan: map[int64]Split{4: {Cash: dec("60"), Online: dec("60")}}}, "100", "60", "40"},
		{"short plan to cash", PlanSplitter{Plan: map[int64]Split{4: {Online: dec("30")}}}, "100", "70", "30"},
		{"no plan online fallback", PlanSplitter{Fallback: domain.PaymentOnline}, "100", "0", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.splitter.Split(s, dec(tt.pay))
			if !got.Cash.Equal(dec(tt.wantCash)) || !got.Online.Equal(dec(tt.wantOnline)) {
				t.Errorf("got (%s, %s), want (%s, %s)", got.Cash, got.Online, tt.wantCash, tt.wantOnline)
			}
		})
	}
}
