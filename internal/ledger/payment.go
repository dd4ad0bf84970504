package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"teatracker/m/domain"
)

// Split is an amount divided between the cash and online channels.
type Split struct {
	Cash   decimal.Decimal `json:"cash"`
	Online decimal.Decimal `json:"online"`
}

// Total returns Cash + Online.
func (s Split) Total() decimal.Decimal {
	return s.Cash.Add(s.Online)
}

// CashOnly returns a split that puts the whole amount in cash.
func CashOnly(amount decimal.Decimal) Split {
	return Split{Cash: amount, Online: decimal.Zero}
}

// OnlineOnly returns a split that puts the whole amount online.
func OnlineOnly(amount decimal.Decimal) Split {
	return Split{Cash: decimal.Zero, Online: amount}
}

// Field names the mixed-payment input the user edited last.
type Field int

const (
	FieldNone Field = iota
	FieldCash
	FieldOnline
)

// ParseField maps "cash"/"online" to a Field; anything else is FieldNone.
func ParseField(s string) Field {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash":
		return FieldCash
	case "online":
		return FieldOnline
	default:
		return FieldNone
	}
}

// ParseAmount reads a user-entered number. Invalid text and negative
// values are treated as zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return nonNegative(d)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ComputeTotal returns kgs * price with negative inputs clamped to zero.
func ComputeTotal(kgs, price decimal.Decimal) decimal.Decimal {
	return nonNegative(kgs).Mul(nonNegative(price))
}

// NormalizePaymentType maps free text onto a known PaymentType.
func NormalizePaymentType(s string) domain.PaymentType {
	switch domain.PaymentType(strings.ToLower(strings.TrimSpace(s))) {
	case domain.PaymentCash:
		return domain.PaymentCash
	case domain.PaymentOnline:
		return domain.PaymentOnline
	case domain.PaymentMixed:
		return domain.PaymentMixed
	default:
		return domain.PaymentUnspecified
	}
}

// ClassifyPayment zeroes the channel that the payment type does not use.
func ClassifyPayment(pt domain.PaymentType, cash, online decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	cash, online = nonNegative(cash), nonNegative(online)
	switch pt {
	case domain.PaymentCash:
		return cash, decimal.Zero
	case domain.PaymentOnline:
		return decimal.Zero, online
	case domain.PaymentMixed:
		return cash, online
	default:
		return decimal.Zero, decimal.Zero
	}
}

// BalanceMixed keeps a mixed payment summing to total. Editing one
// field recomputes the other as max(total - edited, 0). With no edited
// field the pair is only clamped: online is forced down so the
// combined amount never exceeds total.
func BalanceMixed(total, cash, online decimal.Decimal, edited Field) Split {
	total, cash, online = nonNegative(total), nonNegative(cash), nonNegative(online)
	switch edited {
	case FieldCash:
		online = nonNegative(total.Sub(cash))
	case FieldOnline:
		cash = nonNegative(total.Sub(online))
	default:
		if cash.Add(online).GreaterThan(total) {
			online = nonNegative(total.Sub(cash))
		}
	}
	return Split{Cash: cash, Online: online}
}

// capSplit limits a split to limit. Online gives way first, then cash.
func capSplit(s Split, limit decimal.Decimal) Split {
	s.Cash, s.Online = nonNegative(s.Cash), nonNegative(s.Online)
	if s.Total().LessThanOrEqual(limit) {
		return s
	}
	s.Online = nonNegative(limit.Sub(s.Cash))
	if s.Cash.GreaterThan(limit) {
		s.Cash = limit
	}
	return s
}

func settle(s *domain.Sale) {
	s.PaidAmount = s.Cash.Add(s.Online)
	s.Remaining = nonNegative(s.Total.Sub(s.PaidAmount))
}

// RecordPayment adds a payment to the sale and returns the split that
// was applied. The payment is capped at the remaining balance, so
// PaidAmount+Remaining stays equal to Total. The sale is marked
// unsynced.
func RecordPayment(s *domain.Sale, add Split) (Split, error) {
	add.Cash, add.Online = nonNegative(add.Cash), nonNegative(add.Online)
	if !add.Total().IsPositive() {
		return Split{}, ErrInvalidAmount
	}
	if !s.Pending() {
		return Split{}, ErrSettled
	}
	applied := capSplit(add, s.Remaining)
	s.Cash = s.Cash.Add(applied.Cash)
	s.Online = s.Online.Add(applied.Online)
	settle(s)
	s.Synced = false
	return applied, nil
}

// Splitter decides how the part of a combined payment applied to one
// sale is divided between channels.
type Splitter interface {
	Split(s *domain.Sale, pay decimal.Decimal) Split
}

// SplitterFunc adapts a function to Splitter.
type SplitterFunc func(s *domain.Sale, pay decimal.Decimal) Split

func (f SplitterFunc) Split(s *domain.Sale, pay decimal.Decimal) Split { return f(s, pay) }

var (
	CashSplitter   Splitter = SplitterFunc(func(_ *domain.Sale, pay decimal.Decimal) Split { return CashOnly(pay) })
	OnlineSplitter Splitter = SplitterFunc(func(_ *domain.Sale, pay decimal.Decimal) Split { return OnlineOnly(pay) })
)

// PlanSplitter applies splits resolved up front, keyed by sale id.
// A planned split is capped at the amount applied to the sale and any
// shortfall goes to the fallback channel. Sales without a plan use
// the fallback for the whole amount.
type PlanSplitter struct {
	Plan     map[int64]Split
	Fallback domain.PaymentType
}

func (p PlanSplitter) Split(s *domain.Sale, pay decimal.Decimal) Split {
	planned, ok := p.Plan[s.ID]
	if !ok {
		planned = Split{}
	}
	out := capSplit(planned, pay)
	short := pay.Sub(out.Total())
	if short.IsPositive() {
		if p.Fallback == domain.PaymentOnline {
			out.Online = out.Online.Add(short)
		} else {
			out.Cash = out.Cash.Add(short)
		}
	}
	return out
}

// Applied is the payment applied to one sale of a combined payment.
type Applied struct {
	SaleID int64 `json:"saleId"`
	Split
}

// Allocation is the outcome of a combined payment.
type Allocation struct {
	Sales     []*domain.Sale  `json:"sales"`
	Applied   []Applied       `json:"applied"`
	Allocated decimal.Decimal `json:"allocated"`
	Leftover  decimal.Decimal `json:"leftover"`
}

// AllocateCombinedPayment applies amount to the pending sales oldest
// first. Ties on date keep the input order. Each sale receives
// min(remaining, amount left). Whatever is left after every sale is
// settled is reported as Leftover and not applied anywhere. The sales
// are mutated in place; Allocation.Sales lists the ones touched.
func AllocateCombinedPayment(sales []*domain.Sale, amount decimal.Decimal, splitter Splitter) (Allocation, error) {
	if !amount.IsPositive() {
		return Allocation{}, ErrInvalidAmount
	}
	if splitter == nil {
		splitter = CashSplitter
	}

	pending := make([]*domain.Sale, 0, len(sales))
	for _, s := range sales {
		if s != nil && s.Pending() {
			pending = append(pending, s)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Date < pending[j].Date
	})

	out := Allocation{Allocated: decimal.Zero}
	left := amount
	for _, s := range pending {
		if !left.IsPositive() {
			break
		}
		pay := decimal.Min(s.Remaining, left)
		applied, err := RecordPayment(s, splitter.Split(s, pay))
		if err != nil {
			return out, err
		}
		out.Sales = append(out.Sales, s)
		out.Applied = append(out.Applied, Applied{SaleID: s.ID, Split: applied})
		out.Allocated = out.Allocated.Add(applied.Total())
		left = left.Sub(applied.Total())
	}
	out.Leftover = left
	return out, nil
}
