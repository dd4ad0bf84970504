package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DateLayout is the calendar date format used for Sale.Date.
const DateLayout = "2006-01-02"

type PaymentType string

const (
	PaymentCash        PaymentType = "cash"
	PaymentOnline      PaymentType = "online"
	PaymentMixed       PaymentType = "mixed"
	PaymentUnspecified PaymentType = "unspecified"
)

// Sale is one recorded sale with a denormalized customer snapshot.
// PaidAmount is always Cash+Online and Remaining is never stored
// independently of Total and PaidAmount.
type Sale struct {
	ID          int64           `db:"id" json:"id"`
	Date        string          `db:"date" json:"date"`
	Name        string          `db:"name" json:"name"`
	Phone       string          `db:"phone" json:"phone"`
	Business    string          `db:"business" json:"business"`
	Address     string          `db:"address" json:"address"`
	Kgs         decimal.Decimal `db:"kgs" json:"kgs"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Total       decimal.Decimal `db:"total" json:"total"`
	PaymentType PaymentType     `db:"payment_type" json:"paymentType"`
	Cash        decimal.Decimal `db:"cash" json:"cash"`
	Online      decimal.Decimal `db:"online" json:"online"`
	PaidAmount  decimal.Decimal `db:"paid_amount" json:"paidAmount"`
	Remaining   decimal.Decimal `db:"remaining" json:"remaining"`
	CreatedAt   int64           `db:"created_at" json:"createdAt"`
	Synced      bool            `db:"synced" json:"synced"`
}

// Pending reports whether the sale still has an unpaid balance.
func (s *Sale) Pending() bool {
	return s.Remaining.IsPositive()
}

// CreatedTime returns CreatedAt (unix milliseconds) as a time.
func (s *Sale) CreatedTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// Customer returns the customer snapshot carried by the sale.
func (s *Sale) Customer() Customer {
	return Customer{Phone: s.Phone, Name: s.Name, Business: s.Business, Address: s.Address}
}

// CustomerKey is the identity used to group sales by customer.
func (s *Sale) CustomerKey() string {
	return CustomerRef{Phone: s.Phone, Name: s.Name, Address: s.Address}.Key()
}

// PendingGroup is the outstanding balance of one customer across sales.
type PendingGroup struct {
	Key            string          `json:"key"`
	Phone          string          `json:"phone"`
	Name           string          `json:"name"`
	Business       string          `json:"business"`
	Address        string          `json:"address"`
	TotalRemaining decimal.Decimal `json:"totalRemaining"`
	Sales          []*Sale         `json:"sales"`
}
