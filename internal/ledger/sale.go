package ledger

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"teatracker/m/domain"
)

var (
	nonDigits    = regexp.MustCompile(`\D`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// ValidatePhone strips everything but digits and requires exactly ten.
func ValidatePhone(phone string) (string, error) {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	if !phonePattern.MatchString(cleaned) {
		return "", invalid("phone", "must be a 10-digit phone number")
	}
	return cleaned, nil
}

// SaleInput is what a user enters for a new sale.
type SaleInput struct {
	Date        string          `json:"date"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Business    string          `json:"business"`
	Address     string          `json:"address"`
	Kgs         decimal.Decimal `json:"kgs"`
	Price       decimal.Decimal `json:"price"`
	PaymentType string          `json:"paymentType"`
	Cash        decimal.Decimal `json:"cash"`
	Online      decimal.Decimal `json:"online"`
	// Edited is the mixed-payment field the user typed in last.
	Edited string `json:"edited,omitempty"`
}

// NewSale validates in and builds an unsynced sale with all derived
// fields computed. The phone is optional only when requirePhone is
// false.
func NewSale(in SaleInput, now time.Time, requirePhone bool) (*domain.Sale, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone != "" || requirePhone {
		var err error
		if phone, err = ValidatePhone(phone); err != nil {
			return nil, err
		}
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = now.Format(domain.DateLayout)
	} else if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, invalid("date", "must be in YYYY-MM-DD format")
	}

	kgs, price := nonNegative(in.Kgs), nonNegative(in.Price)
	total := ComputeTotal(kgs, price)
	pt := NormalizePaymentType(in.PaymentType)
	cash, online := ClassifyPayment(pt, in.Cash, in.Online)
	paid := Split{Cash: cash, Online: online}
	if pt == domain.PaymentMixed {
		paid = BalanceMixed(total, cash, online, ParseField(in.Edited))
	}
	paid = capSplit(paid, total)

	s := &domain.Sale{
		Date:        date,
		Name:        strings.TrimSpace(in.Name),
		Phone:       phone,
		Business:    strings.TrimSpace(in.Business),
		Address:     strings.TrimSpace(in.Address),
		Kgs:         kgs,
		Price:       price,
		Total:       total,
		PaymentType: pt,
		Cash:        paid.Cash,
		Online:      paid.Online,
		CreatedAt:   now.UnixMilli(),
		Synced:      false,
	}
	settle(s)
	return s, nil
}
