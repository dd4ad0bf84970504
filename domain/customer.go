package domain

import "strings"

const maxSoftKeyLen = 200

type Customer struct {
	Phone    string `db:"phone" json:"phone"`
	Name     string `db:"name" json:"name"`
	Business string `db:"business" json:"business"`
	Address  string `db:"address" json:"address"`
}

// Matches reports whether q is a case-insensitive substring of any
// searchable field. A blank query matches every customer.
func (c Customer) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, field := range []string{c.Name, c.Phone, c.Business, c.Address} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// CustomerRef identifies a customer by phone, or by name and address
// when no phone is known.
type CustomerRef struct {
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Key returns the phone when present, else "name|address" truncated
// to 200 characters. Two phoneless customers with the same name and
// address share a key.
func (r CustomerRef) Key() string {
	if r.Phone != "" {
		return r.Phone
	}
	key := []rune(r.Name + "|" + r.Address)
	if len(key) > maxSoftKeyLen {
		key = key[:maxSoftKeyLen]
	}
	return string(key)
}

// Owns reports whether the sale belongs to the referenced customer.
func (r CustomerRef) Owns(s *Sale) bool {
	return s.CustomerKey() == r.Key()
}
