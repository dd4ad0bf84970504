package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"teatracker/m/domain"
)

// GroupPendingByCustomer buckets sales that still owe money by
// customer key and sorts the buckets by total remaining, largest
// first. Settled sales are skipped.
func GroupPendingByCustomer(sales []*domain.Sale) []domain.PendingGroup {
	index := make(map[string]int)
	var groups []domain.PendingGroup
	for _, s := range sales {
		if s == nil || !s.Pending() {
			continue
		}
		key := s.CustomerKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, domain.PendingGroup{
				Key:            key,
				Phone:          s.Phone,
				Name:           s.Name,
				Business:       s.Business,
				Address:        s.Address,
				TotalRemaining: decimal.Zero,
			})
		}
		groups[i].TotalRemaining = groups[i].TotalRemaining.Add(s.Remaining)
		groups[i].Sales = append(groups[i].Sales, s)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].TotalRemaining.GreaterThan(groups[b].TotalRemaining)
	})
	return groups
}

// KgsOnDate sums the kilograms sold on date (YYYY-MM-DD).
func KgsOnDate(sales []*domain.Sale, date string) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		if s != nil && s.Date == date {
			total = total.Add(s.Kgs)
		}
	}
	return total
}

// History is every sale of one customer, oldest first.
type History struct {
	Customer       domain.CustomerRef `json:"customer"`
	Sales          []*domain.Sale     `json:"sales"`
	TotalRemaining decimal.Decimal    `json:"totalRemaining"`
}

// CustomerHistory selects the sales owned by ref and orders them by date.
func CustomerHistory(sales []*domain.Sale, ref domain.CustomerRef) History {
	h := History{Customer: ref, Sales: []*domain.Sale{}, TotalRemaining: decimal.Zero}
	for _, s := range sales {
		if s == nil || !ref.Owns(s) {
			continue
		}
		h.Sales = append(h.Sales, s)
		h.TotalRemaining = h.TotalRemaining.Add(s.Remaining)
	}
	sort.SliceStable(h.Sales, func(i, j int) bool {
		return h.Sales[i].Date < h.Sales[j].Date
	})
	return h
}
