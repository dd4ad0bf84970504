// Package mirror pushes local sales to an optional per-user remote store.
package mirror

import (
	"context"
	"time"

	"teatracker/m/domain"
	"teatracker/m/internal/ledger"
)

// Mirror upserts one sale into the remote collection of owner, keyed
// by the local sale id. Writes merge into any existing document.
type Mirror interface {
	UpsertSale(ctx context.Context, owner string, sale *domain.Sale) error
	Close() error
}

// Nop is the mirror used when no remote is configured.
type Nop struct{}

func (Nop) UpsertSale(context.Context, string, *domain.Sale) error { return ledger.ErrMirrorDisabled }
func (Nop) Close() error                                           { return nil }

// Normalize returns the copy of sale that is sent remotely. A missing
// creation time is filled with now.
func Normalize(sale *domain.Sale, now time.Time) domain.Sale {
	out := *sale
	if out.CreatedAt == 0 {
		out.CreatedAt = now.UnixMilli()
	}
	return out
}
