package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"teatracker/m/internal/ledger"
	"teatracker/m/internal/store"
)

// ErrSyncInProgress is returned when another sync holds the lock.
var ErrSyncInProgress = errors.New("mirror: sync already in progress")

// Result summarises one sync pass.
type Result struct {
	Pushed  int `json:"pushed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Syncer pushes unsynced sales for the signed-in owner. It is
// best-effort and at-least-once: a record whose push fails stays
// unsynced for the next trigger, and one that changed locally while
// in flight is pushed again later.
type Syncer struct {
	store  store.Store
	mirror Mirror
	logger *slog.Logger
	now    func() time.Time

	running sync.Mutex
	wg      sync.WaitGroup

	ownerMu sync.RWMutex
	owner   string
}

// NewSyncer creates a Syncer. A nil mirror disables remote writes.
func NewSyncer(st store.Store, m Mirror, logger *slog.Logger) *Syncer {
	if m == nil {
		m = Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: st, mirror: m, logger: logger, now: time.Now}
}

// Configured reports whether a remote mirror exists.
func (s *Syncer) Configured() bool {
	_, nop := s.mirror.(Nop)
	return !nop
}

// SetOwner records the signed-in owner and starts a sync.
func (s *Syncer) SetOwner(owner string) {
	s.ownerMu.Lock()
	s.owner = owner
	s.ownerMu.Unlock()
	s.Trigger()
}

// Owner returns the signed-in owner, or "".
func (s *Syncer) Owner() string {
	s.ownerMu.RLock()
	defer s.ownerMu.RUnlock()
	return s.owner
}

// Trigger runs Sync in the background when a mirror and an owner are
// present. Triggers that arrive while a sync runs are dropped.
func (s *Syncer) Trigger() {
	if !s.Configured() || s.Owner() == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.Sync(context.Background())
		switch {
		case errors.Is(err, ErrSyncInProgress):
		case err != nil:
			s.logger.Warn("background sync failed", "error", err)
		case res.Pushed > 0 || res.Failed > 0:
			s.logger.Info("background sync finished", "pushed", res.Pushed, "failed", res.Failed, "skipped", res.Skipped)
		}
	}()
}

// Wait blocks until background syncs finish.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// Sync pushes every unsynced sale once and flips its synced flag on
// success. Per-record failures are logged and counted, not returned.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	if !s.Configured() {
		return Result{}, ledger.ErrMirrorDisabled
	}
	owner := s.Owner()
	if owner == "" {
		return Result{}, ledger.ErrUnauthorized
	}
	if !s.running.TryLock() {
		return Result{}, ErrSyncInProgress
	}
	defer s.running.Unlock()

	unsynced, err := s.store.ListUnsyncedSales(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, sale := range unsynced {
		doc := Normalize(sale, s.now())
		if err := s.mirror.UpsertSale(ctx, owner, &doc); err != nil {
			s.logger.Warn("sale not mirrored", "id", sale.ID, "error", err)
			res.Failed++
			continue
		}

		marked, err := s.store.MarkSynced(ctx, sale.ID, sale)
		if err != nil {
			s.logger.Warn("synced flag not saved", "id", sale.ID, "error", err)
			res.Failed++
			continue
		}
		if !marked {
			// Changed since it was listed; the next pass sends the new state.
			res.Skipped++
			continue
		}
		res.Pushed++
	}
	return res, nil
}
