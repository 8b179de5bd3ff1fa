// Package notify derives the actionable-item count shown on the bell:
// pending requests addressed to the user plus matured savings not yet
// withdrawn. Recomputed from a fresh snapshot on every refresh.
package notify

import (
	"context"
	"time"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

type Aggregator struct {
	Store *store.Store
	Now   func() time.Time
}

func NewAggregator(s *store.Store) *Aggregator {
	return &Aggregator{Store: s, Now: time.Now}
}

func (a *Aggregator) ActionableCount(ctx context.Context, who ledger.Identity) (int, error) {
	rec, err := a.Store.ListForUser(ctx, who.UserID, who.Email)
	if err != nil {
		return 0, err
	}
	return Count(rec, who.Email, a.Now()), nil
}

// Count is the pure derivation over a snapshot.
func Count(rec *store.UserRecords, email string, now time.Time) int {
	n := 0
	for _, tx := range rec.Transactions {
		if tx.Kind == models.KindRequest && tx.ToDetails == email && tx.Status == models.StatusPending {
			n++
		}
	}
	for _, s := range rec.LockedSavings {
		if !s.IsWithdrawn && now.After(s.EndDate) {
			n++
		}
	}
	return n
}
