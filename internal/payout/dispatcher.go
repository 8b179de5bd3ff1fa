package payout

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

const (
	pollInterval = 5 * time.Second
	maxAttempts  = 5
)

// Dispatcher drains queued payout jobs in the background, retrying
// with a growing delay and giving up after maxAttempts.
type Dispatcher struct {
	Store  *store.Store
	Client *Client
	Log    *zap.Logger
}

func NewDispatcher(s *store.Store, c *Client, log *zap.Logger) *Dispatcher {
	return &Dispatcher{Store: s, Client: c, Log: log}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.Log.Info("payout dispatcher started")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.Log.Info("payout dispatcher stopped")
			return
		case <-ticker.C:
			d.processOne(ctx)
		}
	}
}

func (d *Dispatcher) processOne(ctx context.Context) {
	job, err := d.Store.ClaimDuePayout(ctx, time.Now())
	if errors.Is(err, ledger.ErrNotFound) {
		return
	}
	if err != nil {
		d.Log.Error("payout claim failed", zap.Error(err))
		return
	}

	batchID, sendErr := d.Client.SendPayout(ctx, job.Receiver, job.Amount, job.Currency, job.Note)
	if sendErr == nil {
		if err := d.Store.CompletePayout(ctx, job.ID); err != nil {
			d.Log.Error("payout completion not recorded", zap.Error(err), zap.String("job", job.ID.String()))
			return
		}
		d.Log.Info("payout sent", zap.String("job", job.ID.String()), zap.String("batch", batchID))
		return
	}

	attempts := job.Attempts + 1
	if attempts >= maxAttempts {
		if err := d.Store.FailPayout(ctx, job.ID); err != nil {
			d.Log.Error("payout failure not recorded", zap.Error(err))
		}
		d.Log.Error("payout abandoned", zap.Error(sendErr), zap.String("job", job.ID.String()), zap.Int("attempts", attempts))
		return
	}

	nextRun := time.Now().Add(time.Duration(attempts*10) * time.Second)
	if err := d.Store.ReschedulePayout(ctx, job.ID, attempts, nextRun); err != nil {
		d.Log.Error("payout retry not scheduled", zap.Error(err))
		return
	}
	d.Log.Warn("payout retry scheduled", zap.Error(sendErr), zap.String("job", job.ID.String()), zap.Time("next_run", nextRun))
}
