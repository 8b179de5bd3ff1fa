// Package savings orchestrates locked savings: lock-in, maturity, and
// withdrawal with the early-withdrawal penalty.
package savings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

type Engine struct {
	Store *store.Store
	// PenaltyRate is the fraction of principal forfeited on early
	// withdrawal, e.g. 0.10.
	PenaltyRate decimal.Decimal
	Now         func() time.Time
}

func NewEngine(s *store.Store, penaltyRate decimal.Decimal) *Engine {
	return &Engine{Store: s, PenaltyRate: penaltyRate, Now: time.Now}
}

// WithdrawResult reports what a withdrawal paid out.
type WithdrawResult struct {
	Receivable decimal.Decimal
	Penalty    decimal.Decimal
	Early      bool
	AccountID  uuid.UUID
}

// Lock debits the source account and creates the locked saving plus its
// kind=lock history transaction as one atomic unit. The lock matures
// periodMonths calendar months after now.
func (e *Engine) Lock(ctx context.Context, who ledger.Identity, accountID uuid.UUID, amount decimal.Decimal, periodMonths int) (uuid.UUID, error) {
	if !amount.IsPositive() {
		return uuid.Nil, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}
	if periodMonths <= 0 {
		return uuid.Nil, fmt.Errorf("%w: lock period must be positive", ledger.ErrInvalidArgument)
	}

	start := e.Now()
	end := AddMonths(start, periodMonths)

	var savingID uuid.UUID
	err := e.Store.Atomic(ctx, func(tx *store.Store) error {
		acc, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc.UserID != who.UserID {
			return ledger.ErrNotFound
		}
		if _, err := tx.AdjustBalance(ctx, acc.ID, amount.Neg()); err != nil {
			return err
		}
		savingID, err = tx.CreateLockedSaving(ctx, &models.LockedSaving{
			UserID:           who.UserID,
			AccountID:        acc.ID,
			Amount:           amount,
			LockPeriodMonths: periodMonths,
			StartDate:        start,
			EndDate:          end,
		})
		if err != nil {
			return err
		}
		_, err = tx.AppendTransaction(ctx, &models.Transaction{
			UserID:      who.UserID,
			AccountID:   &acc.ID,
			FromDetails: acc.Name,
			ToDetails:   "Locked Savings",
			Amount:      amount,
			Description: fmt.Sprintf("Locked for %d months", periodMonths),
			Kind:        models.KindLock,
			Status:      models.StatusLocked,
		})
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return savingID, nil
}

// Withdraw pays a saving out exactly once. Before maturity the
// configured penalty rate is forfeited and recorded as a kind=penalty
// transaction; the receivable is always recorded as kind=receive. The
// destination is the originating account, or the user's oldest account
// when the original no longer exists.
func (e *Engine) Withdraw(ctx context.Context, who ledger.Identity, savingID uuid.UUID) (*WithdrawResult, error) {
	var res WithdrawResult
	err := e.Store.Atomic(ctx, func(tx *store.Store) error {
		saving, err := tx.GetLockedSaving(ctx, savingID)
		if err != nil {
			return err
		}
		if saving.UserID != who.UserID {
			return ledger.ErrNotFound
		}
		if err := tx.MarkWithdrawn(ctx, saving.ID); err != nil {
			return err
		}

		now := e.Now()
		res.Early = now.Before(saving.EndDate)
		res.Penalty = decimal.Zero
		if res.Early {
			res.Penalty = saving.Amount.Mul(e.PenaltyRate).Round(2)
		}
		res.Receivable = saving.Amount.Sub(res.Penalty)

		dest, err := tx.GetAccount(ctx, saving.AccountID)
		if errors.Is(err, ledger.ErrNotFound) || (err == nil && dest.UserID != who.UserID) {
			dest, err = tx.OldestAccountForUser(ctx, who.UserID)
		}
		if err != nil {
			return err
		}
		res.AccountID = dest.ID

		if _, err := tx.AdjustBalance(ctx, dest.ID, res.Receivable); err != nil {
			return err
		}
		if res.Early {
			_, err = tx.AppendTransaction(ctx, &models.Transaction{
				UserID:      who.UserID,
				AccountID:   &dest.ID,
				FromDetails: "Locked Savings",
				ToDetails:   "Penalty",
				Amount:      res.Penalty,
				Description: "Early withdrawal penalty",
				Kind:        models.KindPenalty,
				Status:      models.StatusCompleted,
			})
			if err != nil {
				return err
			}
		}
		_, err = tx.AppendTransaction(ctx, &models.Transaction{
			UserID:      who.UserID,
			AccountID:   &dest.ID,
			FromDetails: "Locked Savings",
			ToDetails:   dest.Name,
			Amount:      res.Receivable,
			Description: "Withdrawal from savings",
			Kind:        models.KindReceive,
			Status:      models.StatusCompleted,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// AddMonths advances t by n calendar months, clamping the day when the
// target month is shorter (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
