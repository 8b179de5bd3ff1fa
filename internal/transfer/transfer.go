// Package transfer orchestrates direct sends and external deposits.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/restriction"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

type Engine struct {
	Store *store.Store
	Now   func() time.Time
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{Store: s, Now: time.Now}
}

// SendInput carries the placement of a direct send. GeoFence,
// TimeRestriction and Placement are optional; restrictions are opt-in.
type SendInput struct {
	FromAccountID   uuid.UUID
	To              string
	Amount          decimal.Decimal
	Description     string
	GeoFence        *models.GeoFence
	TimeRestriction *models.TimeRestriction
	Placement       *restriction.Point
}

// Send validates restrictions and funds, then debits the source and
// records a kind=send transaction as one atomic unit. A placed send is
// debited immediately; its Pending status is display history, not a
// settlement step.
func (e *Engine) Send(ctx context.Context, who ledger.Identity, in SendInput) (uuid.UUID, error) {
	if !in.Amount.IsPositive() {
		return uuid.Nil, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}
	if in.To == "" {
		return uuid.Nil, fmt.Errorf("%w: missing recipient", ledger.ErrInvalidArgument)
	}

	// Restrictions are checked before any state changes.
	if !restriction.WithinGeofence(in.GeoFence, in.Placement) {
		return uuid.Nil, fmt.Errorf("%w: outside geofence", ledger.ErrRestrictionViolation)
	}
	ok, err := restriction.WithinTimeWindow(in.TimeRestriction, e.Now())
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: outside allowed time window", ledger.ErrRestrictionViolation)
	}

	var txID uuid.UUID
	err = e.Store.Atomic(ctx, func(tx *store.Store) error {
		acc, err := tx.GetAccount(ctx, in.FromAccountID)
		if err != nil {
			return err
		}
		if acc.UserID != who.UserID {
			return ledger.ErrNotFound
		}
		if _, err := tx.AdjustBalance(ctx, acc.ID, in.Amount.Neg()); err != nil {
			return err
		}
		txID, err = tx.AppendTransaction(ctx, &models.Transaction{
			UserID:          who.UserID,
			AccountID:       &acc.ID,
			FromDetails:     who.Email,
			ToDetails:       in.To,
			Amount:          in.Amount,
			Description:     in.Description,
			Kind:            models.KindSend,
			Status:          models.StatusPending,
			GeoFence:        in.GeoFence,
			TimeRestriction: in.TimeRestriction,
		})
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

// Deposit credits an account with money entering the ledger from the
// outside (a settled payment intent, an opening balance) and records a
// completed kind=receive transaction with it.
func (e *Engine) Deposit(ctx context.Context, who ledger.Identity, accountID uuid.UUID, amount decimal.Decimal, from, description string) (uuid.UUID, error) {
	if !amount.IsPositive() {
		return uuid.Nil, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}

	var txID uuid.UUID
	err := e.Store.Atomic(ctx, func(tx *store.Store) error {
		acc, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc.UserID != who.UserID {
			return ledger.ErrNotFound
		}
		if _, err := tx.AdjustBalance(ctx, acc.ID, amount); err != nil {
			return err
		}
		txID, err = tx.AppendTransaction(ctx, &models.Transaction{
			UserID:      who.UserID,
			AccountID:   &acc.ID,
			FromDetails: from,
			ToDetails:   acc.Name,
			Amount:      amount,
			Description: description,
			Kind:        models.KindReceive,
			Status:      models.StatusCompleted,
		})
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}
