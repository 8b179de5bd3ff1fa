// Package request models money requests: no funds move at placement,
// and a pending request resolves exactly once, to Completed or
// Declined.
package request

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

type Engine struct {
	Store *store.Store
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{Store: s}
}

// Open records a money request addressed to another user. Balances are
// untouched until the recipient approves.
func (e *Engine) Open(ctx context.Context, who ledger.Identity, to string, amount decimal.Decimal, description string) (uuid.UUID, error) {
	if !amount.IsPositive() {
		return uuid.Nil, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidArgument)
	}
	if to == "" {
		return uuid.Nil, fmt.Errorf("%w: missing recipient", ledger.ErrInvalidArgument)
	}
	return e.Store.AppendTransaction(ctx, &models.Transaction{
		UserID:      who.UserID,
		FromDetails: who.Email,
		ToDetails:   to,
		Amount:      amount,
		Description: description,
		Kind:        models.KindRequest,
		Status:      models.StatusPending,
	})
}

// Recipient returns the address a pending request is actionable by, so
// the boundary layer can enforce that only that user resolves it.
func (e *Engine) Recipient(ctx context.Context, txID uuid.UUID) (string, error) {
	tx, err := e.Store.GetTransaction(ctx, txID)
	if err != nil {
		return "", err
	}
	return tx.ToDetails, nil
}

// Approve debits the approver's chosen funding account and completes
// the request, atomically. The funding account is an explicit
// parameter; the engine never picks one on the caller's behalf.
func (e *Engine) Approve(ctx context.Context, who ledger.Identity, txID, fromAccountID uuid.UUID) error {
	return e.Store.Atomic(ctx, func(tx *store.Store) error {
		req, err := tx.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if err := resolvable(req); err != nil {
			return err
		}
		acc, err := tx.GetAccount(ctx, fromAccountID)
		if err != nil {
			return err
		}
		if acc.UserID != who.UserID {
			return ledger.ErrNotFound
		}
		if _, err := tx.AdjustBalance(ctx, acc.ID, req.Amount.Neg()); err != nil {
			return err
		}
		return tx.UpdateTransactionStatus(ctx, req.ID, models.StatusCompleted)
	})
}

// Decline resolves the request without moving money.
func (e *Engine) Decline(ctx context.Context, txID uuid.UUID) error {
	return e.Store.Atomic(ctx, func(tx *store.Store) error {
		req, err := tx.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if err := resolvable(req); err != nil {
			return err
		}
		return tx.UpdateTransactionStatus(ctx, req.ID, models.StatusDeclined)
	})
}

// resolvable rejects anything but a pending request: terminal states
// are final, and only kind=request transactions participate here.
func resolvable(tx *models.Transaction) error {
	if tx.Kind != models.KindRequest {
		return fmt.Errorf("%w: transaction %s is not a request", ledger.ErrInvalidArgument, tx.ID)
	}
	if tx.Status != models.StatusPending {
		return fmt.Errorf("%w: request %s already resolved to %s", ledger.ErrInvalidArgument, tx.ID, tx.Status)
	}
	return nil
}
