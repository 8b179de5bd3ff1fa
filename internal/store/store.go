// Package store implements the ledger store: the durable mapping of
// users, accounts, transactions and locked savings, and the atomicity
// discipline the money-movement engines rely on.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
)

// Store is an injected handle over the ledger database. Engines receive
// a *Store; there is no package-level instance.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Atomic runs fn inside a single database transaction. Every compound
// operation (balance check, balance mutation, record insertion) goes
// through here so no caller can observe a debited-but-unrecorded state;
// any error rolls the whole unit back.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// lockForUpdate adds a row lock on Postgres. SQLite (used in tests) has
// a single writer, so the clause is unnecessary there and unsupported.
func (s *Store) lockForUpdate(q *gorm.DB) *gorm.DB {
	if s.db.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acc models.Account
	if err := s.db.WithContext(ctx).First(&acc, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &acc, nil
}

func (s *Store) AccountsForUser(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&accounts).Error
	return accounts, err
}

// OldestAccountForUser is the deterministic fallback destination for a
// savings withdrawal whose originating account no longer exists:
// earliest created_at, ties broken by id.
func (s *Store) OldestAccountForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		First(&acc).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &acc, nil
}

// AdjustBalance applies delta to the account balance under a row lock,
// rejecting any adjustment that would take the balance below zero. The
// check and the write see the same locked row, so two debits racing on
// one account serialize rather than both passing a stale check.
func (s *Store) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (*models.Account, error) {
	var acc models.Account
	q := s.lockForUpdate(s.db.WithContext(ctx))
	if err := q.First(&acc, "id = ?", accountID).Error; err != nil {
		return nil, mapNotFound(err)
	}

	next := acc.Balance.Add(delta)
	if next.IsNegative() {
		return nil, ledger.ErrInsufficientFunds
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("balance", next).Error; err != nil {
		return nil, err
	}
	acc.Balance = next
	return &acc, nil
}

func (s *Store) AppendTransaction(ctx context.Context, tx *models.Transaction) (uuid.UUID, error) {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return uuid.Nil, err
	}
	return tx.ID, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &tx, nil
}

// UpdateTransactionStatus is the only mutation a transaction permits.
func (s *Store) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	res := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) CreateLockedSaving(ctx context.Context, rec *models.LockedSaving) (uuid.UUID, error) {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return uuid.Nil, err
	}
	return rec.ID, nil
}

func (s *Store) GetLockedSaving(ctx context.Context, id uuid.UUID) (*models.LockedSaving, error) {
	var rec models.LockedSaving
	q := s.lockForUpdate(s.db.WithContext(ctx))
	if err := q.First(&rec, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &rec, nil
}

// MarkWithdrawn flips the one-way withdrawn flag. The guarded update
// makes a second withdrawal attempt fail even if two callers loaded the
// same record before either committed.
func (s *Store) MarkWithdrawn(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&models.LockedSaving{}).
		Where("id = ? AND is_withdrawn = ?", id, false).
		Update("is_withdrawn", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var rec models.LockedSaving
		if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
			return mapNotFound(err)
		}
		return ledger.ErrAlreadyWithdrawn
	}
	return nil
}

// UserRecords is the snapshot backing the dashboard refresh and the
// notification aggregator.
type UserRecords struct {
	Accounts      []models.Account
	Transactions  []models.Transaction
	LockedSavings []models.LockedSaving
}

// ListForUser returns the user's accounts and savings together with
// every transaction the user owns or is addressed by, transactions
// newest first. Runs without locks; a slightly stale snapshot is fine
// for display.
func (s *Store) ListForUser(ctx context.Context, userID uuid.UUID, email string) (*UserRecords, error) {
	var rec UserRecords
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&rec.Accounts).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? OR to_details = ?", userID, email).
		Order("created_at desc").
		Find(&rec.Transactions).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&rec.LockedSavings).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.ErrNotFound
	}
	return err
}

// --- idempotency keys -------------------------------------------------

func (s *Store) CachedResponse(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	var rec models.IdempotencyKey
	if err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &rec, nil
}

// ClaimIdempotencyKey inserts the key row before the operation runs.
// The primary-key constraint makes the first writer win: claimed is
// true for the caller that may execute, and false for everyone else,
// who gets the existing row instead (ResponseStatus zero while the
// winning request is still in flight).
func (s *Store) ClaimIdempotencyKey(ctx context.Context, key string) (bool, *models.IdempotencyKey, error) {
	rec := models.IdempotencyKey{Key: key}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected == 1 {
		return true, &rec, nil
	}
	existing, err := s.CachedResponse(ctx, key)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

// CompleteIdempotencyKey records the response to replay for the key.
func (s *Store) CompleteIdempotencyKey(ctx context.Context, key string, status int, body []byte) error {
	if len(body) == 0 {
		body = []byte("{}")
	}
	return s.db.WithContext(ctx).
		Model(&models.IdempotencyKey{}).
		Where("key = ?", key).
		Updates(map[string]any{"response_status": status, "response_body": body}).Error
}

// ReleaseIdempotencyKey frees a claimed key after a failed attempt so
// the client can retry under the same key.
func (s *Store) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&models.IdempotencyKey{}, "key = ?", key).Error
}

// --- payout jobs ------------------------------------------------------

func (s *Store) EnqueuePayout(ctx context.Context, job *models.PayoutJob) error {
	if job.NextRunAt.IsZero() {
		job.NextRunAt = time.Now()
	}
	job.Status = "PENDING"
	return s.db.WithContext(ctx).Create(job).Error
}

// ClaimDuePayout picks the oldest runnable job, if any.
func (s *Store) ClaimDuePayout(ctx context.Context, now time.Time) (*models.PayoutJob, error) {
	var job models.PayoutJob
	q := s.lockForUpdate(s.db.WithContext(ctx))
	err := q.
		Where("status = ? AND next_run_at <= ?", "PENDING", now).
		Order("created_at asc").
		First(&job).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &job, nil
}

func (s *Store) CompletePayout(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.PayoutJob{}).
		Where("id = ?", id).
		Update("status", "COMPLETED").Error
}

func (s *Store) ReschedulePayout(ctx context.Context, id uuid.UUID, attempts int, nextRun time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.PayoutJob{}).
		Where("id = ?", id).
		Updates(map[string]any{"attempts": attempts, "next_run_at": nextRun}).Error
}

func (s *Store) FailPayout(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.PayoutJob{}).
		Where("id = ?", id).
		Update("status", "FAILED").Error
}
