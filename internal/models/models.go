package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionKind string

const (
	KindSend    TransactionKind = "send"
	KindRequest TransactionKind = "request"
	KindLock    TransactionKind = "lock"
	KindReceive TransactionKind = "receive"
	KindPenalty TransactionKind = "penalty"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "Pending"
	StatusCompleted TransactionStatus = "Completed"
	StatusDeclined  TransactionStatus = "Declined"
	StatusLocked    TransactionStatus = "Locked"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Account struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Balance   decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// GeoFence is a circular region gating where a transfer may be placed.
// Radius is in kilometers.
type GeoFence struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
}

// TimeRestriction is a recurring daily clock-time window in which a
// transfer may be placed. Start and End are "HH:MM"; an End earlier
// than Start wraps past midnight.
type TimeRestriction struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Transaction is append-only: once created, only Status may change.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID         `gorm:"type:uuid;index;not null" json:"user_id"`
	AccountID       *uuid.UUID        `gorm:"type:uuid;index" json:"account_id,omitempty"`
	FromDetails     string            `gorm:"size:255;not null" json:"from_details"`
	ToDetails       string            `gorm:"size:255;index;not null" json:"to_details"`
	Amount          decimal.Decimal   `gorm:"type:numeric(19,2);not null" json:"amount"`
	Description     string            `gorm:"size:500" json:"description"`
	Kind            TransactionKind   `gorm:"size:16;not null" json:"kind"`
	Status          TransactionStatus `gorm:"size:16;not null" json:"status"`
	GeoFence        *GeoFence         `gorm:"serializer:json" json:"geo_fence,omitempty"`
	TimeRestriction *TimeRestriction  `gorm:"serializer:json" json:"time_restriction,omitempty"`
	CreatedAt       time.Time         `gorm:"index" json:"created_at"`
}

type LockedSaving struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	AccountID        uuid.UUID       `gorm:"type:uuid;not null" json:"account_id"`
	Amount           decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"amount"`
	LockPeriodMonths int             `gorm:"not null" json:"lock_period_months"`
	StartDate        time.Time       `gorm:"not null" json:"start_date"`
	EndDate          time.Time       `gorm:"not null" json:"end_date"`
	IsWithdrawn      bool            `gorm:"not null;default:false" json:"is_withdrawn"`
	CreatedAt        time.Time       `json:"created_at"`
}

// IdempotencyKey caches the boundary response for a compound operation
// so a retried placement cannot double-apply. The row is claimed before
// the operation runs; ResponseStatus stays zero until it completes.
type IdempotencyKey struct {
	Key            string `gorm:"size:128;primaryKey"`
	ResponseStatus int
	ResponseBody   []byte
	CreatedAt      time.Time
}

// PayoutJob queues a best-effort call to the external payment rail.
// Ledger state never waits on it.
type PayoutJob struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Receiver  string          `gorm:"size:255;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(19,2);not null"`
	Currency  string          `gorm:"size:3;not null"`
	Note      string          `gorm:"size:500"`
	Status    string          `gorm:"size:16;not null;default:PENDING"`
	Attempts  int             `gorm:"not null;default:0"`
	NextRunAt time.Time       `gorm:"index;not null"`
	CreatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (s *LockedSaving) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (j *PayoutJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
