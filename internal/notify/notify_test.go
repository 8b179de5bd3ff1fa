package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/notify"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

func TestActionableCount(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, store.Migrate(db))
	s := store.New(db)
	ctx := context.Background()

	user := models.User{Name: "Alice", Email: "alice@test.com"}
	require.NoError(t, s.CreateUser(ctx, &user))
	acc := models.Account{UserID: user.ID, Name: "Checking", Balance: decimal.Zero}
	require.NoError(t, s.CreateAccount(ctx, &acc))
	who := ledger.Identity{UserID: user.ID, Email: user.Email}

	now := time.Date(2024, 7, 20, 12, 0, 0, 0, time.UTC)
	a := notify.NewAggregator(s)
	a.Now = func() time.Time { return now }

	count, err := a.ActionableCount(ctx, who)
	require.NoError(t, err)
	assert.Zero(t, count)

	// A pending request addressed to Alice counts.
	_, err = s.AppendTransaction(ctx, &models.Transaction{
		UserID:      uuid.New(),
		FromDetails: "bob@test.com",
		ToDetails:   who.Email,
		Amount:      decimal.New(25, 0),
		Kind:        models.KindRequest,
		Status:      models.StatusPending,
	})
	require.NoError(t, err)

	// A resolved one does not.
	_, err = s.AppendTransaction(ctx, &models.Transaction{
		UserID:      uuid.New(),
		FromDetails: "bob@test.com",
		ToDetails:   who.Email,
		Amount:      decimal.New(10, 0),
		Kind:        models.KindRequest,
		Status:      models.StatusDeclined,
	})
	require.NoError(t, err)

	// A pending request Alice sent to Bob does not count for Alice.
	_, err = s.AppendTransaction(ctx, &models.Transaction{
		UserID:      who.UserID,
		FromDetails: who.Email,
		ToDetails:   "bob@test.com",
		Amount:      decimal.New(5, 0),
		Kind:        models.KindRequest,
		Status:      models.StatusPending,
	})
	require.NoError(t, err)

	// Matured, unwithdrawn saving counts; unmatured or withdrawn do not.
	for _, saving := range []models.LockedSaving{
		{UserID: who.UserID, AccountID: acc.ID, Amount: decimal.New(100, 0), LockPeriodMonths: 6,
			StartDate: now.AddDate(0, -7, 0), EndDate: now.AddDate(0, -1, 0)},
		{UserID: who.UserID, AccountID: acc.ID, Amount: decimal.New(100, 0), LockPeriodMonths: 6,
			StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 5, 0)},
		{UserID: who.UserID, AccountID: acc.ID, Amount: decimal.New(100, 0), LockPeriodMonths: 6,
			StartDate: now.AddDate(0, -7, 0), EndDate: now.AddDate(0, -1, 0), IsWithdrawn: true},
	} {
		rec := saving
		_, err := s.CreateLockedSaving(ctx, &rec)
		require.NoError(t, err)
	}

	count, err = a.ActionableCount(ctx, who)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one pending incoming request + one matured saving")
}
