package request_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/request"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

func newEngine(t *testing.T) (*request.Engine, *store.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, store.Migrate(db))
	s := store.New(db)
	return request.NewEngine(s), s
}

func seedUser(t *testing.T, s *store.Store, balance string) (ledger.Identity, *models.Account) {
	t.Helper()
	ctx := context.Background()
	user := models.User{Name: "User", Email: uuid.NewString() + "@test.com"}
	require.NoError(t, s.CreateUser(ctx, &user))
	acc := models.Account{UserID: user.ID, Name: "Checking", Balance: decimal.RequireFromString(balance)}
	require.NoError(t, s.CreateAccount(ctx, &acc))
	return ledger.Identity{UserID: user.ID, Email: user.Email}, &acc
}

func TestOpenMovesNoMoney(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	requester, reqAcc := seedUser(t, s, "10.00")
	approver, _ := seedUser(t, s, "40.00")

	txID, err := e.Open(ctx, requester, approver.Email, decimal.RequireFromString("25.00"), "rent share")
	require.NoError(t, err)

	tx, err := s.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.KindRequest, tx.Kind)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, approver.Email, tx.ToDetails)

	got, err := s.GetAccount(ctx, reqAcc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("10.00")))
}

func TestOpenValidatesArguments(t *testing.T) {
	e, s := newEngine(t)
	requester, _ := seedUser(t, s, "0.00")

	_, err := e.Open(context.Background(), requester, "b@x.com", decimal.Zero, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	_, err = e.Open(context.Background(), requester, "", decimal.New(1, 0), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestApprove(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	requester, _ := seedUser(t, s, "0.00")
	approver, approverAcc := seedUser(t, s, "40.00")

	txID, err := e.Open(ctx, requester, approver.Email, decimal.RequireFromString("25.00"), "")
	require.NoError(t, err)

	require.NoError(t, e.Approve(ctx, approver, txID, approverAcc.ID))

	got, err := s.GetAccount(ctx, approverAcc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("15.00")))

	tx, err := s.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)

	// Terminal states are final.
	assert.ErrorIs(t, e.Approve(ctx, approver, txID, approverAcc.ID), ledger.ErrInvalidArgument)
	assert.ErrorIs(t, e.Decline(ctx, txID), ledger.ErrInvalidArgument)
}

func TestApproveInsufficientFunds(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	requester, _ := seedUser(t, s, "0.00")
	approver, approverAcc := seedUser(t, s, "20.00")

	txID, err := e.Open(ctx, requester, approver.Email, decimal.RequireFromString("25.00"), "")
	require.NoError(t, err)

	require.ErrorIs(t, e.Approve(ctx, approver, txID, approverAcc.ID), ledger.ErrInsufficientFunds)

	// The failed approval left the request pending and the balance whole.
	tx, err := s.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)
	got, err := s.GetAccount(ctx, approverAcc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("20.00")))
}

func TestDecline(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	requester, _ := seedUser(t, s, "0.00")
	approver, approverAcc := seedUser(t, s, "40.00")

	txID, err := e.Open(ctx, requester, approver.Email, decimal.RequireFromString("25.00"), "")
	require.NoError(t, err)

	require.NoError(t, e.Decline(ctx, txID))

	tx, err := s.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, tx.Status)

	got, err := s.GetAccount(ctx, approverAcc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("40.00")))

	// No transition out of a terminal state.
	assert.ErrorIs(t, e.Approve(ctx, approver, txID, approverAcc.ID), ledger.ErrInvalidArgument)
}

func TestApproveOnlyTouchesRequests(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	who, acc := seedUser(t, s, "50.00")

	sendID, err := s.AppendTransaction(ctx, &models.Transaction{
		UserID:      who.UserID,
		AccountID:   &acc.ID,
		FromDetails: who.Email,
		ToDetails:   "b@x.com",
		Amount:      decimal.New(5, 0),
		Kind:        models.KindSend,
		Status:      models.StatusPending,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, e.Approve(ctx, who, sendID, acc.ID), ledger.ErrInvalidArgument)
}

func TestRecipient(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()
	requester, _ := seedUser(t, s, "0.00")

	txID, err := e.Open(ctx, requester, "owner@x.com", decimal.New(5, 0), "")
	require.NoError(t, err)

	to, err := e.Recipient(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, "owner@x.com", to)

	_, err = e.Recipient(ctx, uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
