package payout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, store.Migrate(db))
	return store.New(db)
}

func TestDispatcherCompletesJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"batch_header": map[string]string{"payout_batch_id": "B1"}})
	}))
	defer srv.Close()

	s := newTestStore(t)
	ctx := context.Background()
	job := models.PayoutJob{Receiver: "b@x.com", Amount: decimal.New(5, 0), Currency: "USD"}
	require.NoError(t, s.EnqueuePayout(ctx, &job))

	d := NewDispatcher(s, NewClient(Config{BaseURL: srv.URL, ClientID: "c", ClientSecret: "s"}), zap.NewNop())
	d.processOne(ctx)

	_, err := s.ClaimDuePayout(ctx, time.Now().Add(time.Minute))
	assert.Error(t, err, "completed job must not be claimable again")
}

func TestDispatcherReschedulesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	s := newTestStore(t)
	ctx := context.Background()
	job := models.PayoutJob{Receiver: "b@x.com", Amount: decimal.New(5, 0), Currency: "USD"}
	require.NoError(t, s.EnqueuePayout(ctx, &job))

	d := NewDispatcher(s, NewClient(Config{BaseURL: srv.URL, ClientID: "c", ClientSecret: "s"}), zap.NewNop())
	d.processOne(ctx)

	// Not due immediately: the retry delay pushed next_run_at forward.
	_, err := s.ClaimDuePayout(ctx, time.Now())
	assert.Error(t, err)

	claimed, err := s.ClaimDuePayout(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, claimed.Attempts)
}
