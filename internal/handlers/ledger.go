package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/httputil"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/logger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/middleware"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/restriction"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/transfer"
)

type SendRequest struct {
	FromAccountID   string                  `json:"from_account_id"`
	To              string                  `json:"to"`
	Amount          decimal.Decimal         `json:"amount"`
	Description     string                  `json:"description"`
	GeoFence        *models.GeoFence        `json:"geo_fence,omitempty"`
	TimeRestriction *models.TimeRestriction `json:"time_restriction,omitempty"`
	Lat             *float64                `json:"lat,omitempty"`
	Lng             *float64                `json:"lng,omitempty"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var placement *restriction.Point
	if req.Lat != nil && req.Lng != nil {
		placement = &restriction.Point{Lat: *req.Lat, Lng: *req.Lng}
	}

	txID, err := h.Transfers.Send(r.Context(), who, transfer.SendInput{
		FromAccountID:   fromID,
		To:              req.To,
		Amount:          req.Amount,
		Description:     req.Description,
		GeoFence:        req.GeoFence,
		TimeRestriction: req.TimeRestriction,
		Placement:       placement,
	})
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"transaction_id": txID.String()})
}

type DepositRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	From        string          `json:"from"`
	Description string          `json:"description"`
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	accID, err := uuid.Parse(req.AccountID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if req.From == "" {
		req.From = "External Deposit"
	}
	txID, err := h.Transfers.Deposit(r.Context(), who, accID, req.Amount, req.From, req.Description)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"transaction_id": txID.String()})
}

type OpenRequestRequest struct {
	To          string          `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (h *Handler) OpenRequest(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req OpenRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	txID, err := h.Requests.Open(r.Context(), who, req.To, req.Amount, req.Description)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"transaction_id": txID.String()})
}

type ApproveRequest struct {
	FromAccountID string `json:"from_account_id"`
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if !h.actionableBy(r.Context(), w, txID, who.Email) {
		return
	}
	if err := h.Requests.Approve(r.Context(), who, txID, fromID); err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "Completed"})
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	if !h.actionableBy(r.Context(), w, txID, who.Email) {
		return
	}
	if err := h.Requests.Decline(r.Context(), txID); err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "Declined"})
}

// actionableBy enforces that only the addressed recipient resolves a
// request. Access control lives here, not in the state machine.
func (h *Handler) actionableBy(ctx context.Context, w http.ResponseWriter, txID uuid.UUID, email string) bool {
	recipient, err := h.Requests.Recipient(ctx, txID)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return false
	}
	if recipient != email {
		httputil.WriteError(w, http.StatusForbidden, "request is not addressed to you")
		return false
	}
	return true
}

type LockRequest struct {
	AccountID    string          `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	PeriodMonths int             `json:"period_months"`
}

func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	accID, err := uuid.Parse(req.AccountID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	savingID, err := h.Savings.Lock(r.Context(), who, accID, req.Amount, req.PeriodMonths)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"saving_id": savingID.String()})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	savingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid saving id")
		return
	}
	res, err := h.Savings.Withdraw(r.Context(), who, savingID)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"receivable": res.Receivable,
		"penalty":    res.Penalty,
		"early":      res.Early,
		"account_id": res.AccountID.String(),
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rec, err := h.Store.ListForUser(r.Context(), who.UserID, who.Email)
	if err != nil {
		logger.Log.Error("failed to fetch user records", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch records")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"accounts":       rec.Accounts,
		"transactions":   rec.Transactions,
		"locked_savings": rec.LockedSavings,
	})
}

func (h *Handler) NotificationCount(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	count, err := h.Notify.ActionableCount(r.Context(), who)
	if err != nil {
		logger.Log.Error("failed to compute notification count", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to compute count")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

type PayoutRequest struct {
	ReceiverEmail string          `json:"receiver_email"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Note          string          `json:"note"`
}

// EnqueuePayout queues a best-effort payout on the external rail. The
// ledger does not wait for, or depend on, the rail's answer.
func (h *Handler) EnqueuePayout(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.Identity(r.Context()); !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.Payouts.Enabled() {
		httputil.WriteError(w, http.StatusServiceUnavailable, "payout rail not configured")
		return
	}
	var req PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReceiverEmail == "" || !req.Amount.IsPositive() {
		httputil.WriteError(w, http.StatusBadRequest, "receiver_email and a positive amount are required")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	job := models.PayoutJob{
		Receiver: req.ReceiverEmail,
		Amount:   req.Amount,
		Currency: req.Currency,
		Note:     req.Note,
	}
	if err := h.Store.EnqueuePayout(r.Context(), &job); err != nil {
		logger.Log.Error("failed to enqueue payout", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to enqueue payout")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID.String()})
}
