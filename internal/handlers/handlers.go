package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/httputil"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/logger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/middleware"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/notify"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/payout"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/request"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/savings"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/transfer"
)

// Handler carries the injected collaborators for the HTTP boundary.
type Handler struct {
	Store     *store.Store
	Transfers *transfer.Engine
	Requests  *request.Engine
	Savings   *savings.Engine
	Notify    *notify.Aggregator
	Payouts   *payout.Client
	JWTSecret string
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.JWTSecret))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.Store.UserByID(r.Context(), who.UserID)
	if err != nil {
		httputil.WriteLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	who, ok := middleware.Identity(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accounts, err := h.Store.AccountsForUser(r.Context(), who.UserID)
	if err != nil {
		logger.Log.Error("failed to fetch accounts", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch accounts")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accounts)
}
