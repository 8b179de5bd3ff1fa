package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/handlers"
	appmw "github.com/nrattyp233/money-buddy---geo-safe/internal/middleware"
)

func New(h *handlers.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(appmw.Authenticated(h.JWTSecret))

		r.Get("/auth/me", h.Me)
		r.Get("/accounts", h.GetAccounts)
		r.Get("/transactions", h.History)
		r.Get("/notifications/count", h.NotificationCount)

		r.Post("/transactions/request", h.OpenRequest)
		r.Post("/transactions/{id}/approve", h.Approve)
		r.Post("/transactions/{id}/decline", h.Decline)

		// Compound placements take an Idempotency-Key so retries after
		// a partial failure replay instead of re-applying.
		r.Group(func(r chi.Router) {
			r.Use(appmw.Idempotency(h.Store))
			r.Post("/transactions/send", h.Send)
			r.Post("/transactions/deposit", h.Deposit)
			r.Post("/savings/lock", h.Lock)
			r.Post("/savings/{id}/withdraw", h.Withdraw)
		})

		r.Post("/payouts", h.EnqueuePayout)
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
