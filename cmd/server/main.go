package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nrattyp233/money-buddy---geo-safe/configs"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/handlers"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/logger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/notify"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/payout"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/request"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/routes"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/savings"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/seed"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/transfer"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	cfg, err := configs.Load()
	if err != nil {
		logger.Log.Fatal("failed to load config", zap.Error(err))
	}

	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.Log.Fatal("migrations failed", zap.Error(err))
	}
	logger.Log.Info("connected to the database")

	ledgerStore := store.New(db)
	transfers := transfer.NewEngine(ledgerStore)
	requests := request.NewEngine(ledgerStore)
	locks := savings.NewEngine(ledgerStore, cfg.PenaltyRate())
	bell := notify.NewAggregator(ledgerStore)
	rail := payout.NewClient(payout.Config{
		BaseURL:      cfg.PayPal.BaseURL,
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
	})

	seed.Run(context.Background(), ledgerStore, transfers)

	h := &handlers.Handler{
		Store:     ledgerStore,
		Transfers: transfers,
		Requests:  requests,
		Savings:   locks,
		Notify:    bell,
		Payouts:   rail,
		JWTSecret: cfg.JWT.Secret,
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      routes.New(h),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	if rail.Enabled() {
		go payout.NewDispatcher(ledgerStore, rail, logger.Log).Run(dispatcherCtx)
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")
	stopDispatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.Error("db close skipped, reason:", zap.Error(err))
	} else {
		sqlDB.Close()
		logger.Log.Info("db closed")
	}

	logger.Log.Info("server stopped")
}
