package seed

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/logger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/store"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/transfer"
)

const seedPassword = "password123"

var testUsers = []struct {
	Name  string
	Email string
}{
	{"Test User 1", "user1@test.com"},
	{"Test User 2", "user2@test.com"},
	{"Test User 3", "user3@test.com"},
}

// Run seeds three demo users, each with a checking account holding an
// opening balance. Opening balances go through the deposit path so the
// ledger starts with matching receive transactions.
func Run(ctx context.Context, s *store.Store, transfers *transfer.Engine) {
	if _, err := s.UserByEmail(ctx, testUsers[0].Email); err == nil {
		logger.Log.Info("seed already applied, skipping")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}

	opening := decimal.RequireFromString("1000.00")
	for _, u := range testUsers {
		user := models.User{Name: u.Name, Email: u.Email, Password: string(hash)}
		if err := s.CreateUser(ctx, &user); err != nil {
			logger.Log.Fatal("seed user failed", zap.Error(err))
		}
		acc := models.Account{UserID: user.ID, Name: "Checking", Balance: decimal.Zero}
		if err := s.CreateAccount(ctx, &acc); err != nil {
			logger.Log.Fatal("seed account failed", zap.Error(err))
		}
		who := ledger.Identity{UserID: user.ID, Email: user.Email}
		if _, err := transfers.Deposit(ctx, who, acc.ID, opening, "Opening Balance", "Seed deposit"); err != nil {
			logger.Log.Fatal("seed deposit failed", zap.Error(err))
		}
	}
	logger.Log.Info("seeded test users", zap.Int("count", len(testUsers)), zap.String("password", seedPassword))
}
