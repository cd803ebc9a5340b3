package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"tryon/internal/infra"
	"tryon/internal/ledger"
)

func main() {
	var (
		userFlag  string
		grantFlag int
	)
	flag.StringVar(&userFlag, "user", "", "user ID (UUID) as issued by the identity provider")
	flag.IntVar(&grantFlag, "grant", 0, "credits to add to the balance (0 only prints the balance)")
	flag.Parse()

	_ = godotenv.Load()

	userID := strings.TrimSpace(userFlag)
	if userID == "" {
		exitWithError(errors.New("-user is required"))
	}
	if _, err := uuid.Parse(userID); err != nil {
		exitWithError(fmt.Errorf("-user must be a UUID: %w", err))
	}
	if grantFlag < 0 {
		exitWithError(errors.New("-grant must not be negative"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "credits").Str("user_id", userID).Logger()
	l := ledger.NewPostgres(infra.NewSQLRunner(pool, logger))

	if grantFlag > 0 {
		balance, err := l.Grant(ctx, userID, grantFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to grant credits: %w", err))
		}
		logger.Info().Int("granted", grantFlag).Int("balance", balance).Msg("credits granted")
		fmt.Printf("User %s granted %d credit(s), balance=%d\n", userID, grantFlag, balance)
		return
	}

	balance, err := l.Balance(ctx, userID)
	if err != nil {
		exitWithError(fmt.Errorf("failed to read balance: %w", err))
	}
	fmt.Printf("User %s balance=%d\n", userID, balance)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
