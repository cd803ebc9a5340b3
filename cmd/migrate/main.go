package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"tryon/internal/infra"
	"tryon/internal/migrations"
)

func main() {
	var (
		commandFlag string
		timeoutFlag time.Duration
	)
	flag.StringVar(&commandFlag, "command", "up", "goose command to run (up, down, status, version, redo, reset)")
	flag.DurationVar(&timeoutFlag, "timeout", time.Minute, "overall migration timeout")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "migrate").Logger()

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("open database: %w", err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		exitWithError(fmt.Errorf("ping database: %w", err))
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		exitWithError(err)
	}

	command := strings.ToLower(strings.TrimSpace(commandFlag))
	if err := goose.RunContext(ctx, command, db, ".", flag.Args()...); err != nil {
		exitWithError(fmt.Errorf("goose %s: %w", command, err))
	}

	logger.Info().Str("command", command).Msg("migrations applied")
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
	os.Exit(1)
}
