package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"recipeshot/internal/infra"
	"recipeshot/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var (
		channelFlag string
		tokenFlag   string
	)
	flag.StringVar(&channelFlag, "channel", "", "generation service channel id (fallbacks to environment)")
	flag.StringVar(&tokenFlag, "token", "", "generation service account token (fallbacks to environment)")
	flag.Parse()

	channelID := strings.TrimSpace(channelFlag)
	if channelID == "" {
		channelID = strings.TrimSpace(os.Getenv("IMAGEGEN_CHANNEL_ID"))
	}
	token := strings.TrimSpace(tokenFlag)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("IMAGEGEN_ACCOUNT_TOKEN"))
	}
	if channelID == "" || token == "" {
		fmt.Fprintln(os.Stderr, "both -channel and -token are required, via flags or environment")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "gencreds").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()
	if err := store.SetPair(ctxExec, channelID, token); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist credentials: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("generation credentials stored successfully")
}
