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

	"recipeshot/internal/adapter/repo"
	"recipeshot/internal/infra"
)

// jobsweep is the administrative safety net: it fails out job rows stuck in
// pending/generating longer than the given age, so a crash mid-generation can
// never leave a recipe permanently "in progress".
func main() {
	_ = godotenv.Load()

	var maxAge string
	flag.StringVar(&maxAge, "max-age", "30 minutes", "postgres interval; rows active longer than this are failed out")
	flag.Parse()

	if strings.TrimSpace(maxAge) == "" {
		fmt.Fprintln(os.Stderr, "-max-age must be a non-empty postgres interval")
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

	logger := infra.NewLogger("cli").With().Str("cmd", "jobsweep").Logger()
	jobs := repo.NewJobRepository(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelExec()

	swept, err := jobs.SweepStale(ctxExec, maxAge, "abandoned: exceeded maximum active age")
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("swept %d stale job(s) older than %s\n", swept, maxAge)
}
