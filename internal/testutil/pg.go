package testutil

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGHandle holds the shared pool for an integration test binary.
type PGHandle struct {
	Pool *pgxpool.Pool
	URL  string
}

// StartPostgresForTestMain connects to TEST_DATABASE_URL (as exported by
// `go run ./internal/testutil/cmd/testpg -- go test -tags=integration ./...`).
// It panics when the variable is unset so a misconfigured run fails loudly.
func StartPostgresForTestMain(ctx context.Context) (*PGHandle, func()) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		panic("TEST_DATABASE_URL is not set; run integration tests via internal/testutil/cmd/testpg")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		panic(fmt.Sprintf("connecting to test database: %v", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		panic(fmt.Sprintf("pinging test database: %v", err))
	}
	return &PGHandle{Pool: pool, URL: url}, pool.Close
}
