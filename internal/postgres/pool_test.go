package postgres

import (
	"context"
	"os"
	"testing"
)

func TestNewPool_BadURL(t *testing.T) {
	t.Parallel()

	if _, err := NewPool(context.Background(), "postgres://user@localhost:notaport/db"); err == nil {
		t.Fatal("NewPool with invalid port succeeded, want error")
	}
}

func TestNewPool_Integration(t *testing.T) {
	dsn := os.Getenv("ESITRIAGE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ESITRIAGE_TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := NewReqDBStatsContext(context.Background())
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil || one != 1 {
		t.Fatalf("SELECT 1 = %d, %v", one, err)
	}

	stats, _ := ReqDBStatsFromContext(ctx)
	if stats.QueryCount == 0 {
		t.Error("query tracer did not record the query")
	}
}
