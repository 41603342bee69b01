package store_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/alovak/cardsync/card"
	"github.com/alovak/cardsync/store"
)

// TestPGStoresNoFullNumber verifies that only BIN, last4 and the PAN hash
// reach the database. Skips unless DB_DSN is provided and REPO_BACKEND=pg.
func TestPGStoresNoFullNumber(t *testing.T) {
	if os.Getenv("REPO_BACKEND") != "pg" {
		t.Skip("REPO_BACKEND != pg; skipping DB integration test")
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set; skipping DB integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	repo := store.NewPGRepository(db, []byte("test-pan-hash-key"))
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	c := card.NewLocal("4111111111111111", "Jane Doe", 1, 2030)
	if err := repo.SaveCard(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Cleanup(func() { db.Exec(`delete from wallet.cards where card_id=$1`, c.ID) })

	var bin, last4 string
	var hash []byte
	row := db.QueryRowContext(ctx, `select bin, last4, pan_hash from wallet.cards where card_id=$1`, c.ID)
	if err := row.Scan(&bin, &last4, &hash); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if bin != "41111111" || last4 != "1111" || len(hash) == 0 {
		t.Fatalf("unexpected row bin=%q last4=%q hash=%d bytes", bin, last4, len(hash))
	}

	got, err := repo.FindByNumber(ctx, "4111 1111 1111 1111")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != c.ID || got.LastFour() != "1111" || got.HasFullNumber() {
		t.Fatalf("unexpected card %+v", got)
	}

	dup := card.NewLocal("4111111111111111", "Other", 2, 2031)
	if err := repo.SaveCard(ctx, dup); err == nil {
		t.Fatalf("expected conflict")
	}
}
