package postgres

import (
	"context"
	"os"
	"strings"
	"testing"

	"statebag/internal/config"
)

const testDSNEnv = "STATEBAG_TEST_POSTGRES_DSN"

func TestQualifiedTableQuotesIdentifiers(t *testing.T) {
	got := qualifiedTable("app", `weird"name`)
	if got != `"app"."weird""name"` {
		t.Fatalf("unexpected qualified table: %s", got)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(config.PostgresConfig{DSN: "  "}, nil); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv(testDSNEnv))
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}
	store, err := New(config.PostgresConfig{DSN: dsn, Table: "statebag_kv_test"}, nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	t.Cleanup(func() { _ = store.Delete(context.Background(), "key") })
	if err := store.Set(ctx, "key", "value"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Set(ctx, "key", "value2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	val, ok, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || val != "value2" {
		t.Fatalf("unexpected value: %v (ok=%v)", val, ok)
	}
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := store.Get(ctx, "key"); err != nil || ok {
		t.Fatalf("expected key to be deleted, ok=%v err=%v", ok, err)
	}
}
