package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/printdock/printdock-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.Validate(os.DirFS("migrations")); err != nil {
		t.Fatalf("Validate on disk: %v", err)
	}
	embedded, err := migrate.Scan(migrate.Embedded())
	if err != nil {
		t.Fatalf("Scan embedded: %v", err)
	}
	onDisk, err := migrate.Scan(os.DirFS("migrations"))
	if err != nil {
		t.Fatalf("Scan on disk: %v", err)
	}
	if len(embedded) == 0 || len(embedded) != len(onDisk) {
		t.Fatalf("embedded set has %d files, disk has %d", len(embedded), len(onDisk))
	}
}

func TestMigrationsContainSchemas(t *testing.T) {
	cases := map[string][]string{
		"create_users_table": {
			"CREATE TABLE IF NOT EXISTS users",
			"balance numeric(12,2) NOT NULL DEFAULT 0 CHECK (balance >= 0)",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email",
		},
		"create_products_table": {
			"CREATE TABLE IF NOT EXISTS products",
			"customization_options jsonb",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku",
		},
		"create_orders_tables": {
			"CREATE TABLE IF NOT EXISTS batch_imports",
			"CREATE TABLE IF NOT EXISTS orders",
			"total_price numeric(12,2) NOT NULL",
			"shipping_method IN ('standard', 'express')",
		},
		"create_transactions_table": {
			"CREATE TABLE IF NOT EXISTS transactions",
			"type IN ('deposit', 'payment', 'refund')",
			"admin_notes jsonb",
		},
		"create_outbox_tables": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"idx_outbox_events_unpublished",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := migrate.Create(dir, "Add Order Notes!", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Base(path) != "20260304050607_add_order_notes.sql" {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.Create(dir, "!!!", now); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}

func TestCreateStaysAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	if _, err := migrate.Create(dir, "first", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Create first: %v", err)
	}

	// A clock behind the newest file must not produce an older version.
	path, err := migrate.Create(dir, "second", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if filepath.Base(path) != "20260501000001_second.sql" {
		t.Fatalf("expected version bumped past newest, got %s", path)
	}

	files, err := migrate.Scan(os.DirFS(dir))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 2 || files[0].Name != "first" || files[1].Name != "second" {
		t.Fatalf("unexpected order %+v", files)
	}
}

func TestValidateRejectsMalformedFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"1_init.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
		"down before up": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Down\nSELECT 1;\n-- +goose Up\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if err := migrate.Validate(fsys); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if err := migrate.Validate(fstest.MapFS{}); err != nil {
		t.Fatalf("empty set should validate: %v", err)
	}
}
