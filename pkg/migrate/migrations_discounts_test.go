package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiscountCodesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_discount_codes.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no discount codes migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS discount_codes",
		"CONSTRAINT discount_codes_code_key UNIQUE (code)",
		"discount_percentage IS NOT NULL AND discount_amount_cents IS NULL",
		"discount_percentage IS NULL AND discount_amount_cents IS NOT NULL",
		"DROP TABLE IF EXISTS discount_codes",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAbandonedCartsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_abandoned_carts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no abandoned carts migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS abandoned_carts",
		"recovery_status recovery_status NOT NULL DEFAULT 'active'",
		"CHECK (user_id IS NOT NULL OR session_id IS NOT NULL)",
		"DROP TABLE IF EXISTS abandoned_carts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
