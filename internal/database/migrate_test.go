package database

import (
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// TestMigrationSourceLoads verifies the embedded migrations form a valid
// source: every up migration has a matching down migration.
func TestMigrationSourceLoads(t *testing.T) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("Embedded migrations do not load: %v", err)
	}
	defer source.Close()

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("Failed to read embedded migrations: %v", err)
	}

	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		default:
			t.Errorf("Unexpected file in migrations: %s", entry.Name())
		}
	}

	if ups == 0 {
		t.Error("Expected at least one up migration")
	}
	if ups != downs {
		t.Errorf("Mismatched migrations: %d up vs %d down", ups, downs)
	}
}
