package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("0002_add_consents.sql", "CREATE TABLE IF NOT EXISTS `{{PROJECT_ID}}.{{DATASET_ID}}.consents` (consent_id STRING);")
	write("0001_add_transactions.sql", "CREATE TABLE IF NOT EXISTS `{{PROJECT_ID}}.{{DATASET_ID}}.transactions` (transaction_id STRING);")
	write("notes.txt", "not a migration")
	write("001_bad_version.sql", "SELECT 1;")

	oldDir, oldProject, oldDataset := *migrationsDir, *projectID, *datasetID
	*migrationsDir, *projectID, *datasetID = dir, "test-project", "test_dataset"
	defer func() { *migrationsDir, *projectID, *datasetID = oldDir, oldProject, oldDataset }()

	migrations, err := readMigrations()
	if err != nil {
		t.Fatal(err)
	}

	if len(migrations) != 2 {
		t.Fatalf("migrations = %d, want 2", len(migrations))
	}

	// Ordered by version regardless of directory listing order.
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("versions = %d, %d, want 1, 2", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "add_transactions" {
		t.Errorf("name = %q, want add_transactions", migrations[0].Name)
	}

	// Placeholders replaced in the executable SQL.
	if !strings.Contains(migrations[0].SQL, "`test-project.test_dataset.transactions`") {
		t.Errorf("placeholders not substituted: %s", migrations[0].SQL)
	}
	if strings.Contains(migrations[0].SQL, "{{") {
		t.Errorf("unreplaced placeholder in SQL: %s", migrations[0].SQL)
	}

	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Error("expected distinct non-empty checksums per file")
	}
}

func TestReadMigrationsChecksumIgnoresTarget(t *testing.T) {
	dir := t.TempDir()
	content := "CREATE TABLE IF NOT EXISTS `{{PROJECT_ID}}.{{DATASET_ID}}.consents` (consent_id STRING);"
	if err := os.WriteFile(filepath.Join(dir, "0001_add_consents.sql"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	oldDir, oldProject, oldDataset := *migrationsDir, *projectID, *datasetID
	defer func() { *migrationsDir, *projectID, *datasetID = oldDir, oldProject, oldDataset }()
	*migrationsDir = dir

	*projectID, *datasetID = "project-a", "dataset_a"
	first, err := readMigrations()
	if err != nil {
		t.Fatal(err)
	}

	*projectID, *datasetID = "project-b", "dataset_b"
	second, err := readMigrations()
	if err != nil {
		t.Fatal(err)
	}

	// Retargeting changes the SQL but must not look like an edited migration.
	if first[0].Checksum != second[0].Checksum {
		t.Error("checksum changed with target project/dataset")
	}
	if first[0].SQL == second[0].SQL {
		t.Error("expected SQL to carry the configured target")
	}
}
