// Package testutil provides reusable fixtures for linkq tests.
package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/aidanlsb/linkq/internal/schema"
)

// TestDB is a temporary sqlite database plus the models file describing it.
type TestDB struct {
	Dir        string
	DBPath     string
	ModelsPath string
	DB         *sql.DB
	Schema     *schema.Schema

	t          *testing.T
	models     string
	statements []string
}

// NewTestDB creates a new test database builder.
// Call Build() to create the database file and models.yaml.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	return &TestDB{t: t}
}

// WithModels sets the models.yaml content.
func (d *TestDB) WithModels(yaml string) *TestDB {
	d.models = yaml
	return d
}

// WithSQL adds statements run in order after the database is created.
func (d *TestDB) WithSQL(statements ...string) *TestDB {
	d.statements = append(d.statements, statements...)
	return d
}

// WithFixtures loads the shared models and seed data.
func (d *TestDB) WithFixtures() *TestDB {
	return d.WithModels(ModelsYAML).WithSQL(FixtureSQL...)
}

// Build creates the database, runs the configured statements and parses the
// models. The database is closed when the test ends.
func (d *TestDB) Build() *TestDB {
	d.t.Helper()

	d.Dir = d.t.TempDir()
	d.DBPath = filepath.Join(d.Dir, "linkq.db")
	d.ModelsPath = filepath.Join(d.Dir, "models.yaml")

	if d.models != "" {
		if err := os.WriteFile(d.ModelsPath, []byte(d.models), 0644); err != nil {
			d.t.Fatalf("failed to write models file: %v", err)
		}
		s, err := schema.Load(d.ModelsPath)
		if err != nil {
			d.t.Fatalf("failed to load models: %v", err)
		}
		d.Schema = s
	}

	db, err := sql.Open("sqlite", d.DBPath)
	if err != nil {
		d.t.Fatalf("failed to open database: %v", err)
	}
	d.t.Cleanup(func() { db.Close() })
	for _, stmt := range d.statements {
		if _, err := db.Exec(stmt); err != nil {
			d.t.Fatalf("failed to run %q: %v", stmt, err)
		}
	}
	d.DB = db
	return d
}
