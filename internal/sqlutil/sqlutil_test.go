package sqlutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestScanMaps(t *testing.T) {
	db := openDB(t)
	for _, stmt := range []string{
		`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, data BLOB, note TEXT)`,
		`INSERT INTO items (id, name, data, note) VALUES (1, 'one', x'6869', NULL), (2, 'two', NULL, 'x')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := db.Query(`SELECT id, name, data, note FROM items ORDER BY id`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ScanMaps(rows)
	if err != nil {
		t.Fatalf("ScanMaps() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0]["id"] != int64(1) || got[0]["name"] != "one" {
		t.Errorf("row 0 = %#v", got[0])
	}
	if got[0]["data"] != "hi" {
		t.Errorf("blob should scan as string, got %#v", got[0]["data"])
	}
	if v, ok := got[0]["note"]; !ok || v != nil {
		t.Errorf("null should scan as nil, got %#v", v)
	}
}

func TestScanMapsEmpty(t *testing.T) {
	db := openDB(t)
	if _, err := db.Exec(`CREATE TABLE items (id INTEGER)`); err != nil {
		t.Fatal(err)
	}
	rows, err := db.Query(`SELECT id FROM items`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ScanMaps(rows)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
