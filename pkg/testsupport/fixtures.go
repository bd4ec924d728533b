// Package testsupport loads test fixtures from a package's testdata directory.
package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// LoadFixture reads a fixture file. The path is relative to the test package directory.
func LoadFixture(tb testing.TB, path string) []byte {
	tb.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON reads a JSON fixture into dest.
func LoadFixtureJSON(tb testing.TB, path string, dest any) {
	tb.Helper()

	data := LoadFixture(tb, path)
	if err := json.Unmarshal(data, dest); err != nil {
		tb.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadRows reads a JSON array of objects, one per record, keyed by column
// name. Numbers decode as float64.
func LoadRows(tb testing.TB, path string) []map[string]any {
	tb.Helper()

	var rows []map[string]any
	LoadFixtureJSON(tb, path, &rows)
	for i, row := range rows {
		if len(row) == 0 {
			tb.Fatalf("fixture %s: row %d is empty", path, i)
		}
	}
	return rows
}

// TempFixture writes content to name inside a directory removed when the test ends.
func TempFixture(tb testing.TB, name string, content []byte) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		tb.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}
