package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func makeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for name, body := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUnzip(t *testing.T) {
	archive := makeArchive(t, map[string]string{
		"setup.exe":      "MZ installer",
		"docs/readme.md": "notes",
	})
	dest := filepath.Join(t.TempDir(), "out")

	if err := Unzip(archive, dest); err != nil {
		t.Fatalf("Unzip returned %v", err)
	}

	body, err := os.ReadFile(filepath.Join(dest, "setup.exe"))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "MZ installer" {
		t.Errorf("extracted content %q", body)
	}
	if _, err := os.Stat(filepath.Join(dest, "docs", "readme.md")); err != nil {
		t.Errorf("nested entry not extracted: %v", err)
	}
}

func TestUnzipRejectsEscapingEntry(t *testing.T) {
	archive := makeArchive(t, map[string]string{
		"../outside.txt": "escape attempt",
	})
	dest := filepath.Join(t.TempDir(), "out")

	if err := Unzip(archive, dest); err == nil {
		t.Fatal("expected an error for an entry escaping the destination")
	}
	if _, err := os.Stat(filepath.Join(dest, "..", "outside.txt")); !os.IsNotExist(err) {
		t.Error("escaping entry was written outside the destination")
	}
}

func TestFindInstallers(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"readme.txt":          "notes",
		"product.msi":         "msi",
		"nested/setup.exe":    "MZ",
		"nested/kb500000.msu": "msu",
	}
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	found, err := FindInstallers(root)
	if err != nil {
		t.Fatalf("FindInstallers returned %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("found %d installers, want 3: %v", len(found), found)
	}
	if filepath.Base(found[0]) != "setup.exe" {
		t.Errorf("first candidate = %q, want the executable", found[0])
	}
}

func TestFindInstallersEmpty(t *testing.T) {
	found, err := FindInstallers(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("found %v in an empty directory", found)
	}
}
