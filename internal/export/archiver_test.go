package export

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = string(data)
	}
	return entries
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, TabularFileName)
	xmlPath := filepath.Join(dir, HierarchicalFileName)
	zipPath := filepath.Join(dir, ArchiveFileName)

	writeFile(t, csvPath, "Title\nDune\n")
	writeFile(t, xmlPath, "<books/>\n")

	if err := Archive(zipPath, csvPath, xmlPath); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	entries := readZip(t, zipPath)
	if len(entries) != 2 {
		t.Fatalf("archive has %d entries, want 2", len(entries))
	}
	if entries[TabularFileName] != "Title\nDune\n" {
		t.Errorf("csv entry = %q", entries[TabularFileName])
	}
	if entries[HierarchicalFileName] != "<books/>\n" {
		t.Errorf("xml entry = %q", entries[HierarchicalFileName])
	}

	for _, p := range []string{csvPath, xmlPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be deleted after archiving, stat err = %v", filepath.Base(p), err)
		}
	}
}

func TestArchive_EntryOrderAndNames(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(sub, TabularFileName)
	xmlPath := filepath.Join(sub, HierarchicalFileName)
	writeFile(t, csvPath, "a")
	writeFile(t, xmlPath, "b")

	zipPath := filepath.Join(dir, ArchiveFileName)
	if err := Archive(zipPath, csvPath, xmlPath); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	want := []string{TabularFileName, HierarchicalFileName}
	for i, f := range zr.File {
		if f.Name != want[i] {
			t.Errorf("entry %d = %q, want %q", i, f.Name, want[i])
		}
		if f.Method != zip.Deflate {
			t.Errorf("entry %s method = %d, want Deflate", f.Name, f.Method)
		}
	}
}

func TestArchive_MissingInput(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, TabularFileName)
	zipPath := filepath.Join(dir, ArchiveFileName)
	writeFile(t, csvPath, "Title\n")

	err := Archive(zipPath, csvPath, filepath.Join(dir, HierarchicalFileName))

	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if ioe.Stage != StageArchiving {
		t.Errorf("stage = %q, want %q", ioe.Stage, StageArchiving)
	}
	if _, err := os.Stat(zipPath); !os.IsNotExist(err) {
		t.Errorf("partial archive should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(csvPath); err != nil {
		t.Errorf("inputs should be left for cleanup on failure: %v", err)
	}
}

func TestArchive_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}

	err := Archive(filepath.Join(dir, ArchiveFileName), sub)

	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected IOError, got %v", err)
	}
}
