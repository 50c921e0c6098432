package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

var sampleRecords = []Record{
	{Title: "Dune", Author: "Herbert"},
	{Title: "1984", Author: "Orwell"},
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selection
		records []Record
		want    string
	}{
		{
			name:    "both columns",
			sel:     Both,
			records: sampleRecords,
			want:    "Title,Author\nDune,Herbert\n1984,Orwell\n",
		},
		{
			name:    "title only",
			sel:     TitleOnly,
			records: sampleRecords,
			want:    "Title\nDune\n1984\n",
		},
		{
			name:    "author only",
			sel:     AuthorOnly,
			records: sampleRecords,
			want:    "Author\nHerbert\nOrwell\n",
		},
		{
			name: "empty source writes header only",
			sel:  Both,
			want: "Title,Author\n",
		},
		{
			name:    "delimiter and quotes are quoted",
			sel:     Both,
			records: []Record{{Title: `Say "Hi", Friend`, Author: "Line\nBreak"}},
			want:    "Title,Author\n\"Say \"\"Hi\"\", Friend\",\"Line\nBreak\"\n",
		},
		{
			name:    "space forces quoting",
			sel:     AuthorOnly,
			records: []Record{{Author: "O'Brien & Sons"}},
			want:    "Author\n\"O'Brien & Sons\"\n",
		},
		{
			name:    "apostrophe and ampersand alone stay bare",
			sel:     AuthorOnly,
			records: []Record{{Author: "O'Brien&Sons"}},
			want:    "Author\nO'Brien&Sons\n",
		},
		{
			name:    "tab and backslash are quoted",
			sel:     Both,
			records: []Record{{Title: "a\tb", Author: `C:\books`}},
			want:    "Title,Author\n\"a\tb\",\"C:\\books\"\n",
		},
		{
			name:    "carriage return is quoted",
			sel:     TitleOnly,
			records: []Record{{Title: "a\r\nb"}},
			want:    "Title\n\"a\r\nb\"\n",
		},
		{
			name:    "empty fields stay bare",
			sel:     Both,
			records: []Record{{Title: "", Author: "Anon"}},
			want:    "Title,Author\n,Anon\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteCSV(&buf, tt.sel, tt.records); err != nil {
				t.Fatalf("WriteCSV() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteCSV_InvalidSelection(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Selection(0), sampleRecords); err == nil {
		t.Fatal("expected error for invalid selection")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %q", buf.String())
	}
}

func TestWriteCSV_RowCountAndOrder(t *testing.T) {
	var records []Record
	for i := 0; i < 250; i++ {
		records = append(records, Record{
			Title:  "Title " + strings.Repeat("x", i%7),
			Author: "Author, " + string(rune('A'+i%26)),
		})
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, Both, records); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read csv: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("got %d rows, want %d", len(rows), len(records)+1)
	}
	for i, rec := range records {
		want := []string{rec.Title, rec.Author}
		if !reflect.DeepEqual(rows[i+1], want) {
			t.Fatalf("row %d = %v, want %v", i+1, rows[i+1], want)
		}
	}
}

func TestEncodeCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), TabularFileName)

	if err := EncodeCSV(path, Both, sampleRecords); err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if want := "Title,Author\nDune,Herbert\n1984,Orwell\n"; string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}

func TestEncodeCSV_CreateFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", TabularFileName)

	err := EncodeCSV(path, Both, sampleRecords)

	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if ioe.Stage != StageEncoding || ioe.Op != "create" {
		t.Errorf("got stage %q op %q, want encoding/create", ioe.Stage, ioe.Op)
	}
}

func TestEncodeCSV_RefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), TabularFileName)
	if err := os.WriteFile(path, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := EncodeCSV(path, Both, sampleRecords); err == nil {
		t.Fatal("expected error when artifact already exists")
	}
}
