package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Artifact file names. They are fixed, but each export writes them inside
// its own workspace directory, so concurrent exports never share a path.
const (
	TabularFileName      = "books.csv"
	HierarchicalFileName = "books.xml"
	ArchiveFileName      = "books.zip"
)

// WriteCSV writes the header for sel followed by one row per record,
// in input order. A field holding a space, tab, backslash, line break,
// comma or double quote is enclosed in double quotes with embedded quotes
// doubled; empty fields stay bare. Rows end in a bare LF.
func WriteCSV(w io.Writer, sel Selection, records []Record) error {
	if !sel.Valid() {
		return fmt.Errorf("invalid column selection %d", sel)
	}

	cols := sel.Columns()
	bw := bufio.NewWriter(w)

	if err := writeRow(bw, sel.Labels()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(cols))
	for i, rec := range records {
		for j, c := range cols {
			row[j] = c.Value(rec)
		}
		if err := writeRow(bw, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		if needsQuotes(f) {
			w.WriteByte('"')
			w.WriteString(strings.ReplaceAll(f, `"`, `""`))
			w.WriteByte('"')
		} else {
			w.WriteString(f)
		}
	}
	// bufio.Writer keeps the first write error.
	return w.WriteByte('\n')
}

// needsQuotes reports whether f must be enclosed.
func needsQuotes(f string) bool {
	return strings.ContainsAny(f, ",\"\\\n\r\t ")
}

// EncodeCSV creates the tabular artifact at path. The file is closed
// before EncodeCSV returns, so the converter can re-open it from the start.
func EncodeCSV(path string, sel Selection, records []Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return ioErr(StageEncoding, "create", path, err)
	}

	if err := WriteCSV(f, sel, records); err != nil {
		f.Close()
		return ioErr(StageEncoding, "write", path, err)
	}

	if err := f.Close(); err != nil {
		return ioErr(StageEncoding, "close", path, err)
	}
	return nil
}
