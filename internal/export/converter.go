package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Element names of the hierarchical artifact.
const (
	RootElement = "books"
	ItemElement = "book"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// WriteXML re-parses a CSV document and writes it as XML. The first CSV
// row supplies the element name of every leaf; each following row becomes
// one item element. It returns the number of items written.
//
// Any row whose field count differs from the header is a FormatError.
// Output is indented with two spaces per level and ends with a newline.
func WriteXML(w io.Writer, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // field counts are checked against the header below

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, &FormatError{Line: 1, Reason: "missing header row"}
	}
	if err != nil {
		return 0, csvReadErr(err)
	}
	for i, name := range header {
		if !isElementName(name) {
			return 0, &FormatError{
				Line:   1,
				Reason: fmt.Sprintf("header column %d (%q) is not a valid element name", i+1, name),
			}
		}
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(xmlDeclaration)

	items := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return items, csvReadErr(err)
		}
		if len(row) != len(header) {
			line, _ := cr.FieldPos(0)
			return items, &FormatError{
				Line:   line,
				Reason: fmt.Sprintf("row has %d fields, header has %d", len(row), len(header)),
			}
		}

		if items == 0 {
			bw.WriteString("<" + RootElement + ">\n")
		}
		bw.WriteString("  <" + ItemElement + ">\n")
		for i, name := range header {
			bw.WriteString("    <" + name + ">")
			bw.WriteString(escapeText(row[i]))
			bw.WriteString("</" + name + ">\n")
		}
		bw.WriteString("  </" + ItemElement + ">\n")
		items++
	}

	if items == 0 {
		bw.WriteString("<" + RootElement + "/>\n")
	} else {
		bw.WriteString("</" + RootElement + ">\n")
	}

	return items, bw.Flush()
}

// ConvertCSVToXML reads the tabular artifact at csvPath from the start and
// writes the hierarchical artifact to xmlPath. On failure the partial XML
// file is removed.
func ConvertCSVToXML(csvPath, xmlPath string) (int, error) {
	in, err := os.Open(csvPath)
	if err != nil {
		return 0, ioErr(StageConverting, "open", csvPath, err)
	}
	defer in.Close()

	out, err := os.OpenFile(xmlPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, ioErr(StageConverting, "create", xmlPath, err)
	}

	items, err := WriteXML(out, in)
	if err != nil {
		out.Close()
		os.Remove(xmlPath)

		var fe *FormatError
		if errors.As(err, &fe) {
			return items, fe
		}
		return items, ioErr(StageConverting, "write", xmlPath, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(xmlPath)
		return items, ioErr(StageConverting, "close", xmlPath, err)
	}
	return items, nil
}

// csvReadErr separates CSV syntax errors from plain read failures.
func csvReadErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &FormatError{Line: pe.Line, Reason: pe.Err.Error()}
	}
	return err
}

// isElementName accepts the subset of XML names usable without namespaces:
// a letter or underscore followed by letters, digits, '-', '_' or '.'.
func isElementName(s string) bool {
	if s == "" || strings.HasPrefix(strings.ToLower(s), "xml") {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// escapeText escapes character data the way a DOM serializer does: markup
// characters and carriage returns become references, quotes stay literal,
// and code points XML 1.0 cannot carry become U+FFFD. A CRLF inside a
// quoted CSV field never reaches here; csv.Reader has already folded it
// to LF.
func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '\r':
			b.WriteString("&#13;")
		case !isXMLChar(r):
			b.WriteRune(unicode.ReplacementChar)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
