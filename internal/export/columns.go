package export

// Column identifies one exportable book field.
type Column int

const (
	ColumnTitle Column = iota
	ColumnAuthor
)

// Label returns the header label, which is also the XML element name.
func (c Column) Label() string {
	switch c {
	case ColumnTitle:
		return "Title"
	case ColumnAuthor:
		return "Author"
	default:
		return ""
	}
}

// Value extracts the column's field from a record.
func (c Column) Value(r Record) string {
	switch c {
	case ColumnTitle:
		return r.Title
	case ColumnAuthor:
		return r.Author
	default:
		return ""
	}
}

// Selection is the closed set of valid column choices. It is computed once
// by SelectColumns and passed down so no later stage inspects request flags.
type Selection int

const (
	TitleOnly Selection = iota + 1
	AuthorOnly
	Both
)

var selectionColumns = map[Selection][]Column{
	TitleOnly:  {ColumnTitle},
	AuthorOnly: {ColumnAuthor},
	Both:       {ColumnTitle, ColumnAuthor},
}

// SelectColumns turns the two request flags into a Selection.
// At least one flag must be set.
func SelectColumns(includeTitle, includeAuthor bool) (Selection, error) {
	switch {
	case includeTitle && includeAuthor:
		return Both, nil
	case includeTitle:
		return TitleOnly, nil
	case includeAuthor:
		return AuthorOnly, nil
	default:
		return 0, &ValidationError{Message: NoColumnsMessage}
	}
}

// Valid reports whether s is one of the three defined selections.
func (s Selection) Valid() bool {
	_, ok := selectionColumns[s]
	return ok
}

// Columns returns the selected columns, title first.
func (s Selection) Columns() []Column {
	cols := selectionColumns[s]
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

// Labels returns the header row for the selection.
func (s Selection) Labels() []string {
	cols := selectionColumns[s]
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Label()
	}
	return labels
}

func (s Selection) String() string {
	switch s {
	case TitleOnly:
		return "title"
	case AuthorOnly:
		return "author"
	case Both:
		return "title_author"
	default:
		return "none"
	}
}
