package export

import (
	"errors"
	"reflect"
	"testing"
)

func TestSelectColumns(t *testing.T) {
	tests := []struct {
		name       string
		title      bool
		author     bool
		want       Selection
		wantLabels []string
		wantErr    bool
	}{
		{name: "both", title: true, author: true, want: Both, wantLabels: []string{"Title", "Author"}},
		{name: "title only", title: true, want: TitleOnly, wantLabels: []string{"Title"}},
		{name: "author only", author: true, want: AuthorOnly, wantLabels: []string{"Author"}},
		{name: "neither", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectColumns(tt.title, tt.author)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if ve.Message != NoColumnsMessage {
					t.Errorf("message = %q, want %q", ve.Message, NoColumnsMessage)
				}
				if got.Valid() {
					t.Errorf("selection %v should not be valid", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("selection = %v, want %v", got, tt.want)
			}
			if labels := got.Labels(); !reflect.DeepEqual(labels, tt.wantLabels) {
				t.Errorf("labels = %v, want %v", labels, tt.wantLabels)
			}
		})
	}
}

func TestSelection_ColumnsReturnsCopy(t *testing.T) {
	cols := Both.Columns()
	cols[0] = ColumnAuthor

	if again := Both.Columns(); again[0] != ColumnTitle {
		t.Errorf("Columns() shares its backing array: got %v", again)
	}
}

func TestColumn_Value(t *testing.T) {
	rec := Record{Title: "Dune", Author: "Herbert"}

	if got := ColumnTitle.Value(rec); got != "Dune" {
		t.Errorf("title value = %q, want %q", got, "Dune")
	}
	if got := ColumnAuthor.Value(rec); got != "Herbert" {
		t.Errorf("author value = %q, want %q", got, "Herbert")
	}
}
