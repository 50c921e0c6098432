package core

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/bookshelf/internal/config"
	"github.com/JonMunkholm/bookshelf/internal/export"
)

// memStore is an in-memory BookStore for service tests.
type memStore struct {
	mu     sync.Mutex
	books  []Book
	nextID int64
	now    time.Time
	err    error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) matching(keyword string) []Book {
	kw := strings.ToLower(keyword)
	var out []Book
	for _, b := range m.books {
		if kw == "" || strings.Contains(strings.ToLower(b.Title), kw) || strings.Contains(strings.ToLower(b.Author), kw) {
			out = append(out, b)
		}
	}
	return out
}

func (m *memStore) CountBooks(ctx context.Context, keyword string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.matching(keyword)), nil
}

func (m *memStore) ListBooks(ctx context.Context, keyword string, order SortOrder, limit, offset int) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	books := m.matching(keyword)
	sort.SliceStable(books, func(i, j int) bool {
		switch order {
		case SortTitle:
			return books[i].Title < books[j].Title
		case SortAuthor:
			return books[i].Author < books[j].Author
		default:
			return books[i].ID > books[j].ID
		}
	})
	if offset >= len(books) {
		return nil, nil
	}
	end := offset + limit
	if end > len(books) {
		end = len(books)
	}
	return books[offset:end], nil
}

func (m *memStore) GetBook(ctx context.Context, id int64) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, ErrBookNotFound
}

func (m *memStore) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(time.Minute)
	b := Book{ID: m.nextID, Title: in.Title, Author: in.Author, CreatedAt: m.now, UpdatedAt: m.now}
	m.nextID++
	m.books = append(m.books, b)
	return b, nil
}

func (m *memStore) UpdateBook(ctx context.Context, id int64, in BookInput) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.books {
		if b.ID == id {
			m.books[i].Title, m.books[i].Author = in.Title, in.Author
			return m.books[i], nil
		}
	}
	return Book{}, ErrBookNotFound
}

func (m *memStore) DeleteBook(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.books {
		if b.ID == id {
			m.books = append(m.books[:i], m.books[i+1:]...)
			return nil
		}
	}
	return ErrBookNotFound
}

func (m *memStore) AllBooks(ctx context.Context) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Book, len(m.books))
	for i := range m.books {
		out[len(m.books)-1-i] = m.books[i]
	}
	return out, nil
}

func (m *memStore) Ping(ctx context.Context) error { return m.err }

func (m *memStore) Close() {}

func newTestService(t *testing.T, store BookStore) *Service {
	t.Helper()
	return NewService(store, config.ExportConfig{
		TempDir:       t.TempDir(),
		Timeout:       10 * time.Second,
		MaxConcurrent: 2,
		MaxWaitTime:   100 * time.Millisecond,
	}, nil)
}

func seed(t *testing.T, s *Service, books ...BookInput) {
	t.Helper()
	for _, in := range books {
		if _, err := s.CreateBook(context.Background(), in); err != nil {
			t.Fatalf("seed %v: %v", in, err)
		}
	}
}

func TestService_CreateBook_TrimsAndValidates(t *testing.T) {
	s := newTestService(t, newMemStore())

	book, err := s.CreateBook(context.Background(), BookInput{Title: "  Dune ", Author: "\tHerbert\n"})
	if err != nil {
		t.Fatalf("CreateBook() error = %v", err)
	}
	if book.Title != "Dune" || book.Author != "Herbert" {
		t.Errorf("book = %+v, want trimmed fields", book)
	}

	_, err = s.CreateBook(context.Background(), BookInput{Title: "   ", Author: "Herbert"})
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors for blank title, got %v", err)
	}
	if _, ok := fe["title"]; !ok {
		t.Errorf("expected title error, got %v", fe)
	}
}

func TestService_UpdateAndDelete(t *testing.T) {
	store := newMemStore()
	s := newTestService(t, store)
	seed(t, s, BookInput{Title: "Dune", Author: "Herbert"})

	book, err := s.UpdateBook(context.Background(), 1, BookInput{Title: "Dune Messiah", Author: "Frank Herbert"})
	if err != nil {
		t.Fatalf("UpdateBook() error = %v", err)
	}
	if book.Title != "Dune Messiah" {
		t.Errorf("title = %q", book.Title)
	}

	if _, err := s.UpdateBook(context.Background(), 99, BookInput{Title: "x", Author: "y"}); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("UpdateBook(missing) error = %v, want ErrBookNotFound", err)
	}

	if err := s.DeleteBook(context.Background(), 1); err != nil {
		t.Fatalf("DeleteBook() error = %v", err)
	}
	if err := s.DeleteBook(context.Background(), 1); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("second DeleteBook() error = %v, want ErrBookNotFound", err)
	}
	if _, err := s.GetBook(context.Background(), 1); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("GetBook() after delete error = %v", err)
	}
}

func TestService_ListBooks(t *testing.T) {
	s := newTestService(t, newMemStore())
	for i := 1; i <= 23; i++ {
		seed(t, s, BookInput{Title: fmt.Sprintf("Title %02d", i), Author: fmt.Sprintf("Author %02d", 24-i)})
	}
	seed(t, s, BookInput{Title: "Dune", Author: "Frank HERBERT"})

	tests := []struct {
		name      string
		query     ListQuery
		wantPage  int
		wantPages int
		wantTotal int
		wantFirst string
		wantCount int
	}{
		{name: "defaults to newest first", query: ListQuery{}, wantPage: 1, wantPages: 3, wantTotal: 24, wantFirst: "Dune", wantCount: 10},
		{name: "last page", query: ListQuery{Page: 3}, wantPage: 3, wantPages: 3, wantTotal: 24, wantCount: 4, wantFirst: "Title 04"},
		{name: "page clamped high", query: ListQuery{Page: 99}, wantPage: 3, wantPages: 3, wantTotal: 24, wantCount: 4, wantFirst: "Title 04"},
		{name: "page clamped low", query: ListQuery{Page: -2}, wantPage: 1, wantPages: 3, wantTotal: 24, wantCount: 10, wantFirst: "Dune"},
		{name: "sorted by title", query: ListQuery{Sort: SortTitle}, wantPage: 1, wantPages: 3, wantTotal: 24, wantCount: 10, wantFirst: "Dune"},
		{name: "sorted by author", query: ListQuery{Sort: SortAuthor}, wantPage: 1, wantPages: 3, wantTotal: 24, wantCount: 10, wantFirst: "Title 23"},
		{name: "keyword matches author case-insensitively", query: ListQuery{Keyword: " herbert "}, wantPage: 1, wantPages: 1, wantTotal: 1, wantCount: 1, wantFirst: "Dune"},
		{name: "keyword without matches", query: ListQuery{Keyword: "zzz", Page: 4}, wantPage: 1, wantPages: 1, wantTotal: 0, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ListBooks(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("ListBooks() error = %v", err)
			}
			if page.Page != tt.wantPage || page.TotalPages != tt.wantPages || page.Total != tt.wantTotal {
				t.Errorf("page %d/%d total %d, want %d/%d total %d",
					page.Page, page.TotalPages, page.Total, tt.wantPage, tt.wantPages, tt.wantTotal)
			}
			if len(page.Books) != tt.wantCount {
				t.Fatalf("got %d books, want %d", len(page.Books), tt.wantCount)
			}
			if tt.wantCount > 0 && page.Books[0].Title != tt.wantFirst {
				t.Errorf("first book = %q, want %q", page.Books[0].Title, tt.wantFirst)
			}
		})
	}
}

func TestBookPage_Navigation(t *testing.T) {
	page := BookPage{Books: make([]Book, 4), Page: 3, PageSize: 10, Total: 24, TotalPages: 3}

	if !page.HasPrev() || page.HasNext() {
		t.Errorf("HasPrev/HasNext = %v/%v, want true/false", page.HasPrev(), page.HasNext())
	}
	if page.FirstItem() != 21 || page.LastItem() != 24 {
		t.Errorf("items %d-%d, want 21-24", page.FirstItem(), page.LastItem())
	}
}

func TestParseSortOrder(t *testing.T) {
	tests := map[string]SortOrder{
		"":        SortNewest,
		"title":   SortTitle,
		"AUTHOR":  SortAuthor,
		"bogus":   SortNewest,
		" title ": SortTitle,
	}
	for in, want := range tests {
		if got := ParseSortOrder(in); got != want {
			t.Errorf("ParseSortOrder(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestService_FetchAll_NewestFirst(t *testing.T) {
	s := newTestService(t, newMemStore())
	seed(t, s, BookInput{Title: "1984", Author: "Orwell"}, BookInput{Title: "Dune", Author: "Herbert"})

	records, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	want := []export.Record{{Title: "Dune", Author: "Herbert"}, {Title: "1984", Author: "Orwell"}}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, records[i], want[i])
		}
	}
}

func TestService_PrepareExport(t *testing.T) {
	s := newTestService(t, newMemStore())
	seed(t, s, BookInput{Title: "1984", Author: "Orwell"}, BookInput{Title: "Dune", Author: "Herbert"})

	dl, err := s.PrepareExport(context.Background(), ExportOptions{IncludeTitle: true})
	if err != nil {
		t.Fatalf("PrepareExport() error = %v", err)
	}
	if got := s.ExportStatus().Active; got != 1 {
		t.Errorf("active exports = %d, want 1", got)
	}

	var buf bytes.Buffer
	if err := dl.Send(context.Background(), &buf); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range zr.File {
		if f.Name != export.TabularFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if want := "Title\nDune\n1984\n"; string(data) != want {
			t.Errorf("csv = %q, want %q", data, want)
		}
	}

	if err := s.WaitForExports(context.Background()); err != nil {
		t.Errorf("WaitForExports() error = %v", err)
	}
	entries, err := os.ReadDir(s.ExportTempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workspace left behind: %d entries", len(entries))
	}
}

func TestService_PrepareExport_NoColumns(t *testing.T) {
	s := newTestService(t, newMemStore())

	_, err := s.PrepareExport(context.Background(), ExportOptions{})

	if !export.IsValidation(err) {
		t.Fatalf("expected export.ValidationError, got %v", err)
	}
	if err.Error() != export.NoColumnsMessage {
		t.Errorf("message = %q", err.Error())
	}
}

func TestService_PrepareExport_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	s := newTestService(t, store)

	_, err := s.PrepareExport(context.Background(), ExportOptions{IncludeTitle: true, IncludeAuthor: true})

	var ioe *export.IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected export.IOError, got %v", err)
	}
	if got := MapError(err).Code; got != "EXP002" {
		t.Errorf("mapped code = %q, want EXP002", got)
	}
}
