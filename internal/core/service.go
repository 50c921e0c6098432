package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/bookshelf/internal/config"
	"github.com/JonMunkholm/bookshelf/internal/export"
	"github.com/JonMunkholm/bookshelf/internal/logging"
)

// Service provides the core business logic of the catalog.
type Service struct {
	store    BookStore
	exporter *export.Exporter
	validate *inputValidator
}

// NewService creates a Service backed by store. Exports write their
// workspaces under cfg.Dir() and are bounded by cfg's timeout and slot count.
func NewService(store BookStore, cfg config.ExportConfig, metrics *export.Metrics) *Service {
	s := &Service{
		store:    store,
		validate: newInputValidator(),
	}
	s.exporter = export.NewExporter(s, cfg.Dir(),
		export.WithTimeout(cfg.Timeout),
		export.WithLimiter(export.NewLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime)),
		export.WithMetrics(metrics),
	)
	return s
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListBooks returns one page of books. The page number is clamped to the
// available range, so an out-of-range page shows the nearest real one.
func (s *Service) ListBooks(ctx context.Context, q ListQuery) (BookPage, error) {
	q = q.normalize()

	total, err := s.store.CountBooks(ctx, q.Keyword)
	if err != nil {
		return BookPage{}, fmt.Errorf("count books: %w", err)
	}

	pages := totalPages(total, q.PageSize)
	if q.Page > pages {
		q.Page = pages
	}

	books, err := s.store.ListBooks(ctx, q.Keyword, q.Sort, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return BookPage{}, fmt.Errorf("list books: %w", err)
	}

	return BookPage{
		Books:      books,
		Keyword:    q.Keyword,
		Sort:       q.Sort,
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: pages,
	}, nil
}

// GetBook returns the book with id, or ErrBookNotFound.
func (s *Service) GetBook(ctx context.Context, id int64) (Book, error) {
	return s.store.GetBook(ctx, id)
}

// CreateBook validates in and stores a new book.
// Returns FieldErrors when the input is invalid.
func (s *Service) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	in = in.normalize()
	if err := s.validate.book(in); err != nil {
		return Book{}, err
	}

	book, err := s.store.CreateBook(ctx, in)
	if err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}

	logging.WithFields(ctx, "book_id", book.ID, "client_ip", ClientIPFromContext(ctx)).
		Info("book created")
	return book, nil
}

// UpdateBook validates in and replaces the title and author of book id.
func (s *Service) UpdateBook(ctx context.Context, id int64, in BookInput) (Book, error) {
	in = in.normalize()
	if err := s.validate.book(in); err != nil {
		return Book{}, err
	}

	book, err := s.store.UpdateBook(ctx, id, in)
	if err != nil {
		return Book{}, fmt.Errorf("update book %d: %w", id, err)
	}

	logging.WithFields(ctx, "book_id", id, "client_ip", ClientIPFromContext(ctx)).
		Info("book updated")
	return book, nil
}

// DeleteBook removes book id, or returns ErrBookNotFound.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	if err := s.store.DeleteBook(ctx, id); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}

	logging.WithFields(ctx, "book_id", id, "client_ip", ClientIPFromContext(ctx)).
		Info("book deleted")
	return nil
}

// FetchAll returns every book as an export record, newest first.
// It makes Service the record source of its own exporter.
func (s *Service) FetchAll(ctx context.Context) ([]export.Record, error) {
	books, err := s.store.AllBooks(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]export.Record, len(books))
	for i, b := range books {
		records[i] = export.Record{Title: b.Title, Author: b.Author}
	}
	return records, nil
}

// PrepareExport validates opts and builds the archive. The returned
// download must be delivered with export.Deliver or closed.
func (s *Service) PrepareExport(ctx context.Context, opts ExportOptions) (*export.Download, error) {
	if err := s.validate.exportOptions(opts); err != nil {
		return nil, err
	}
	return s.exporter.Prepare(ctx, opts.IncludeTitle, opts.IncludeAuthor)
}

// ExportStatus returns the state of the export slots.
func (s *Service) ExportStatus() export.LimiterStatus {
	return s.exporter.Limiter().Status()
}

// WaitForExports blocks until no export is running or ctx is done.
// Used during graceful shutdown.
func (s *Service) WaitForExports(ctx context.Context) error {
	return s.exporter.Limiter().WaitForDrain(ctx)
}

// ExportTempDir returns the directory export workspaces are created in.
func (s *Service) ExportTempDir() string {
	return s.exporter.TempDir()
}
