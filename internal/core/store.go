package core

import (
	"context"
	"errors"
)

// ErrBookNotFound is returned when no book has the requested ID.
var ErrBookNotFound = errors.New("book not found")

// BookStore persists books. Implementations live in internal/store.
//
// List methods receive a normalized query: the keyword is trimmed and
// matched case-insensitively against title or author, and offset is the
// number of rows to skip.
type BookStore interface {
	CountBooks(ctx context.Context, keyword string) (int, error)
	ListBooks(ctx context.Context, keyword string, sort SortOrder, limit, offset int) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	CreateBook(ctx context.Context, in BookInput) (Book, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) (Book, error)
	DeleteBook(ctx context.Context, id int64) error

	// AllBooks returns every book, newest first (created_at DESC, id DESC).
	AllBooks(ctx context.Context) ([]Book, error)

	Ping(ctx context.Context) error
	Close()
}
