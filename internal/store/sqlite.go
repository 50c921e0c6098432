package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JonMunkholm/bookshelf/internal/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS books (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	author     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at DESC, id DESC);
`

// SQLite is a BookStore backed by a single SQLite file. Timestamps are
// stored as Unix nanoseconds.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

const sqliteKeywordFilter = ` WHERE title LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\'`

func (s *SQLite) CountBooks(ctx context.Context, keyword string) (int, error) {
	query := `SELECT count(*) FROM books`
	var args []any
	if keyword != "" {
		query += sqliteKeywordFilter
		p := likePattern(keyword)
		args = append(args, p, p)
	}

	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (s *SQLite) ListBooks(ctx context.Context, keyword string, sort core.SortOrder, limit, offset int) ([]core.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books`
	var args []any
	if keyword != "" {
		query += sqliteKeywordFilter
		p := likePattern(keyword)
		args = append(args, p, p)
	}
	query += ` ORDER BY ` + orderBy(sort, func(col string) string { return col + " COLLATE NOCASE" }) +
		` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return s.queryBooks(ctx, query, args...)
}

func (s *SQLite) GetBook(ctx context.Context, id int64) (core.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanSQLiteBook(row)
}

func (s *SQLite) CreateBook(ctx context.Context, in core.BookInput) (core.Book, error) {
	now := s.now().UnixNano()
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO books (title, author, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING `+bookColumns,
		in.Title, in.Author, now, now)
	return scanSQLiteBook(row)
}

func (s *SQLite) UpdateBook(ctx context.Context, id int64, in core.BookInput) (core.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE books SET title = ?, author = ?, updated_at = ? WHERE id = ? RETURNING `+bookColumns,
		in.Title, in.Author, s.now().UnixNano(), id)
	return scanSQLiteBook(row)
}

func (s *SQLite) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrBookNotFound
	}
	return nil
}

func (s *SQLite) AllBooks(ctx context.Context) ([]core.Book, error) {
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY created_at DESC, id DESC`)
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() {
	s.db.Close()
}

func (s *SQLite) queryBooks(ctx context.Context, query string, args ...any) ([]core.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []core.Book
	for rows.Next() {
		b, err := scanSQLiteBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteBook(row rowScanner) (core.Book, error) {
	var b core.Book
	var created, updated int64
	err := row.Scan(&b.ID, &b.Title, &b.Author, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Book{}, core.ErrBookNotFound
	}
	if err != nil {
		return core.Book{}, err
	}
	b.CreatedAt = time.Unix(0, created).UTC()
	b.UpdatedAt = time.Unix(0, updated).UTC()
	return b, nil
}
