package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/bookshelf/internal/config"
	"github.com/JonMunkholm/bookshelf/internal/core"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id         BIGSERIAL PRIMARY KEY,
		title      VARCHAR(255) NOT NULL,
		author     VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS books_created_at_idx ON books (created_at DESC, id DESC)`,
}

const bookColumns = "id, title, author, created_at, updated_at"

// Postgres is a BookStore backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to cfg.URL, applies the pool settings and creates
// the schema if needed.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Postgres{pool: pool}, nil
}

func scanBook(row pgx.CollectableRow) (core.Book, error) {
	var b core.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (p *Postgres) CountBooks(ctx context.Context, keyword string) (int, error) {
	var n int
	var err error
	if keyword == "" {
		err = p.pool.QueryRow(ctx, `SELECT count(*) FROM books`).Scan(&n)
	} else {
		err = p.pool.QueryRow(ctx,
			`SELECT count(*) FROM books WHERE title ILIKE $1 OR author ILIKE $1`,
			likePattern(keyword),
		).Scan(&n)
	}
	return n, err
}

func (p *Postgres) ListBooks(ctx context.Context, keyword string, sort core.SortOrder, limit, offset int) ([]core.Book, error) {
	order := orderBy(sort, func(col string) string { return "lower(" + col + ")" })

	var rows pgx.Rows
	var err error
	if keyword == "" {
		rows, err = p.pool.Query(ctx,
			`SELECT `+bookColumns+` FROM books ORDER BY `+order+` LIMIT $1 OFFSET $2`,
			limit, offset)
	} else {
		rows, err = p.pool.Query(ctx,
			`SELECT `+bookColumns+` FROM books WHERE title ILIKE $1 OR author ILIKE $1
			 ORDER BY `+order+` LIMIT $2 OFFSET $3`,
			likePattern(keyword), limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanBook)
}

func (p *Postgres) GetBook(ctx context.Context, id int64) (core.Book, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if err != nil {
		return core.Book{}, err
	}
	return collectOne(rows)
}

func (p *Postgres) CreateBook(ctx context.Context, in core.BookInput) (core.Book, error) {
	rows, err := p.pool.Query(ctx,
		`INSERT INTO books (title, author) VALUES ($1, $2) RETURNING `+bookColumns,
		in.Title, in.Author)
	if err != nil {
		return core.Book{}, err
	}
	return collectOne(rows)
}

func (p *Postgres) UpdateBook(ctx context.Context, id int64, in core.BookInput) (core.Book, error) {
	rows, err := p.pool.Query(ctx,
		`UPDATE books SET title = $1, author = $2, updated_at = now() WHERE id = $3 RETURNING `+bookColumns,
		in.Title, in.Author, id)
	if err != nil {
		return core.Book{}, err
	}
	return collectOne(rows)
}

func (p *Postgres) DeleteBook(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrBookNotFound
	}
	return nil
}

func (p *Postgres) AllBooks(ctx context.Context) ([]core.Book, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanBook)
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// collectOne returns the single row in rows, or core.ErrBookNotFound.
func collectOne(rows pgx.Rows) (core.Book, error) {
	b, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Book{}, core.ErrBookNotFound
	}
	return b, err
}
