// Package store implements core.BookStore on PostgreSQL (pgx) and SQLite
// (modernc.org/sqlite, no cgo).
//
// Both backends create their schema on open, match keywords against title
// or author case-insensitively, and list books newest first with the id as
// a tie-breaker so the order is stable across calls.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/bookshelf/internal/config"
	"github.com/JonMunkholm/bookshelf/internal/core"
)

// Open connects to the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.BookStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		s, err := NewPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// likePattern turns a keyword into a substring LIKE pattern, escaping the
// wildcard characters with a backslash.
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(keyword) + "%"
}

// orderBy returns the ORDER BY clause for sort. fold wraps a text column in
// the backend's case-insensitive collation.
func orderBy(sort core.SortOrder, fold func(col string) string) string {
	switch sort {
	case core.SortTitle:
		return fold("title") + " ASC, id ASC"
	case core.SortAuthor:
		return fold("author") + " ASC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}
