package core

import (
	"strings"
	"time"
)

// DefaultPageSize is the number of books shown per page.
const DefaultPageSize = 10

// Book is one catalog entry.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookInput is the user-editable part of a book.
type BookInput struct {
	Title  string `json:"title" form:"title" validate:"required,max=255"`
	Author string `json:"author" form:"author" validate:"required,max=255"`
}

// normalize trims surrounding whitespace from every field.
func (in BookInput) normalize() BookInput {
	return BookInput{
		Title:  strings.TrimSpace(in.Title),
		Author: strings.TrimSpace(in.Author),
	}
}

// SortOrder selects the ordering of a book listing.
type SortOrder string

const (
	SortNewest SortOrder = "newest" // created_at DESC
	SortTitle  SortOrder = "title"  // title ASC
	SortAuthor SortOrder = "author" // author ASC
)

// ParseSortOrder returns the order named by s, or SortNewest.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortTitle:
		return SortTitle
	case SortAuthor:
		return SortAuthor
	default:
		return SortNewest
	}
}

// ListQuery describes one page of a book listing.
type ListQuery struct {
	Keyword  string
	Sort     SortOrder
	Page     int
	PageSize int
}

// normalize applies defaults and trims the keyword.
func (q ListQuery) normalize() ListQuery {
	q.Keyword = strings.TrimSpace(q.Keyword)
	q.Sort = ParseSortOrder(string(q.Sort))
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// BookPage is one page of results plus what is needed to render pagination.
type BookPage struct {
	Books      []Book    `json:"books"`
	Keyword    string    `json:"keyword,omitempty"`
	Sort       SortOrder `json:"sort"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
}

// HasPrev reports whether a previous page exists.
func (p BookPage) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p BookPage) HasNext() bool { return p.Page < p.TotalPages }

// FirstItem returns the 1-based index of the first book on the page, or 0.
func (p BookPage) FirstItem() int {
	if len(p.Books) == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

// LastItem returns the 1-based index of the last book on the page, or 0.
func (p BookPage) LastItem() int {
	if len(p.Books) == 0 {
		return 0
	}
	return p.FirstItem() + len(p.Books) - 1
}

// totalPages returns the page count for total items, never less than 1.
func totalPages(total, pageSize int) int {
	if total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
