// Package core provides the business logic of the bookshelf catalog.
//
// This package holds the domain rules independent of any UI or storage
// driver. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # Architecture
//
//   - Books: [Book] values are listed, searched, sorted, created, updated and
//     deleted through [Service], which validates input and delegates
//     persistence to a [BookStore].
//   - Export: [Service.PrepareExport] validates the requested columns and
//     hands the catalog to the export pipeline, which produces a ZIP with a
//     CSV and an XML rendering of every book.
//   - Errors: [MapError] turns technical errors into a [UserMessage] with a
//     support code.
//
// # Listing
//
// Listing is paginated with [DefaultPageSize] books per page. A keyword
// matches title or author, case-insensitively:
//
//	page, err := svc.ListBooks(ctx, core.ListQuery{
//	    Keyword: "herbert",
//	    Sort:    core.SortTitle,
//	    Page:    2,
//	})
//
// # Export
//
// An export holds a concurrency slot and a private workspace until its
// archive is delivered or closed:
//
//	dl, err := svc.PrepareExport(ctx, core.ExportOptions{IncludeTitle: true})
//	if err != nil {
//	    return err // *export.ValidationError, *export.IOError, ...
//	}
//	return export.Deliver(ctx, w, dl)
//
// # Thread Safety
//
// [Service] is safe for concurrent use. Concurrent exports never share a
// file path.
package core
