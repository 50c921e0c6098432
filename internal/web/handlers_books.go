package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/bookshelf/internal/core"
	"github.com/JonMunkholm/bookshelf/internal/logging"
	"github.com/JonMunkholm/bookshelf/internal/web/templates"
)

// listPaths maps each sort order to the route that shows it.
var listPaths = map[core.SortOrder]string{
	core.SortNewest: "/books",
	core.SortTitle:  "/books/sortedbytitle",
	core.SortAuthor: "/books/sortedbyauthor",
}

// handleBookList renders one page of books in the given order.
//
// Query parameters:
//   - keyword: substring matched against title or author
//   - page: 1-based page number, clamped to the last page
func (s *Server) handleBookList(sort core.SortOrder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.service.ListBooks(r.Context(), core.ListQuery{
			Keyword: r.URL.Query().Get("keyword"),
			Sort:    sort,
			Page:    parseIntParam(r, "page", 1),
		})
		if err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, page)
			return
		}

		render(w, r, http.StatusOK, templates.BookList(templates.BookListData{
			Page:     page,
			BasePath: listPaths[page.Sort],
			Flashes:  popFlashes(w, r),
		}))
	}
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, templates.BookForm(createForm(core.BookInput{}, nil)))
}

// handleCreateBook adds a book from a form or JSON body. Browsers are
// redirected to the list; invalid input re-renders the form.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	in, err := readBookInput(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	book, err := s.service.CreateBook(r.Context(), in)
	if err != nil {
		s.respondBookError(w, r, err, createForm(in, fieldErrors(err)))
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, book)
		return
	}
	setFlash(w, flashSuccess, msgBookCreated)
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r)
	if err != nil {
		s.respondError(w, r, core.ErrBookNotFound, http.StatusNotFound)
		return
	}

	book, err := s.service.GetBook(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	in := core.BookInput{Title: book.Title, Author: book.Author}
	render(w, r, http.StatusOK, templates.BookForm(updateForm(id, in, nil)))
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r)
	if err != nil {
		s.respondError(w, r, core.ErrBookNotFound, http.StatusNotFound)
		return
	}

	in, err := readBookInput(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	book, err := s.service.UpdateBook(r.Context(), id, in)
	if err != nil {
		s.respondBookError(w, r, err, updateForm(id, in, fieldErrors(err)))
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, book)
		return
	}
	setFlash(w, flashSuccess, msgBookUpdated)
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

// deleteRequest is the body of DELETE /books.
type deleteRequest struct {
	ID int64 `json:"id"`
}

// deleteResponse is what the list page script expects back.
type deleteResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// handleDeleteBook removes the book named by id in a JSON or form body.
// It always answers with JSON.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := readDeleteID(w, r)
	if err != nil {
		s.logRequestError(r, err)
		writeJSON(w, http.StatusBadRequest, deleteResponse{Message: "Invalid book id"})
		return
	}

	if err := s.service.DeleteBook(r.Context(), id); err != nil {
		status := statusFor(err)
		s.logRequestError(r, err)
		writeJSON(w, status, deleteResponse{Message: core.MapError(err).Message})
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Status: true, Message: msgBookDeleted})
}

// handleHealth reports whether the store is reachable, plus export slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := map[string]any{
		"status":  "ok",
		"exports": s.service.ExportStatus(),
	}
	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		s.logRequestError(r, err)
		resp["status"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// respondBookError re-renders the form with field errors for browser
// requests and falls back to respondError otherwise.
func (s *Server) respondBookError(w http.ResponseWriter, r *http.Request, err error, form templates.BookFormData) {
	var fe core.FieldErrors
	if errors.As(err, &fe) && !wantsJSON(r) {
		render(w, r, http.StatusUnprocessableEntity, templates.BookForm(form))
		return
	}
	s.respondError(w, r, err, statusFor(err))
}

// logRequestError logs a failure that is answered without respondError.
func (s *Server) logRequestError(r *http.Request, err error) {
	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"error", err.Error(),
		"code", core.MapError(err).Code,
	)
}

func readBookInput(w http.ResponseWriter, r *http.Request) (core.BookInput, error) {
	var in core.BookInput
	if isJSONBody(r) {
		err := decodeJSON(w, r, &in)
		return in, err
	}
	if err := parseForm(w, r); err != nil {
		return in, err
	}
	in.Title = r.PostFormValue("title")
	in.Author = r.PostFormValue("author")
	return in, nil
}

func readDeleteID(w http.ResponseWriter, r *http.Request) (int64, error) {
	if isJSONBody(r) {
		var req deleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return 0, err
		}
		if req.ID < 1 {
			return 0, fmt.Errorf("invalid book id %d", req.ID)
		}
		return req.ID, nil
	}
	// ParseForm ignores DELETE bodies, so the form is read here.
	values, err := readFormBody(w, r)
	if err != nil {
		return 0, err
	}
	if id := values.Get("id"); id != "" {
		return parseID(id)
	}
	return parseID(r.URL.Query().Get("id"))
}

func fieldErrors(err error) core.FieldErrors {
	var fe core.FieldErrors
	errors.As(err, &fe)
	return fe
}

func createForm(in core.BookInput, errs core.FieldErrors) templates.BookFormData {
	return templates.BookFormData{
		Heading: "Add book",
		Action:  "/books",
		Submit:  "Save",
		Input:   in,
		Errors:  errs,
	}
}

func updateForm(id int64, in core.BookInput, errs core.FieldErrors) templates.BookFormData {
	return templates.BookFormData{
		Heading: "Edit book",
		Action:  "/books/update/" + strconv.FormatInt(id, 10),
		Submit:  "Update",
		Input:   in,
		Errors:  errs,
	}
}
