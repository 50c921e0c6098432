package web

import (
	"net/http"

	"github.com/JonMunkholm/bookshelf/internal/core"
	"github.com/JonMunkholm/bookshelf/internal/export"
	"github.com/JonMunkholm/bookshelf/internal/logging"
)

// handleExport builds the CSV/XML archive for the selected columns and
// streams it as a download.
//
// Form fields generateTitle and generateAuthor select the columns; any
// non-empty value counts as checked. A request with neither is sent back
// to the list with the validation message as a flash.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	opts := core.ExportOptions{
		IncludeTitle:  r.PostFormValue("generateTitle") != "",
		IncludeAuthor: r.PostFormValue("generateAuthor") != "",
	}

	d, err := s.service.PrepareExport(r.Context(), opts)
	if err != nil {
		if export.IsValidation(err) && !wantsJSON(r) {
			setFlash(w, flashError, core.MapError(err).Message)
			http.Redirect(w, r, "/books", http.StatusSeeOther)
			return
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}

	// Headers are committed once delivery starts, so failures from here on
	// can only be logged. The download is cleaned up either way.
	if err := export.Deliver(r.Context(), w, d); err != nil {
		logging.WithFields(r.Context(), "export_id", d.ID).Error("export delivery failed", "error", err)
	}
}
