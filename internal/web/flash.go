package web

import (
	"encoding/base64"
	"net/http"

	"github.com/JonMunkholm/bookshelf/internal/web/templates"
)

// Flash messages survive exactly one redirect in a short-lived cookie per
// kind.
const (
	flashSuccess = "success"
	flashError   = "error"

	flashCookiePrefix = "flash_"
	flashMaxAge       = 60
)

const (
	msgBookCreated = "New book added successfully."
	msgBookUpdated = "Book updated successfully."
	msgBookDeleted = "Book deleted successfully"
)

var flashKinds = []string{flashSuccess, flashError}

func setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookiePrefix + kind,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns pending flash messages and expires their cookies.
func popFlashes(w http.ResponseWriter, r *http.Request) []templates.Flash {
	var flashes []templates.Flash
	for _, kind := range flashKinds {
		c, err := r.Cookie(flashCookiePrefix + kind)
		if err != nil {
			continue
		}
		http.SetCookie(w, &http.Cookie{
			Name:     c.Name,
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		msg, err := base64.RawURLEncoding.DecodeString(c.Value)
		if err != nil || len(msg) == 0 {
			continue
		}
		flashes = append(flashes, templates.Flash{Kind: kind, Message: string(msg)})
	}
	return flashes
}
