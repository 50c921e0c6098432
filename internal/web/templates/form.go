package templates

import (
	"github.com/a-h/templ"

	"github.com/JonMunkholm/bookshelf/internal/core"
)

// BookFormData drives the create and update pages.
type BookFormData struct {
	Heading string
	Action  string
	Submit  string
	Input   core.BookInput
	Errors  core.FieldErrors
}

// BookForm renders the add/edit form, with field errors from a failed
// submission next to their inputs.
func BookForm(d BookFormData) templ.Component {
	return page(d.Heading, nil, component(func(m *markup) {
		m.raw(`<h1>`)
		m.text(d.Heading)
		m.raw(`</h1><form method="post"`)
		m.href("action", d.Action)
		m.raw(`>`)
		field(m, "title", "Title", d.Input.Title, d.Errors)
		field(m, "author", "Author", d.Input.Author, d.Errors)
		m.raw(`<button type="submit">`)
		m.text(d.Submit)
		m.raw(`</button> <a href="/books">Cancel</a></form>`)
	}))
}

func field(m *markup, name, label, value string, errs core.FieldErrors) {
	m.raw(`<p><label`)
	m.attr("for", name)
	m.raw(`>`)
	m.text(label)
	m.raw(`</label><br><input`)
	m.attr("id", name)
	m.attr("name", name)
	m.raw(` maxlength="255"`)
	m.attr("value", value)
	m.raw(`>`)
	if msg, ok := errs[name]; ok {
		m.raw(`<br><span class="field-error">`)
		m.text(msg)
		m.raw(`</span>`)
	}
	m.raw(`</p>`)
}
