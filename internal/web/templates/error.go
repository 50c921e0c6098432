package templates

import (
	"github.com/a-h/templ"
)

// ErrorPage shows a user-facing error with its support code.
func ErrorPage(status int, message, action, code string) templ.Component {
	return page("Error", nil, component(func(m *markup) {
		m.raw(`<h1>`)
		m.int(status)
		m.raw(`</h1><div class="flash flash-error" role="alert"><p>`)
		m.text(message)
		m.raw(`</p>`)
		if action != "" {
			m.raw(`<p>`)
			m.text(action)
			m.raw(`</p>`)
		}
		m.raw(`<small>Code: `)
		m.text(code)
		m.raw(`</small></div><a href="/books">Back to books</a>`)
	}))
}
