package templates

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// markup accumulates the HTML of one component. Literal markup goes
// through raw; every dynamic value goes through text, attr or href.
type markup struct {
	b strings.Builder
}

func (m *markup) raw(s string) {
	m.b.WriteString(s)
}

// text writes s as escaped character data.
func (m *markup) text(s string) {
	m.b.WriteString(templ.EscapeString(s))
}

func (m *markup) int(n int) {
	m.b.WriteString(strconv.Itoa(n))
}

// attr writes ` name="value"` with value escaped. name is always a literal.
func (m *markup) attr(name, value string) {
	m.b.WriteString(` ` + name + `="` + templ.EscapeString(value) + `"`)
}

// href writes a URL attribute. Unsafe schemes such as javascript: are
// replaced by templ's failed-sanitization placeholder.
func (m *markup) href(name, u string) {
	m.attr(name, string(templ.URL(u)))
}

// component adapts a markup builder to a templ.Component.
func component(build func(m *markup)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var m markup
		build(&m)
		_, err := io.WriteString(w, m.b.String())
		return err
	})
}
