// Package templates renders the HTML pages of the bookshelf UI as
// templ components.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Flash is a one-shot notice shown at the top of the next page.
type Flash struct {
	Kind    string // "success" or "error"
	Message string
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
main{max-width:960px;margin:2rem auto;padding:0 1rem}
header{background:#243b53;color:#fff;padding:1rem}
header a{color:#fff;text-decoration:none;font-weight:600}
table{width:100%;border-collapse:collapse;background:#fff}
th,td{padding:.5rem .75rem;border-bottom:1px solid #d9e2ec;text-align:left}
.flash{padding:.75rem 1rem;margin-bottom:1rem;border-radius:4px}
.flash-success{background:#e3f9e5;color:#207227}
.flash-error{background:#ffe3e3;color:#8a1c1c}
.field-error{color:#8a1c1c;font-size:.875rem}
.toolbar{display:flex;gap:1rem;align-items:center;justify-content:space-between;margin:1rem 0}
.pagination{display:flex;gap:.5rem;margin-top:1rem}
fieldset{border:1px solid #d9e2ec;background:#fff;margin-top:1.5rem}
`

// Layout renders the page chrome around the children in ctx.
func Layout(title string, flashes []Flash) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		children := templ.GetChildren(ctx)
		if children == nil {
			children = templ.NopComponent
		}
		ctx = templ.ClearChildren(ctx)

		head := component(func(m *markup) {
			m.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
			m.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
			m.raw(`<title>`)
			m.text(title)
			m.raw(` | Bookshelf</title>`)
			m.raw(`<style>` + styles + `</style></head><body>`)
			m.raw(`<header><a href="/books">Bookshelf</a></header><main>`)
			for _, f := range flashes {
				m.raw(`<div`)
				m.attr("class", "flash flash-"+f.Kind)
				m.raw(` role="status">`)
				m.text(f.Message)
				m.raw(`</div>`)
			}
		})
		if err := head.Render(ctx, w); err != nil {
			return err
		}
		if err := children.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// page renders body inside Layout.
func page(title string, flashes []Flash, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Layout(title, flashes).Render(templ.WithChildren(ctx, body), w)
	})
}
