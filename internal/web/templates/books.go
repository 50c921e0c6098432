package templates

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bookshelf/internal/core"
)

// BookListData is everything the list page shows.
type BookListData struct {
	Page     core.BookPage
	BasePath string // route of the current sort, used for search and paging links
	Flashes  []Flash
}

// ExportPath is the route the export form posts to.
const ExportPath = "/books/generateCSVAndXML"

// sortLinks are the list routes, one per sort order.
var sortLinks = []struct {
	Sort  core.SortOrder
	Path  string
	Label string
}{
	{core.SortNewest, "/books", "Newest"},
	{core.SortTitle, "/books/sortedbytitle", "Title"},
	{core.SortAuthor, "/books/sortedbyauthor", "Author"},
}

// BookList renders the catalog page.
func BookList(d BookListData) templ.Component {
	return page("Books", d.Flashes, component(func(m *markup) {
		p := d.Page

		m.raw(`<div class="toolbar"><form method="get"`)
		m.href("action", d.BasePath)
		m.raw(`><input type="search" name="keyword" placeholder="Search title or author"`)
		m.attr("value", p.Keyword)
		m.raw(`> <button type="submit">Search</button></form>`)
		m.raw(`<a href="/books/create">Add book</a></div>`)

		m.raw(`<nav>Sort by: `)
		for i, l := range sortLinks {
			if i > 0 {
				m.raw(` | `)
			}
			if l.Sort == p.Sort {
				m.raw(`<strong>`)
				m.text(l.Label)
				m.raw(`</strong>`)
				continue
			}
			m.raw(`<a`)
			m.href("href", pageURL(l.Path, p.Keyword, 1))
			m.raw(`>`)
			m.text(l.Label)
			m.raw(`</a>`)
		}
		m.raw(`</nav>`)

		if len(p.Books) == 0 {
			m.raw(`<p>No books found.</p>`)
		} else {
			m.raw(`<table><thead><tr><th>Title</th><th>Author</th><th></th></tr></thead><tbody>`)
			for _, book := range p.Books {
				id := strconv.FormatInt(book.ID, 10)
				m.raw(`<tr><td>`)
				m.text(book.Title)
				m.raw(`</td><td>`)
				m.text(book.Author)
				m.raw(`</td><td><a`)
				m.href("href", "/books/update/"+id)
				m.raw(`>Edit</a> <button type="button" class="delete"`)
				m.attr("data-id", id)
				m.raw(`>Delete</button></td></tr>`)
			}
			m.raw(`</tbody></table><p>Showing `)
			m.int(p.FirstItem())
			m.raw(`-`)
			m.int(p.LastItem())
			m.raw(` of `)
			m.int(p.Total)
			m.raw(`</p>`)
		}

		if p.TotalPages > 1 {
			m.raw(`<div class="pagination">`)
			if p.HasPrev() {
				m.raw(`<a`)
				m.href("href", pageURL(d.BasePath, p.Keyword, p.Page-1))
				m.raw(`>Previous</a>`)
			}
			m.raw(`<span>Page `)
			m.int(p.Page)
			m.raw(` of `)
			m.int(p.TotalPages)
			m.raw(`</span>`)
			if p.HasNext() {
				m.raw(`<a`)
				m.href("href", pageURL(d.BasePath, p.Keyword, p.Page+1))
				m.raw(`>Next</a>`)
			}
			m.raw(`</div>`)
		}

		m.raw(`<fieldset><legend>Export</legend><form method="post"`)
		m.href("action", ExportPath)
		m.raw(`>`)
		m.raw(`<label><input type="checkbox" name="generateTitle" value="on"> Title</label> `)
		m.raw(`<label><input type="checkbox" name="generateAuthor" value="on"> Author</label> `)
		m.raw(`<button type="submit">Download CSV and XML</button></form></fieldset>`)

		m.raw(deleteScript)
	}))
}

// pageURL builds a list link preserving the search keyword.
func pageURL(path, keyword string, page int) string {
	q := url.Values{}
	if keyword != "" {
		q.Set("keyword", keyword)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

const deleteScript = `<script>
document.querySelectorAll("button.delete").forEach(function (btn) {
  btn.addEventListener("click", function () {
    if (!confirm("Delete this book?")) return;
    fetch("/books", {
      method: "DELETE",
      headers: {"Content-Type": "application/json", "Accept": "application/json"},
      body: JSON.stringify({id: Number(btn.dataset.id)})
    }).then(function (r) { return r.json(); }).then(function (res) {
      alert(res.message);
      if (res.status) location.reload();
    });
  });
});
</script>`
