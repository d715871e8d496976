package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/schooldesk/console/internal/listing"
	"github.com/schooldesk/console/internal/screens"
	"github.com/schooldesk/console/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "dashboard", "list", "form", "confirm", "profile", "unauthorized"}

// views holds one parsed template set per page, each sharing the layout.
type views struct {
	pages map[string]*template.Template
}

func newViews(fileURL string) (*views, error) {
	funcs := template.FuncMap{
		"fileURL": func(key string) string {
			if key == "" {
				return ""
			}
			if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
				return key
			}
			return fileURL + "/" + strings.TrimLeft(key, "/")
		},
		"pageURL": pageURL,
	}

	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		v.pages[name] = tmpl
	}
	return v, nil
}

// page is the data every template receives.
type page struct {
	Title   string
	User    *types.User
	Menu    []types.MenuNode
	Notices []screens.Notice
	Content any
}

// render executes the page into a buffer first so template errors never
// leave a half-written response.
func (v *views) render(w http.ResponseWriter, status int, name string, data page) error {
	tmpl, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

func pageURL(base string, q listQuery, page int) string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(q.Limit))
	if q.Query != "" {
		values.Set("q", q.Query)
	}
	return base + "?" + values.Encode()
}

type listView struct {
	Base     string
	Singular string
	Columns  []string
	Rows     []listRow
	Query    listQuery
	Limits   []int
	Pager    listing.Pager
	Error    string
	Images   bool
}

// limitChoices returns the page sizes offered in the list toolbar,
// including current when it is not a standard one.
func limitChoices(current int) []int {
	choices := []int{10, 25, 50, 100}
	for _, n := range choices {
		if n == current {
			return choices
		}
	}
	return append([]int{current}, choices...)
}

type listRow struct {
	ID    int
	Cells []string
	Image string
}

type formView struct {
	Base     string
	Singular string
	Editing  bool
	ID       int
	Fields   []formField
	Error    string
	Upload   bool
	Image    string
	Query    listQuery
}

type formField struct {
	Name     string
	Label    string
	Type     string
	Value    string
	Required bool
	Options  []formOption
}

type formOption struct {
	Value    string
	Label    string
	Selected bool
}

type confirmView struct {
	Base   string
	ID     int
	Prompt string
	Query  listQuery
}

type loginView struct {
	Email string
}

type profileView struct {
	Fields []formField
	Error  string
	Avatar string
}
