package template

import (
	"embed"
	"encoding/json"
	"fmt"
	"html"
	htmltemplate "html/template"
	"io"
	"maps"
	"net/url"
	"os"
)

// Name is the template the widget is rendered with. A template file without
// a {{define "deliciousfeed"}} block is used as that template in full.
const Name = "deliciousfeed"

const tagBaseURL = "http://delicious.com/"

//go:embed templates/*.html
var defaultTemplates embed.FS

type Template struct {
	htmlTmpl *htmltemplate.Template
}

// Load parses the template at path, or the embedded default when path is
// empty. customFuncs are added to the default funcs.
func Load(path string, customFuncs htmltemplate.FuncMap) (*Template, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = defaultTemplates.ReadFile("templates/deliciousfeed.html")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
	}

	funcs := htmltemplate.FuncMap{
		"json":   toJSON,
		"markup": markup,
		"tagURL": tagURL,
	}
	maps.Copy(funcs, customFuncs)

	tmpl, err := htmltemplate.New(Name).Funcs(funcs).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template file %s: %w", path, err)
	}

	return &Template{htmlTmpl: tmpl}, nil
}

func (t *Template) Execute(w io.Writer, data any) error {
	return t.htmlTmpl.ExecuteTemplate(w, Name, data)
}

// markup marks a string that is already HTML-escaped so it is not escaped
// again.
func markup(s string) htmltemplate.HTML {
	return htmltemplate.HTML(s)
}

func tagURL(account, escapedTag string) string {
	return tagBaseURL + url.PathEscape(account) + "/" + url.PathEscape(html.UnescapeString(escapedTag))
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
