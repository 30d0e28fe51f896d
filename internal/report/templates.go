package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lvanheel/teamdigest/internal/window"
)

// Meta is the data available to header/footer templates.
type Meta struct {
	ReportName string
	Window     window.Window
}

// Templates loads the free-text header and footer fragments wrapped around
// an assembled digest body. The fragments live in per-format files
// ({dir}/{format}_header.txt, {dir}/{format}_footer.txt) and may use Go
// template syntax over Meta. A missing file is an empty fragment, not an
// error; template content is the operator's business.
type Templates struct {
	Dir string
}

func NewTemplates(dir string) *Templates {
	return &Templates{Dir: dir}
}

func (t *Templates) Load(format Format, meta Meta) (header, footer string, err error) {
	header, err = t.render(fmt.Sprintf("%s_header.txt", format), meta)
	if err != nil {
		return "", "", err
	}
	footer, err = t.render(fmt.Sprintf("%s_footer.txt", format), meta)
	if err != nil {
		return "", "", err
	}
	return header, footer, nil
}

func (t *Templates) render(name string, meta Meta) (string, error) {
	raw, err := os.ReadFile(filepath.Join(t.Dir, name))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", name, err)
	}

	funcMap := template.FuncMap{
		"title": cases.Title(language.English).String,
	}
	tmpl, err := template.New(name).Funcs(funcMap).Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, meta); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", name, err)
	}
	return sb.String(), nil
}
