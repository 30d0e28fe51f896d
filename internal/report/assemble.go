package report

import (
	"fmt"
	"strings"

	"github.com/lvanheel/teamdigest/internal/window"
)

// Format tags the rendering style of an output channel.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatWikitext Format = "wikitext"
)

// ScopeAll is the sentinel project scope meaning "every project in the
// bucket".
const ScopeAll = "All"

// Section is one project's slice of a digest, in arrival order.
type Section struct {
	Project string
	Lines   []string
}

// Digest is the assembled report for one channel/window pair. Immutable
// once produced.
type Digest struct {
	Subject  string
	Body     string
	Sections []Section
	Window   window.Window
}

// Empty reports whether there is nothing to send: no project in the bucket
// matched the channel's scope. An empty send is suppressed by the
// dispatcher, not treated as an error. A present-but-empty section still
// counts as content so the published report shows the section heading.
func (d *Digest) Empty() bool {
	return len(d.Sections) == 0
}

// Subject builds the report subject for a window, e.g.
// "Analytics Team <2012-07-02-2012-07-09>".
func Subject(reportName string, w window.Window) string {
	return fmt.Sprintf("%s <%s>", reportName, w)
}

// Assemble renders the bucket slice for one window into the channel's
// format. Scope is either a single project name or ScopeAll; a scoped
// project absent from the bucket yields an empty digest.
func Assemble(bucket Bucket, w window.Window, reportName, scope string, format Format, tmpl *Templates) (*Digest, error) {
	key := w.Key()
	var sections []Section
	switch scope {
	case ScopeAll:
		for _, name := range bucket.Projects(key) {
			sections = append(sections, Section{Project: name, Lines: bucket[key][name]})
		}
	default:
		if lines, ok := bucket[key][scope]; ok {
			sections = append(sections, Section{Project: scope, Lines: lines})
		}
	}

	d := &Digest{
		Subject:  Subject(reportName, w),
		Sections: sections,
		Window:   w,
	}
	if d.Empty() {
		return d, nil
	}

	header, footer, err := tmpl.Load(format, Meta{ReportName: reportName, Window: w})
	if err != nil {
		return nil, err
	}

	var body string
	switch format {
	case FormatPlain:
		body = renderPlain(sections)
	case FormatWikitext:
		body = renderWikitext(d.Subject, sections)
	default:
		return nil, fmt.Errorf("unknown digest format %q", format)
	}
	d.Body = header + body + footer
	return d, nil
}

// renderPlain writes each project name followed by its task lines, with a
// blank line between projects.
func renderPlain(sections []Section) string {
	var sb strings.Builder
	sb.WriteString("\n")
	for _, s := range sections {
		sb.WriteString(s.Project)
		sb.WriteString("\n")
		for _, line := range s.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderWikitext leads with the subject as a first-level heading and wraps
// each project name as a second-level heading.
func renderWikitext(subject string, sections []Section) string {
	var sb strings.Builder
	sb.WriteString("= " + subject + " =\n")
	for _, s := range sections {
		sb.WriteString("== " + s.Project + " ==\n")
		for _, line := range s.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
