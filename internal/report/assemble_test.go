package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvanheel/teamdigest/internal/window"
)

func testWindow() window.Window {
	return window.Window{
		Start: date(2012, time.July, 2),
		End:   date(2012, time.July, 9),
	}
}

func testBucket(w window.Window) Bucket {
	return Bucket{
		w.Key(): {
			"Core":    {"* Ship X completed by Alice on 2012-07-03"},
			"Website": {"* Redesign completed by Carol on 2012-07-04", "* Copy pass completed by Alice on 2012-07-05"},
		},
	}
}

func emptyTemplates(t *testing.T) *Templates {
	t.Helper()
	return NewTemplates(t.TempDir())
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Analytics Team <2012-07-02-2012-07-09>", Subject("Analytics Team", testWindow()))
}

func TestAssemblePlainAllProjects(t *testing.T) {
	w := testWindow()
	d, err := Assemble(testBucket(w), w, "Analytics Team", ScopeAll, FormatPlain, emptyTemplates(t))
	require.NoError(t, err)

	assert.False(t, d.Empty())
	assert.Equal(t, "Analytics Team <2012-07-02-2012-07-09>", d.Subject)

	want := "\n" +
		"Core\n" +
		"* Ship X completed by Alice on 2012-07-03\n" +
		"\n" +
		"Website\n" +
		"* Redesign completed by Carol on 2012-07-04\n" +
		"* Copy pass completed by Alice on 2012-07-05\n" +
		"\n"
	assert.Equal(t, want, d.Body)
}

func TestAssembleWikitext(t *testing.T) {
	w := testWindow()
	d, err := Assemble(testBucket(w), w, "Analytics Team", "Core", FormatWikitext, emptyTemplates(t))
	require.NoError(t, err)

	want := "= Analytics Team <2012-07-02-2012-07-09> =\n" +
		"== Core ==\n" +
		"* Ship X completed by Alice on 2012-07-03\n"
	assert.Equal(t, want, d.Body)
}

func TestAssembleScopedProject(t *testing.T) {
	w := testWindow()
	d, err := Assemble(testBucket(w), w, "Analytics Team", "Website", FormatPlain, emptyTemplates(t))
	require.NoError(t, err)

	require.Len(t, d.Sections, 1)
	assert.Equal(t, "Website", d.Sections[0].Project)
	assert.NotContains(t, d.Body, "Core")
}

func TestAssembleMissingScopeIsEmpty(t *testing.T) {
	w := testWindow()
	d, err := Assemble(testBucket(w), w, "Analytics Team", "Nonexistent", FormatPlain, emptyTemplates(t))
	require.NoError(t, err)

	assert.True(t, d.Empty())
	assert.Empty(t, d.Body)
}

func TestAssembleEmptyBucketIsEmpty(t *testing.T) {
	w := testWindow()
	bucket := NewBucket([]window.Window{w})
	d, err := Assemble(bucket, w, "Analytics Team", ScopeAll, FormatPlain, emptyTemplates(t))
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestAssembleEmptySectionStillRenders(t *testing.T) {
	w := testWindow()
	bucket := Bucket{w.Key(): {"Core": {}}}
	d, err := Assemble(bucket, w, "Analytics Team", ScopeAll, FormatPlain, emptyTemplates(t))
	require.NoError(t, err)

	assert.False(t, d.Empty())
	assert.Contains(t, d.Body, "Core\n")
}

func TestAssembleProjectsSorted(t *testing.T) {
	w := testWindow()
	d, err := Assemble(testBucket(w), w, "Analytics Team", ScopeAll, FormatPlain, emptyTemplates(t))
	require.NoError(t, err)

	require.Len(t, d.Sections, 2)
	assert.Equal(t, "Core", d.Sections[0].Project)
	assert.Equal(t, "Website", d.Sections[1].Project)
}

func TestTemplatesWrapBody(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain_header.txt"),
		[]byte("This is the {{title .ReportName}} update.\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain_footer.txt"),
		[]byte("Keep those bean counters running!\n"), 0644))

	w := testWindow()
	d, err := Assemble(testBucket(w), w, "analytics team", ScopeAll, FormatPlain, NewTemplates(dir))
	require.NoError(t, err)

	assert.True(t, len(d.Body) > 0)
	assert.Contains(t, d.Body, "This is the Analytics Team update.\n")
	assert.Contains(t, d.Body, "Keep those bean counters running!\n")
	// Header before body, footer after.
	assert.Less(t,
		strings.Index(d.Body, "Analytics Team update"),
		strings.Index(d.Body, "Ship X"))
	assert.Greater(t,
		strings.Index(d.Body, "bean counters"),
		strings.Index(d.Body, "Ship X"))
}

func TestTemplatesMissingFilesAreEmptyFragments(t *testing.T) {
	tmpl := NewTemplates(t.TempDir())
	header, footer, err := tmpl.Load(FormatPlain, Meta{ReportName: "x"})
	require.NoError(t, err)
	assert.Empty(t, header)
	assert.Empty(t, footer)
}

func TestTemplatesBadSyntaxIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain_header.txt"),
		[]byte("{{.Broken"), 0644))

	_, _, err := NewTemplates(dir).Load(FormatPlain, Meta{})
	assert.Error(t, err)
}
