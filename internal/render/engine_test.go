package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitegen/internal/content"
)

const testLayout = `<!DOCTYPE html>
<html>
<head><title>{{.Page.Title}} | {{.Site.Title}}</title></head>
<body>
{{template "nav.html" .}}
<main>{{.Page.Body}}</main>
<footer>{{.Site.Generator}}{{with .Site.Revision}} ({{.}}){{end}}</footer>
</body>
</html>
`

const testNavPartial = `<nav>{{range .Site.Pages}}<a href="/{{.OutputPath}}">{{.Title}}</a>{{end}}</nav>`

func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.html"), []byte(testLayout), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "partials"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partials", "nav.html"), []byte(testNavPartial), 0644))
	return dir
}

func testSite(pages ...*content.Page) *SiteContext {
	return &SiteContext{
		Title:     "Test Site",
		Generator: "sitegen dev",
		Revision:  "abc1234",
		Pages:     pages,
	}
}

// findElements collects all element nodes with the given tag name.
func findElements(t *testing.T, doc string, tag string) []*html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func TestNewEngine_MissingDirectory_Errors(t *testing.T) {
	_, err := NewEngine(filepath.Join(t.TempDir(), "absent"), "base.html")
	require.Error(t, err)
}

func TestNewEngine_NoTemplates_Errors(t *testing.T) {
	_, err := NewEngine(t.TempDir(), "base.html")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no .html templates")
}

func TestNewEngine_MissingBase_Errors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.html"), []byte("x"), 0644))

	_, err := NewEngine(dir, "base.html")
	require.Error(t, err)
	require.Contains(t, err.Error(), "base template")
}

func TestRender_FullDocument(t *testing.T) {
	engine, err := NewEngine(writeTemplates(t), "base.html")
	require.NoError(t, err)

	page := &content.Page{
		Meta:       content.Meta{"title": "Home"},
		Body:       "<h1>Hi</h1>",
		OutputPath: "index.html",
	}

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, testSite(page), page))
	doc := buf.String()

	require.Contains(t, doc, "<title>Home | Test Site</title>")
	require.Contains(t, doc, "<h1>Hi</h1>", "pre-rendered body must not be re-escaped")
	require.Contains(t, doc, "sitegen dev (abc1234)")

	mains := findElements(t, doc, "main")
	require.Len(t, mains, 1)
}

func TestRender_NavigationListsForest(t *testing.T) {
	engine, err := NewEngine(writeTemplates(t), "base.html")
	require.NoError(t, err)

	home := &content.Page{Meta: content.Meta{"title": "Home"}, OutputPath: "index.html"}
	about := &content.Page{Meta: content.Meta{"title": "About"}, OutputPath: "about.html"}

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, testSite(home, about), home))

	anchors := findElements(t, buf.String(), "a")
	require.Len(t, anchors, 2)
	var hrefs []string
	for _, a := range anchors {
		for _, attr := range a.Attr {
			if attr.Key == "href" {
				hrefs = append(hrefs, attr.Val)
			}
		}
	}
	require.Equal(t, []string{"/index.html", "/about.html"}, hrefs)
}

func TestRender_DeterministicForFixedInputs(t *testing.T) {
	engine, err := NewEngine(writeTemplates(t), "base.html")
	require.NoError(t, err)

	page := &content.Page{Body: "<p>x</p>", OutputPath: "x.html"}
	site := testSite(page)

	var first, second bytes.Buffer
	require.NoError(t, engine.Render(&first, site, page))
	require.NoError(t, engine.Render(&second, site, page))
	require.Equal(t, first.String(), second.String())
}

func TestRender_ExecutionFailure_WrapsErrRender(t *testing.T) {
	dir := t.TempDir()
	layout := `{{template "gone" .}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.html"), []byte(layout), 0644))

	engine, err := NewEngine(dir, "base.html")
	require.NoError(t, err)

	page := &content.Page{SourcePath: "content/x.md", OutputPath: "x.html"}
	err = engine.Render(&bytes.Buffer{}, testSite(page), page)
	require.ErrorIs(t, err, ErrRender)
	require.Contains(t, err.Error(), "content/x.md")
}
