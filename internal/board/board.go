// Package board composes the HTML review board that the capture engine
// loads. Analyzed pages become sections carrying a text panel and a
// tree diagram panel; the template, stylesheet, and diagram renderer
// ship embedded so a built board is a single self-contained document.
package board

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/bytedance/sonic"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/alnah/go-docmap/internal/dateutil"
)

//go:embed assets/board.html assets/board.css assets/tree.js
var assetsFS embed.FS

// ErrNoSections indicates the document carries nothing to lay out.
var ErrNoSections = errors.New("board has no sections")

// Node is one labeled node of a section's tree diagram.
type Node struct {
	Label    string  `json:"label"`
	Children []*Node `json:"children,omitempty"`
}

// Section is one board section. A section renders a text panel when it
// has a title or markdown, and a diagram panel when it has a tree.
// Excluded sections stay visible on the board but are skipped by the
// capture engine.
type Section struct {
	Title    string
	Markdown string
	Tree     *Node
	Exclude  bool
}

// Document is the input to Build.
type Document struct {
	Title string
	// Date is the raw date value: "auto", "auto:FORMAT", a literal
	// string, or empty for no date line.
	Date     string
	Sections []Section
}

// Builder renders Documents to board HTML.
type Builder struct {
	md    goldmark.Markdown
	tmpl  *template.Template
	css   template.CSS
	js    template.JS
	clock func() time.Time
}

// NewBuilder creates a Builder. It panics if the embedded assets are
// missing or unparsable, which only happens on a broken build.
func NewBuilder() *Builder {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &Builder{
		md:    md,
		tmpl:  template.Must(template.ParseFS(assetsFS, "assets/board.html")),
		css:   template.CSS(mustAsset("assets/board.css")),
		js:    template.JS(mustAsset("assets/tree.js")),
		clock: time.Now,
	}
}

func mustAsset(name string) string {
	data, err := assetsFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("board: embedded asset %s: %v", name, err))
	}
	return string(data)
}

type templateData struct {
	Title    string
	Date     string
	CSS      template.CSS
	JS       template.JS
	Sections []sectionData
}

type sectionData struct {
	Class    string
	Title    string
	Text     template.HTML
	TreeJSON string
	HasText  bool
	HasTree  bool
}

// Build renders doc to a complete HTML document. Sections with neither
// text nor tree are dropped; if nothing remains it returns
// ErrNoSections.
func (b *Builder) Build(ctx context.Context, doc Document) (string, error) {
	date, err := b.resolveDate(doc.Date)
	if err != nil {
		return "", err
	}

	data := templateData{
		Title: doc.Title,
		Date:  date,
		CSS:   b.css,
		JS:    b.js,
	}

	for i, section := range doc.Sections {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		sd, ok, err := b.renderSection(i, section)
		if err != nil {
			return "", err
		}
		if ok {
			data.Sections = append(data.Sections, sd)
		}
	}

	if len(data.Sections) == 0 {
		return "", ErrNoSections
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering board template: %w", err)
	}
	return buf.String(), nil
}

func (b *Builder) resolveDate(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	resolved, err := dateutil.ResolveDate(raw, b.clock())
	if err != nil {
		return "", fmt.Errorf("resolving board date: %w", err)
	}
	return resolved, nil
}

func (b *Builder) renderSection(index int, section Section) (sectionData, bool, error) {
	sd := sectionData{
		Class: "dm-section",
		Title: section.Title,
	}
	if section.Exclude {
		sd.Class = "dm-section dm-exclude"
	}

	if markdown := strings.TrimSpace(section.Markdown); markdown != "" {
		var buf bytes.Buffer
		if err := b.md.Convert([]byte(markdown), &buf); err != nil {
			return sectionData{}, false, fmt.Errorf("rendering section %d markdown: %w", index+1, err)
		}
		sd.Text = template.HTML(buf.String())
	}
	sd.HasText = sd.Title != "" || sd.Text != ""

	if section.Tree != nil {
		treeJSON, err := sonic.Marshal(section.Tree)
		if err != nil {
			return sectionData{}, false, fmt.Errorf("encoding section %d tree: %w", index+1, err)
		}
		sd.TreeJSON = string(treeJSON)
		sd.HasTree = true
	}

	if !sd.HasText && !sd.HasTree {
		return sectionData{}, false, nil
	}
	return sd, true, nil
}
