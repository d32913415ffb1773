// Package extract pulls ordered page text out of PDF documents. It exists
// so the analyzer can work from plain text; layout beyond reading order is
// discarded.
package extract

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"rsc.io/pdf"
)

var (
	ErrOpen      = errors.New("cannot open document")
	ErrMalformed = errors.New("malformed document")
	ErrNoText    = errors.New("document contains no extractable text")
)

// Page is one page's worth of text in reading order. Number is 1-based and
// matches the document, so pages that yielded no text keep their slot.
type Page struct {
	Number int
	Text   string
}

// lineTolerance is the vertical window (in text-space points) within which
// glyphs count as sharing a baseline.
const lineTolerance = 2.0

// Extract reads every page of the PDF at path. Pages whose content streams
// are broken contribute empty text instead of failing the document; only a
// document with no text at all is an error.
func Extract(path string) ([]Page, error) {
	f, err := os.Open(path) // #nosec G304 -- document path is user-provided
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	reader, err := newReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	pages := make([]Page, 0, reader.NumPage())
	hasText := false
	for i := 1; i <= reader.NumPage(); i++ {
		text := pageText(reader.Page(i))
		if text != "" {
			hasText = true
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	if !hasText {
		return nil, fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return pages, nil
}

// newReader contains the parser's panics; rsc.io/pdf panics on some
// malformed cross-reference tables instead of returning an error.
func newReader(f *os.File, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading document structure: %v", r)
		}
	}()
	return pdf.NewReader(f, size)
}

// pageText assembles one page's glyphs into lines. Content() panics on
// broken content streams; such pages yield empty text.
func pageText(p pdf.Page) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	if p.V.IsNull() {
		return ""
	}
	lines := assembleLines(p.Content().Text)
	return strings.Join(lines, "\n")
}

// assembleLines clusters glyphs by baseline (top of page first) and orders
// each cluster left to right. A space is inserted where the horizontal gap
// between neighbors exceeds what kerning explains, recovering word breaks
// from PDFs that position words instead of writing space glyphs.
func assembleLines(glyphs []pdf.Text) []string {
	if len(glyphs) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y // PDF origin is bottom-left
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []string
	var line []pdf.Text
	baseline := sorted[0].Y

	flush := func() {
		if s := joinLine(line); s != "" {
			lines = append(lines, s)
		}
		line = line[:0]
	}

	for _, g := range sorted {
		if baseline-g.Y > lineTolerance {
			flush()
			baseline = g.Y
		}
		line = append(line, g)
	}
	flush()

	return lines
}

// joinLine merges one baseline's glyphs, left to right.
func joinLine(line []pdf.Text) string {
	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	var b strings.Builder
	for i, g := range line {
		if i > 0 {
			prev := line[i-1]
			if gap := g.X - (prev.X + prev.W); gap > spaceGap(prev.FontSize) &&
				!strings.HasSuffix(b.String(), " ") && g.S != " " {
				b.WriteString(" ")
			}
		}
		b.WriteString(g.S)
	}
	return strings.TrimSpace(b.String())
}

// spaceGap is the horizontal slack attributable to kerning at a font size.
// Anything wider reads as a word break.
func spaceGap(fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = 10
	}
	return 0.3 * fontSize
}
