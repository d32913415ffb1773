package extract

// Notes:
// - Extract: runs against real PDFs generated with fpdf, including broken
//   and text-free documents
// - assembleLines: pure-function tables for baseline clustering, X ordering,
//   and the word-break gap heuristic

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"rsc.io/pdf"
)

// makePDF writes a generated document to a temp file and returns its path.
func makePDF(t *testing.T, build func(doc *fpdf.Fpdf)) string {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	build(doc)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer f.Close()
	if err := doc.Output(f); err != nil {
		t.Fatalf("generating test PDF: %v", err)
	}
	return path
}

func TestExtract_SinglePage(t *testing.T) {
	path := makePDF(t, func(doc *fpdf.Fpdf) {
		doc.AddPage()
		doc.Text(20, 30, "Hello world")
	})

	pages, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(pages) != 1 {
		t.Fatalf("Extract() returned %d pages, want 1", len(pages))
	}
	if pages[0].Number != 1 {
		t.Errorf("Number = %d, want 1", pages[0].Number)
	}
	if pages[0].Text != "Hello world" {
		t.Errorf("Text = %q, want %q", pages[0].Text, "Hello world")
	}
}

func TestExtract_LinesTopDown(t *testing.T) {
	path := makePDF(t, func(doc *fpdf.Fpdf) {
		doc.AddPage()
		// Written bottom line first; extraction must order by position.
		doc.Text(20, 60, "second line")
		doc.Text(20, 30, "first line")
	})

	pages, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := "first line\nsecond line"
	if pages[0].Text != want {
		t.Errorf("Text = %q, want %q", pages[0].Text, want)
	}
}

func TestExtract_PageNumbersPreserved(t *testing.T) {
	path := makePDF(t, func(doc *fpdf.Fpdf) {
		doc.AddPage()
		doc.Text(20, 30, "page one")
		doc.AddPage() // no text
		doc.AddPage()
		doc.Text(20, 30, "page three")
	})

	pages, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(pages) != 3 {
		t.Fatalf("Extract() returned %d pages, want 3", len(pages))
	}
	for i, page := range pages {
		if page.Number != i+1 {
			t.Errorf("pages[%d].Number = %d, want %d", i, page.Number, i+1)
		}
	}
	if pages[1].Text != "" {
		t.Errorf("empty page text = %q, want empty", pages[1].Text)
	}
	if !strings.Contains(pages[2].Text, "page three") {
		t.Errorf("pages[2].Text = %q, want page three content", pages[2].Text)
	}
}

func TestExtract_NoText(t *testing.T) {
	path := makePDF(t, func(doc *fpdf.Fpdf) {
		doc.AddPage()
	})

	_, err := Extract(path)
	if !errors.Is(err, ErrNoText) {
		t.Errorf("Extract() error = %v, want ErrNoText", err)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "absent.pdf"))
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Extract() error = %v, want ErrOpen", err)
	}
}

func TestExtract_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("this is not a document"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := Extract(path)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Extract() error = %v, want ErrMalformed", err)
	}
}

// glyph builds a pdf.Text for assembleLines tests.
func glyph(s string, x, y, w float64) pdf.Text {
	return pdf.Text{Font: "Helvetica", FontSize: 12, X: x, Y: y, W: w, S: s}
}

func TestAssembleLines(t *testing.T) {
	tests := []struct {
		name   string
		glyphs []pdf.Text
		want   []string
	}{
		{
			name:   "empty input",
			glyphs: nil,
			want:   nil,
		},
		{
			name: "single run",
			glyphs: []pdf.Text{
				glyph("alpha", 100, 700, 30),
			},
			want: []string{"alpha"},
		},
		{
			name: "x order restored within a line",
			glyphs: []pdf.Text{
				glyph("beta", 150, 700, 30),
				glyph("alpha ", 100, 700, 50),
			},
			want: []string{"alpha beta"},
		},
		{
			name: "wide gap becomes a space",
			glyphs: []pdf.Text{
				glyph("left", 100, 700, 24),
				glyph("right", 140, 700, 30),
			},
			want: []string{"left right"},
		},
		{
			name: "kerning gap does not split",
			glyphs: []pdf.Text{
				glyph("data", 100, 700, 24),
				glyph("flow", 125, 700, 24),
			},
			want: []string{"dataflow"},
		},
		{
			name: "explicit space glyph not doubled",
			glyphs: []pdf.Text{
				glyph("one", 100, 700, 18),
				glyph(" ", 118, 700, 4),
				glyph("two", 122, 700, 18),
			},
			want: []string{"one two"},
		},
		{
			name: "baseline wobble stays one line",
			glyphs: []pdf.Text{
				glyph("steady", 100, 700, 36),
				glyph(" hand", 136, 698.5, 30),
			},
			want: []string{"steady hand"},
		},
		{
			name: "separate baselines split top down",
			glyphs: []pdf.Text{
				glyph("below", 100, 650, 30),
				glyph("above", 100, 700, 30),
			},
			want: []string{"above", "below"},
		},
		{
			name: "whitespace-only line dropped",
			glyphs: []pdf.Text{
				glyph("content", 100, 700, 42),
				glyph("   ", 100, 650, 12),
			},
			want: []string{"content"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assembleLines(tt.glyphs)
			if len(got) != len(tt.want) {
				t.Fatalf("assembleLines() = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
