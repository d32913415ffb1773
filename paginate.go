package docmap

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"codeberg.org/go-pdf/fpdf"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/alnah/go-docmap/internal/layout"
)

// blockResult is the capture outcome for one panel: a raster on success,
// the contained error otherwise.
type blockResult struct {
	Raster *Raster
	Err    error
}

// sectionResult carries a section's captured panels in board order. A nil
// panel means the section never had that block.
type sectionResult struct {
	Index   int
	Text    *blockResult
	Diagram *blockResult
}

// Inline failure marker styling. Markers always render the same way
// regardless of surrounding content.
const (
	markerFont     = "Helvetica"
	markerStyle    = "I"
	markerFontSize = 9.0
	// Baseline offset inside the marker's reserved vertical advance.
	markerBaseline = 6.0
)

// Warning color for failure markers (brick red).
const (
	markerColorR = 200
	markerColorG = 60
	markerColorB = 30
)

// Footer styling for the "page i of N" line.
const (
	footerFontSize = 8.0
	footerGray     = 120
)

// Separator rule color.
const separatorGray = 180

// maxRasterWidthPx caps the pixel width of embedded rasters. High-fidelity
// captures of wide panels can exceed this; they are downsampled before
// embedding to keep the output small. The placed size is unaffected: it is
// computed from the pre-guard aspect ratio, which downsampling preserves.
const maxRasterWidthPx = 2400

// assembler lays captured rasters onto A4 pages with deterministic breaks,
// inline failure markers, section separators, and a second-pass footer.
type assembler struct {
	logger *zap.Logger
}

func newAssembler(logger *zap.Logger) *assembler {
	return &assembler{logger: logger}
}

// assemble builds the final document from per-section capture results.
// Returns the PDF bytes, the page count, and the marker lines that were
// placed for failed blocks.
func (a *assembler) assemble(title string, sections []sectionResult) (pdf []byte, pages int, markers []string, err error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	cursor := layout.NewCursor()

	for si, sec := range sections {
		if sec.Text != nil {
			m, perr := a.placeBlock(doc, cursor, sec.Index, BlockText, sec.Text)
			if perr != nil {
				return nil, 0, nil, perr
			}
			if m != "" {
				markers = append(markers, m)
			}
			cursor.Advance(layout.TextGap)
		}
		if sec.Diagram != nil {
			m, perr := a.placeBlock(doc, cursor, sec.Index, BlockDiagram, sec.Diagram)
			if perr != nil {
				return nil, 0, nil, perr
			}
			if m != "" {
				markers = append(markers, m)
			}
			cursor.Advance(layout.DiagramGap)
		}

		if si < len(sections)-1 {
			a.separator(doc, cursor)
		}
	}

	a.footers(doc)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	return buf.Bytes(), doc.PageCount(), markers, nil
}

// placeBlock places a raster, or an inline marker when the capture failed.
// Returns the marker text when one was drawn.
func (a *assembler) placeBlock(doc *fpdf.Fpdf, cursor *layout.Cursor, section int, kind BlockKind, block *blockResult) (string, error) {
	if block.Err != nil {
		marker := fmt.Sprintf("[capture failed: section %d %s]", section, kind)
		y := a.advance(doc, cursor, layout.MarkerAdvance)
		doc.SetFont(markerFont, markerStyle, markerFontSize)
		doc.SetTextColor(markerColorR, markerColorG, markerColorB)
		doc.Text(layout.Margin, y+markerBaseline, marker)
		a.logger.Warn("placed failure marker",
			zap.Int("section", section),
			zap.String("block", string(kind)),
			zap.Error(block.Err))
		return marker, nil
	}
	return "", a.placeRaster(doc, cursor, section, kind, block.Raster)
}

// placeRaster embeds one raster at full content width. The break decision
// uses the scaled height; oversized rasters land whole on a fresh page and
// overflow the bottom silently.
func (a *assembler) placeRaster(doc *fpdf.Fpdf, cursor *layout.Cursor, section int, kind BlockKind, r *Raster) error {
	h := layout.ScaledHeight(float64(r.Width), float64(r.Height))
	if h <= 0 {
		return fmt.Errorf("%w: section %d %s: degenerate raster %dx%d", ErrAssembly, section, kind, r.Width, r.Height)
	}

	data, err := capWidth(r.Data, r.Width)
	if err != nil {
		return fmt.Errorf("%w: section %d %s: %v", ErrAssembly, section, kind, err)
	}

	y := a.advance(doc, cursor, h)

	name := fmt.Sprintf("sec%d-%s", section, kind)
	doc.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
	doc.ImageOptions(name, layout.Margin, y, layout.ContentWidth, h, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	if doc.Err() {
		return fmt.Errorf("%w: section %d %s: %v", ErrAssembly, section, kind, doc.Error())
	}
	return nil
}

// advance moves the cursor for an element of the given height, mirroring
// any page break into the document, and returns the placement y.
func (a *assembler) advance(doc *fpdf.Fpdf, cursor *layout.Cursor, h float64) float64 {
	_, y, broke := cursor.Place(h)
	if broke {
		doc.AddPage()
	}
	return y
}

// separator draws a thin centered rule between sections when there is room
// for one plus a sliver of the next section; otherwise it breaks the page
// and draws nothing.
func (a *assembler) separator(doc *fpdf.Fpdf, cursor *layout.Cursor) {
	if !cursor.FitsSeparator() {
		cursor.Break()
		doc.AddPage()
		return
	}
	y := cursor.Y() + layout.SeparatorAdvance/2
	doc.SetDrawColor(separatorGray, separatorGray, separatorGray)
	doc.SetLineWidth(layout.SeparatorWidth)
	doc.Line(layout.Margin+layout.SeparatorInset, y, layout.PageWidth-layout.Margin-layout.SeparatorInset, y)
	cursor.Advance(layout.SeparatorAdvance)
}

// footers writes the centered "page i of N" line on every page. The total
// is unknowable during content placement, so this is a second pass over
// the finished pages.
func (a *assembler) footers(doc *fpdf.Fpdf) {
	n := doc.PageCount()
	doc.SetFont(markerFont, "", footerFontSize)
	doc.SetTextColor(footerGray, footerGray, footerGray)
	for i := 1; i <= n; i++ {
		doc.SetPage(i)
		s := fmt.Sprintf("page %d of %d", i, n)
		w := doc.GetStringWidth(s)
		doc.Text((layout.PageWidth-w)/2, layout.FooterY, s)
	}
	doc.SetPage(n)
}

// capWidth downsamples rasters wider than maxRasterWidthPx with Catmull-Rom
// resampling. Narrower rasters pass through untouched.
func capWidth(data []byte, widthPx int) ([]byte, error) {
	if widthPx <= maxRasterWidthPx {
		return data, nil
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding raster for downsample: %w", err)
	}
	b := src.Bounds()
	newW := maxRasterWidthPx
	newH := b.Dy() * newW / b.Dx()
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding downsampled raster: %w", err)
	}
	return buf.Bytes(), nil
}
