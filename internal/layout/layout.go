// Package layout implements the page-break arithmetic for board exports.
// All values are logical page units (millimeters on A4). The package is
// pure math so the placement rules can be tested without a PDF writer.
package layout

// A4 portrait geometry. The margin applies to all four sides.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 10.0

	// ContentWidth is the horizontal space available to a raster.
	ContentWidth = PageWidth - 2*Margin

	// FooterY is the baseline of the centered page-number line, below the
	// content area.
	FooterY = 292.0
)

// Vertical advances between placed elements.
const (
	TextGap       = 4.0
	DiagramGap    = 6.0
	MarkerAdvance = 10.0
)

// Section separator rule.
const (
	// SeparatorMinSpace is the room required to draw a separator instead
	// of breaking to a new page.
	SeparatorMinSpace = 18.0
	SeparatorAdvance  = 8.0
	SeparatorInset    = 30.0
	SeparatorWidth    = 0.2
)

// ScaledHeight returns the placed height of a raster normalized to the
// content width. Aspect ratio is preserved; rasters are never cropped or
// split. Returns 0 for degenerate raster dimensions.
func ScaledHeight(rasterW, rasterH float64) float64 {
	if rasterW <= 0 || rasterH <= 0 {
		return 0
	}
	return rasterH * ContentWidth / rasterW
}

// Cursor tracks the vertical write position across pages. Placement is
// top-down, one column, no reflow.
type Cursor struct {
	y    float64
	page int
}

// NewCursor returns a cursor at the top of page 1.
func NewCursor() *Cursor {
	return &Cursor{y: Margin, page: 1}
}

// Y returns the current vertical position on the current page.
func (c *Cursor) Y() float64 { return c.y }

// Page returns the current 1-based page number.
func (c *Cursor) Page() int { return c.page }

// Remaining returns the vertical space left above the bottom margin.
// Negative when an oversized element has already overflowed the page.
func (c *Cursor) Remaining() float64 {
	return (PageHeight - Margin) - c.y
}

// AtTop reports whether nothing has been placed on the current page.
func (c *Cursor) AtTop() bool { return c.y <= Margin }

// Place positions an element of the given height under the break rule:
// break to a new page when the element would cross the bottom margin AND
// the page already holds content. An exact fit (element ends precisely on
// the bottom margin) stays on the page. An element taller than a whole
// page is placed at the top of a fresh page and overflows silently.
// Returns the page and y where the element was placed, and whether a page
// break occurred.
func (c *Cursor) Place(height float64) (page int, y float64, broke bool) {
	if c.y+height > PageHeight-Margin && !c.AtTop() {
		c.Break()
		broke = true
	}
	page, y = c.page, c.y
	c.y += height
	return page, y, broke
}

// Advance moves the cursor down without break checking. Gaps that run past
// the bottom are absorbed by the next Place.
func (c *Cursor) Advance(gap float64) {
	c.y += gap
}

// FitsSeparator reports whether a section separator can be drawn in the
// remaining space instead of forcing a page break.
func (c *Cursor) FitsSeparator() bool {
	return c.Remaining() >= SeparatorMinSpace
}

// Break starts a new page unconditionally.
func (c *Cursor) Break() {
	c.page++
	c.y = Margin
}
