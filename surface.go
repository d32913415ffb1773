package docmap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-docmap/internal/fileutil"
	"github.com/alnah/go-docmap/internal/process"
)

// boardSurface abstracts the display surface that renders board HTML.
type boardSurface interface {
	LoadBoard(ctx context.Context, boardHTML string) (loadedBoard, error)
	Close() error
}

// loadedBoard is one rendered board document open in the surface.
type loadedBoard interface {
	FindContainer(ctx context.Context) error
	Sections(ctx context.Context) ([]boardSection, error)
	FontHost() fontHost
	Close() error
}

// boardSection groups the capturable panels of one section. A nil panel
// means the section does not have that block.
type boardSection struct {
	Index   int
	Text    captureTarget
	Diagram captureTarget
}

// Compile-time interface checks
var (
	_ boardSurface  = (*rodSurface)(nil)
	_ loadedBoard   = (*rodBoard)(nil)
	_ captureTarget = (*rodTarget)(nil)
	_ fontHost      = (*rodFontHost)(nil)
)

// DOM anchors the board builder and the export engine agree on.
const (
	containerSelector = "#docmap-board"
	sectionSelector   = ".dm-section"
	textSelector      = ".dm-text"
	diagramSelector   = ".dm-diagram"
	excludeSelector   = ".dm-exclude"
	fontProbeID       = "docmap-font-probe"
)

// Surface viewport. Boards lay out at a fixed logical width so raster
// proportions do not depend on the host machine's display.
const (
	viewportWidth  = 1200
	viewportHeight = 900
)

// rodSurface drives a headless Chrome browser via go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodSurface struct {
	browser     *rod.Browser
	launch      *launcher.Launcher
	browserBin  string
	pageTimeout time.Duration
	logger      *zap.Logger
}

func newRodSurface(browserBin string, pageTimeout time.Duration, logger *zap.Logger) *rodSurface {
	return &rodSurface{browserBin: browserBin, pageTimeout: pageTimeout, logger: logger}
}

// ensureBrowser lazily launches and connects to the browser.
func (s *rodSurface) ensureBrowser() error {
	if s.browser != nil {
		return nil
	}

	l := launcher.New()

	// Explicit binary beats env beats the managed download.
	switch {
	case s.browserBin != "":
		l = l.Bin(s.browserBin)
	case os.Getenv("ROD_BROWSER_BIN") != "":
		l = l.Bin(os.Getenv("ROD_BROWSER_BIN"))
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	s.launch = l
	s.browser = browser
	return nil
}

// LoadBoard writes the board HTML to a temp file and opens it in a fresh
// page. The file:// load keeps relative behavior identical across runs.
func (s *rodSurface) LoadBoard(ctx context.Context, boardHTML string) (loadedBoard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.ensureBrowser(); err != nil {
		return nil, err
	}

	path, cleanup, err := fileutil.WriteTempFile(boardHTML, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "file://" + path})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	board := &rodBoard{page: page, cleanup: cleanup}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = board.Close()
		return nil, fmt.Errorf("%w: setting viewport: %v", ErrPageLoad, err)
	}

	// Wait for page to load with timeout from context or default
	timeout := s.pageTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			_ = board.Close()
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		_ = board.Close()
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// Check context after page load
	if err := ctx.Err(); err != nil {
		_ = board.Close()
		return nil, err
	}

	return board, nil
}

// Close releases browser resources. The process-group kill backstops
// launcher.Kill for child processes Chrome leaves behind.
func (s *rodSurface) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil

	if s.launch != nil {
		pid := s.launch.PID()
		s.launch.Kill()
		process.KillProcessGroup(pid)
		s.launch = nil
	}
	return err
}

// rodBoard is a loaded board page.
type rodBoard struct {
	page    *rod.Page
	cleanup func()
}

// FindContainer verifies the board container is present in the DOM.
func (b *rodBoard) FindContainer(ctx context.Context) error {
	has, _, err := b.page.Context(ctx).Has(containerSelector)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if !has {
		return fmt.Errorf("%w: selector %q", ErrContainerNotFound, containerSelector)
	}
	return nil
}

// Sections discovers the capturable sections in DOM order. Sections marked
// excluded or holding no panels are skipped; indexes number the kept
// sections from 1.
func (b *rodBoard) Sections(ctx context.Context) ([]boardSection, error) {
	els, err := b.page.Context(ctx).Elements(sectionSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: listing sections: %v", ErrPageLoad, err)
	}

	sections := make([]boardSection, 0, len(els))
	for _, el := range els {
		excluded, err := el.Context(ctx).Matches(excludeSelector)
		if err != nil {
			return nil, fmt.Errorf("%w: checking exclusion: %v", ErrPageLoad, err)
		}
		if excluded {
			continue
		}

		sec := boardSection{Index: len(sections) + 1}
		if sec.Text, err = b.panel(ctx, el, textSelector); err != nil {
			return nil, err
		}
		if sec.Diagram, err = b.panel(ctx, el, diagramSelector); err != nil {
			return nil, err
		}
		if sec.Text == nil && sec.Diagram == nil {
			continue
		}
		sections = append(sections, sec)
	}
	return sections, nil
}

// panel locates one capturable panel within a section. A panel carrying the
// exclusion marker is dropped even when its section is exported.
func (b *rodBoard) panel(ctx context.Context, section *rod.Element, selector string) (captureTarget, error) {
	ok, el, err := section.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: locating %s panel: %v", ErrPageLoad, selector, err)
	}
	if !ok {
		return nil, nil
	}
	excluded, err := el.Context(ctx).Matches(excludeSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: checking %s exclusion: %v", ErrPageLoad, selector, err)
	}
	if excluded {
		return nil, nil
	}
	return &rodTarget{el: el, page: b.page}, nil
}

func (b *rodBoard) FontHost() fontHost {
	return &rodFontHost{page: b.page}
}

func (b *rodBoard) Close() error {
	err := b.page.Close()
	if b.cleanup != nil {
		b.cleanup()
		b.cleanup = nil
	}
	return err
}

// rodTarget rasterizes one panel element through the CDP screenshot API.
type rodTarget struct {
	el   *rod.Element
	page *rod.Page
}

// Area measures the element's bounding box. Detached elements error out
// here, before any rung budget is spent.
func (t *rodTarget) Area(ctx context.Context) (float64, float64, error) {
	shape, err := t.el.Context(ctx).Shape()
	if err != nil {
		return 0, 0, fmt.Errorf("measuring block: %w", err)
	}
	box := shape.Box()
	if box == nil {
		return 0, 0, nil
	}
	return box.Width, box.Height, nil
}

// Shoot captures the element's box as PNG. Fidelity maps to the CDP clip
// scale: 2.0 doubles the raster's pixel density, 0.7 renders at 70%.
func (t *rodTarget) Shoot(ctx context.Context, fidelity float64) ([]byte, error) {
	el := t.el.Context(ctx)
	if err := el.ScrollIntoView(); err != nil {
		return nil, fmt.Errorf("scrolling block into view: %w", err)
	}

	shape, err := el.Shape()
	if err != nil {
		return nil, fmt.Errorf("measuring block: %w", err)
	}
	box := shape.Box()
	if box == nil || box.Width <= 0 || box.Height <= 0 {
		return nil, fmt.Errorf("block box vanished before capture")
	}

	res, err := proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      box.X,
			Y:      box.Y,
			Width:  box.Width,
			Height: box.Height,
			Scale:  fidelity,
		},
		FromSurface:           true,
		CaptureBeyondViewport: true,
	}.Call(t.page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("capturing block: %w", err)
	}
	return res.Data, nil
}

// PushFont overrides the element's font family for one rasterization
// attempt. The restore closure runs on the page's own context so it works
// after the rung deadline has expired.
func (t *rodTarget) PushFont(ctx context.Context, family string) (func(), error) {
	obj, err := t.el.Context(ctx).Eval(`(family) => {
		const prev = this.style.fontFamily || "";
		this.style.fontFamily = family;
		return prev;
	}`, family)
	if err != nil {
		return nil, fmt.Errorf("overriding font: %w", err)
	}
	prev := obj.Value.Str()
	return func() {
		_, _ = t.el.Eval(`(prev) => { this.style.fontFamily = prev; }`, prev)
	}, nil
}

// rodFontHost bridges the font readiness gate to the page.
type rodFontHost struct {
	page *rod.Page
}

func (h *rodFontHost) FontsReady(ctx context.Context) (bool, error) {
	obj, err := h.page.Context(ctx).Eval(`() => document.fonts.status === "loaded"`)
	if err != nil {
		return false, fmt.Errorf("querying font status: %w", err)
	}
	return obj.Value.Bool(), nil
}

func (h *rodFontHost) InsertProbe(ctx context.Context, family string) error {
	_, err := h.page.Context(ctx).Eval(`(id, family) => {
		const probe = document.createElement("div");
		probe.id = id;
		probe.style.cssText = "position:absolute;left:-9999px;top:0;visibility:hidden;font-size:24px";
		probe.style.fontFamily = family;
		probe.textContent = "AgMmWw0123";
		document.body.appendChild(probe);
	}`, fontProbeID, family)
	if err != nil {
		return fmt.Errorf("inserting font probe: %w", err)
	}
	return nil
}

func (h *rodFontHost) ProbeRendered(ctx context.Context) (bool, error) {
	obj, err := h.page.Context(ctx).Eval(`(id) => {
		const probe = document.getElementById(id);
		if (!probe) return false;
		const rect = probe.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}`, fontProbeID)
	if err != nil {
		return false, fmt.Errorf("measuring font probe: %w", err)
	}
	return obj.Value.Bool(), nil
}

func (h *rodFontHost) RemoveProbe(ctx context.Context) error {
	_, err := h.page.Context(ctx).Eval(`(id) => {
		const probe = document.getElementById(id);
		if (probe) probe.remove();
	}`, fontProbeID)
	if err != nil {
		return fmt.Errorf("removing font probe: %w", err)
	}
	return nil
}
