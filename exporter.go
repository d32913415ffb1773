package docmap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Exporter turns a rendered board document into a paginated PDF.
// Create with New(), run exports with Export(), and Close() when done.
// An Exporter is not safe for concurrent use; see ExporterPool for
// parallel workloads.
type Exporter struct {
	cfg     exporterConfig
	logger  *zap.Logger
	surface boardSurface
	gate    *fontGate
	capture *captureOrchestrator
	asm     *assembler
}

// New creates an Exporter with default configuration.
// Use options to customize behavior (e.g., WithLadder, WithFontFamily,
// WithProgress). The browser is launched lazily on first export.
func New(opts ...Option) (*Exporter, error) {
	e := &Exporter{
		cfg: exporterConfig{
			ladder:       DefaultLadder(),
			settleDelay:  defaultSettleDelay,
			gateRounds:   defaultGateRounds,
			gateInterval: defaultGateInterval,
			pageTimeout:  defaultPageTimeout,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.gate = newFontGate(e.cfg.gateRounds, e.cfg.gateInterval, e.logger)
	e.capture = newCaptureOrchestrator(e.cfg, e.logger)
	e.asm = newAssembler(e.logger)

	// Create display surface if not injected (e.g., by tests)
	if e.surface == nil {
		e.surface = newRodSurface(e.cfg.browserBin, e.cfg.pageTimeout, e.logger)
	}

	return e, nil
}

// Export runs the full pipeline: load the board, wait for fonts, capture
// each section's blocks, assemble the pages, and deliver the document.
// Blocks that exhaust the quality ladder are replaced by inline markers
// and reported in Result.FailedBlocks; they do not fail the export.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (e *Exporter) Export(ctx context.Context, req Request) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	prog := newProgressReporter(e.cfg.progress, e.logger)
	prog.report(PhasePrepare, 0)

	board, err := e.surface.LoadBoard(ctx, req.BoardHTML)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := board.Close(); cerr != nil {
			e.logger.Debug("closing board page", zap.Error(cerr))
		}
	}()

	if err := board.FindContainer(ctx); err != nil {
		return nil, err
	}

	// Discovery precedes the font gate: an empty board must fail before
	// any polling rounds are spent on it.
	sections, err := board.Sections(ctx)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, ErrNoContent
	}
	e.logger.Debug("board sections discovered", zap.Int("count", len(sections)))
	prog.report(PhasePrepare, 5)

	// Font readiness is best effort: exhausting the gate degrades the
	// output, it does not abort the export.
	if err := e.gate.Await(ctx, board.FontHost(), e.cfg.fontFamily); err != nil {
		if !errors.Is(err, ErrFontGateTimeout) {
			return nil, err
		}
		e.logger.Warn("font gate exhausted, capturing with fallback fonts",
			zap.String("family", e.cfg.fontFamily), zap.Error(err))
	}
	prog.report(PhaseFonts, 10)

	results, err := e.captureSections(ctx, sections, prog)
	if err != nil {
		return nil, err
	}

	prog.report(PhaseAssemble, 80)
	pdf, pages, markers, err := e.asm.assemble(req.Title, results)
	if err != nil {
		return nil, err
	}
	prog.report(PhaseAssemble, 95)

	res, err := dispatch(req, pdf, pages, markers)
	if err != nil {
		return nil, err
	}
	prog.report(PhaseDeliver, 100)

	e.logger.Debug("export complete",
		zap.Int("pages", pages), zap.Int("failedBlocks", len(markers)))
	return res, nil
}

// captureSections rasterizes every block strictly in document order.
// Capture failures that exhausted the ladder are contained in the
// section results; anything else aborts the export.
func (e *Exporter) captureSections(ctx context.Context, sections []boardSection, prog *progressReporter) ([]sectionResult, error) {
	total := 0
	for _, sec := range sections {
		if sec.Text != nil {
			total++
		}
		if sec.Diagram != nil {
			total++
		}
	}

	results := make([]sectionResult, 0, len(sections))
	done := 0
	for _, sec := range sections {
		sr := sectionResult{Index: sec.Index}

		if sec.Text != nil {
			br, err := e.captureBlock(ctx, sec.Text, sec.Index, BlockText)
			if err != nil {
				return nil, err
			}
			sr.Text = br
			done++
			prog.report(PhaseCapture, scaled(10, 80, done, total))
		}

		if sec.Diagram != nil {
			br, err := e.captureBlock(ctx, sec.Diagram, sec.Index, BlockDiagram)
			if err != nil {
				return nil, err
			}
			sr.Diagram = br
			done++
			prog.report(PhaseCapture, scaled(10, 80, done, total))
		}

		results = append(results, sr)
	}
	return results, nil
}

// captureBlock runs one block through the quality ladder, converting
// contained failures into a block result carrying the error.
func (e *Exporter) captureBlock(ctx context.Context, target captureTarget, section int, kind BlockKind) (*blockResult, error) {
	raster, err := e.capture.capture(ctx, target, section, kind)
	if err != nil {
		if !containable(err) {
			return nil, err
		}
		return &blockResult{Err: err}, nil
	}
	return &blockResult{Raster: raster}, nil
}

// containable reports whether a capture error is absorbed as an inline
// marker. Context cancellation is deliberately not containable, even
// though an exhausted rung's cause chain may reach a deadline error.
func containable(err error) bool {
	var timeoutErr *RenderTimeoutError
	var failureErr *RenderFailureError
	return errors.As(err, &timeoutErr) ||
		errors.As(err, &failureErr) ||
		errors.Is(err, ErrBlockNotCapturable)
}

// Close releases resources (headless Chrome browser).
func (e *Exporter) Close() error {
	if e.surface != nil {
		return e.surface.Close()
	}
	return nil
}

// validateRequest checks that required fields are present and valid.
//
// This is a TRUST BOUNDARY for direct library users who build Request
// manually. CLI users have their flags validated earlier; both paths
// converge here before any browser work starts.
func (e *Exporter) validateRequest(req Request) error {
	if req.BoardHTML == "" {
		return ErrEmptyBoard
	}
	if !req.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}
	if req.Action == ActionSave && req.OutputPath == "" {
		return ErrMissingOutputPath
	}
	return nil
}
