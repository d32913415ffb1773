package docmap

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Export actions.
const (
	// ActionSave writes the document to Request.OutputPath.
	ActionSave Action = "save-to-disk"
	// ActionBinary returns the document bytes in Result.PDF.
	ActionBinary Action = "return-binary"
)

// PDFMimeType is the MIME type attached to binary results.
const PDFMimeType = "application/pdf"

// Action selects what happens to the assembled document.
type Action string

// Valid reports whether the action is one of the known values.
func (a Action) Valid() bool {
	return a == ActionSave || a == ActionBinary
}

// ParseAction validates a user-supplied action string.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidAction, s, ActionSave, ActionBinary)
	}
	return a, nil
}

// BlockKind identifies which panel of a section a raster came from.
type BlockKind string

// Block kinds within a section.
const (
	BlockText    BlockKind = "text"
	BlockDiagram BlockKind = "diagram"
)

// CaptureRung is one step of the quality ladder: a fidelity multiplier and
// the time budget for rasterizing at that fidelity.
type CaptureRung struct {
	Fidelity float64
	Budget   time.Duration
}

// DefaultLadder returns the standard three-rung quality ladder. Fidelity
// degrades monotonically; each rung gets the same budget.
func DefaultLadder() []CaptureRung {
	return []CaptureRung{
		{Fidelity: 2.0, Budget: 60 * time.Second},
		{Fidelity: 1.0, Budget: 60 * time.Second},
		{Fidelity: 0.7, Budget: 60 * time.Second},
	}
}

// ValidateLadder checks ladder shape: non-empty, positive fidelities and
// budgets, and strictly decreasing fidelity so retries never upscale.
func ValidateLadder(ladder []CaptureRung) error {
	if len(ladder) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidLadder)
	}
	for i, r := range ladder {
		if r.Fidelity <= 0 {
			return fmt.Errorf("%w: rung %d fidelity %v must be positive", ErrInvalidLadder, i, r.Fidelity)
		}
		if r.Budget <= 0 {
			return fmt.Errorf("%w: rung %d budget %v must be positive", ErrInvalidLadder, i, r.Budget)
		}
		if i > 0 && r.Fidelity >= ladder[i-1].Fidelity {
			return fmt.Errorf("%w: rung %d fidelity %v must be lower than rung %d (%v)",
				ErrInvalidLadder, i, r.Fidelity, i-1, ladder[i-1].Fidelity)
		}
	}
	return nil
}

// Raster is one captured block image (PNG).
type Raster struct {
	Data     []byte
	Width    int // pixels
	Height   int // pixels
	Fidelity float64
}

// Request describes one export invocation.
type Request struct {
	BoardHTML  string // rendered board document (required)
	Title      string // document title metadata (optional)
	Action     Action // delivery mode (required)
	OutputPath string // destination file, required for ActionSave
}

// Result is the outcome of a successful export. Blocks that failed every
// quality rung appear as inline markers in the document and are listed in
// FailedBlocks; their presence does not make the export an error.
type Result struct {
	PDF          []byte // set for ActionBinary
	MIME         string // set for ActionBinary
	Path         string // set for ActionSave
	Pages        int
	FailedBlocks []string
}

// ProgressFunc receives phase transitions and a monotonic percentage in
// [0, 100]. Implementations must return quickly; the exporter calls it
// inline between pipeline steps.
type ProgressFunc func(phase string, percent int)

// Progress phase labels, in pipeline order.
const (
	PhasePrepare  = "prepare"
	PhaseFonts    = "fonts"
	PhaseCapture  = "capture"
	PhaseAssemble = "assemble"
	PhaseDeliver  = "deliver"
)

// Option configures an Exporter.
type Option func(*Exporter)

// exporterConfig holds internal configuration for Exporter.
type exporterConfig struct {
	ladder       []CaptureRung
	settleDelay  time.Duration
	gateRounds   int
	gateInterval time.Duration
	fontFamily   string
	pageTimeout  time.Duration
	browserBin   string
	progress     ProgressFunc
}

// Defaults used when no option overrides them.
const (
	defaultSettleDelay  = 300 * time.Millisecond
	defaultGateRounds   = 10
	defaultGateInterval = 500 * time.Millisecond
	defaultPageTimeout  = 30 * time.Second
)

// WithLadder replaces the quality ladder.
// Panics if the ladder is invalid (programmer error, similar to time.NewTicker).
func WithLadder(ladder []CaptureRung) Option {
	if err := ValidateLadder(ladder); err != nil {
		panic("docmap: " + err.Error())
	}
	rungs := make([]CaptureRung, len(ladder))
	copy(rungs, ladder)
	return func(e *Exporter) {
		e.cfg.ladder = rungs
	}
}

// WithSettleDelay sets the pause between quality rungs, giving the surface
// time to recover after a failed attempt. Zero disables the pause.
// Panics if d < 0.
func WithSettleDelay(d time.Duration) Option {
	if d < 0 {
		panic("docmap: WithSettleDelay duration must not be negative")
	}
	return func(e *Exporter) {
		e.cfg.settleDelay = d
	}
}

// WithFontGate sets the polling shape of the font readiness gate.
// Panics if rounds < 1 or interval <= 0.
func WithFontGate(rounds int, interval time.Duration) Option {
	if rounds < 1 {
		panic("docmap: WithFontGate rounds must be at least 1")
	}
	if interval <= 0 {
		panic("docmap: WithFontGate interval must be positive")
	}
	return func(e *Exporter) {
		e.cfg.gateRounds = rounds
		e.cfg.gateInterval = interval
	}
}

// WithFontFamily sets the font family the gate probes for and the capture
// orchestrator transiently applies to each block during rasterization.
// Empty disables both behaviors.
func WithFontFamily(family string) Option {
	return func(e *Exporter) {
		e.cfg.fontFamily = family
	}
}

// WithPageTimeout sets the budget for loading the board page.
// Panics if d <= 0.
func WithPageTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("docmap: WithPageTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.pageTimeout = d
	}
}

// WithBrowserBin sets an explicit Chrome/Chromium binary, overriding
// ROD_BROWSER_BIN and the managed download.
func WithBrowserBin(path string) Option {
	return func(e *Exporter) {
		e.cfg.browserBin = path
	}
}

// WithProgress registers a progress callback. A nil callback is ignored.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Exporter) {
		e.cfg.progress = fn
	}
}

// WithLogger sets the structured logger. A nil logger falls back to no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}
