package docmap

import (
	"errors"
	"fmt"
)

// Sentinel errors for library operations.
var (
	// Request validation errors.
	ErrEmptyBoard        = errors.New("board HTML cannot be empty")
	ErrInvalidAction     = errors.New("invalid export action")
	ErrMissingOutputPath = errors.New("output path required for save-to-disk")
	ErrInvalidLadder     = errors.New("invalid capture ladder")

	// Pre-flight errors. These fail the whole export before any block
	// is rasterized.
	ErrContainerNotFound = errors.New("board container not found")
	ErrNoContent         = errors.New("board has no capturable sections")

	// Browser plumbing errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load board page")

	// Per-block capture errors. Contained as inline markers in the output
	// document, never returned from Export.
	ErrRenderTimeout      = errors.New("block render timed out")
	ErrRenderFailure      = errors.New("block render failed")
	ErrBlockNotCapturable = errors.New("block not capturable")

	// Font gate exhaustion. Non-fatal: the export proceeds with whatever
	// glyphs the surface has.
	ErrFontGateTimeout = errors.New("font readiness gate timed out")

	// Assembly and delivery errors.
	ErrAssembly    = errors.New("document assembly failed")
	ErrWriteOutput = errors.New("writing output failed")

	// ErrPoolClosed is returned by ExporterPool.Acquire after Close.
	ErrPoolClosed = errors.New("exporter pool is closed")
)

// RenderTimeoutError reports that every rung of the quality ladder ran out
// of budget for one block. It matches ErrRenderTimeout via errors.Is and
// carries the last underlying cause.
type RenderTimeoutError struct {
	Section int
	Block   BlockKind
	Rungs   int
	Cause   error
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("section %d %s: render timed out after %d rungs: %v", e.Section, e.Block, e.Rungs, e.Cause)
}

func (e *RenderTimeoutError) Unwrap() error { return e.Cause }

func (e *RenderTimeoutError) Is(target error) bool { return target == ErrRenderTimeout }

// RenderFailureError reports that every rung of the quality ladder failed
// with a renderer fault for one block. It matches ErrRenderFailure via
// errors.Is and carries the last underlying cause.
type RenderFailureError struct {
	Section int
	Block   BlockKind
	Rungs   int
	Cause   error
}

func (e *RenderFailureError) Error() string {
	return fmt.Sprintf("section %d %s: render failed after %d rungs: %v", e.Section, e.Block, e.Rungs, e.Cause)
}

func (e *RenderFailureError) Unwrap() error { return e.Cause }

func (e *RenderFailureError) Is(target error) bool { return target == ErrRenderFailure }
