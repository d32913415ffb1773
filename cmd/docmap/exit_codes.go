package main

import (
	"errors"
	"os"

	docmap "github.com/alnah/go-docmap"
	"github.com/alnah/go-docmap/internal/analyze"
	"github.com/alnah/go-docmap/internal/board"
	"github.com/alnah/go-docmap/internal/config"
	"github.com/alnah/go-docmap/internal/dateutil"
	"github.com/alnah/go-docmap/internal/extract"
)

// Exit codes for the docmap CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Successful export
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or input validation
	ExitIO       = 3 // File not found, permission denied
	ExitBrowser  = 4 // Browser/Chrome errors
	ExitAnalysis = 5 // Page analysis errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Analysis errors (exit 5)
	if errors.Is(err, analyze.ErrNoAPIKey) ||
		errors.Is(err, analyze.ErrAnalysisFailed) ||
		errors.Is(err, analyze.ErrBadResponse) ||
		errors.Is(err, analyze.ErrEmptyPage) {
		return ExitAnalysis
	}

	// Browser errors (exit 4)
	if errors.Is(err, docmap.ErrBrowserConnect) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, extract.ErrOpen) ||
		errors.Is(err, docmap.ErrWriteOutput) ||
		errors.Is(err, ErrReadBoard) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, docmap.ErrEmptyBoard) ||
		errors.Is(err, docmap.ErrInvalidAction) ||
		errors.Is(err, docmap.ErrMissingOutputPath) ||
		errors.Is(err, docmap.ErrNoContent) ||
		errors.Is(err, docmap.ErrContainerNotFound) ||
		errors.Is(err, extract.ErrMalformed) ||
		errors.Is(err, extract.ErrNoText) ||
		errors.Is(err, board.ErrNoSections) ||
		errors.Is(err, dateutil.ErrInvalidDateFormat) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, ErrBinaryBatch) ||
		errors.Is(err, ErrOutputConflict) {
		return ExitUsage
	}

	return ExitGeneral
}
