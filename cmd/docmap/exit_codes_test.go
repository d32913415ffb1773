package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	docmap "github.com/alnah/go-docmap"
	"github.com/alnah/go-docmap/internal/analyze"
	"github.com/alnah/go-docmap/internal/board"
	"github.com/alnah/go-docmap/internal/config"
	"github.com/alnah/go-docmap/internal/extract"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, ExitSuccess},
		{"unknown error is general", errors.New("boom"), ExitGeneral},
		{"analysis failed", analyze.ErrAnalysisFailed, ExitAnalysis},
		{"missing api key", analyze.ErrNoAPIKey, ExitAnalysis},
		{"bad model response", analyze.ErrBadResponse, ExitAnalysis},
		{"browser connect", docmap.ErrBrowserConnect, ExitBrowser},
		{"file missing", os.ErrNotExist, ExitIO},
		{"document open", extract.ErrOpen, ExitIO},
		{"write output", docmap.ErrWriteOutput, ExitIO},
		{"no input", ErrNoInput, ExitIO},
		{"board read", ErrReadBoard, ExitIO},
		{"config missing", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"config value", config.ErrInvalidValue, ExitUsage},
		{"invalid action", docmap.ErrInvalidAction, ExitUsage},
		{"container missing", docmap.ErrContainerNotFound, ExitUsage},
		{"no capturable content", docmap.ErrNoContent, ExitUsage},
		{"malformed document", extract.ErrMalformed, ExitUsage},
		{"document with no text", extract.ErrNoText, ExitUsage},
		{"empty board document", board.ErrNoSections, ExitUsage},
		{"bad extension", ErrInvalidExtension, ExitUsage},
		{"bad timeout", ErrInvalidTimeout, ExitUsage},
		{"binary with batch", ErrBinaryBatch, ExitUsage},
		{"output conflict", ErrOutputConflict, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// Wrapped errors must keep their exit codes: every call site wraps with %w.
func TestExitCodeFor_Wrapped(t *testing.T) {
	err := fmt.Errorf("analyzing page 3: %w",
		fmt.Errorf("%w: 3 attempts: %w", analyze.ErrAnalysisFailed, errors.New("503")))
	if got := exitCodeFor(err); got != ExitAnalysis {
		t.Errorf("exitCodeFor(wrapped analysis) = %d, want %d", got, ExitAnalysis)
	}

	err = fmt.Errorf("loading config: %w", fmt.Errorf("%w: docmap.yaml", config.ErrConfigNotFound))
	if got := exitCodeFor(err); got != ExitUsage {
		t.Errorf("exitCodeFor(wrapped config) = %d, want %d", got, ExitUsage)
	}
}
