package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	docmap "github.com/alnah/go-docmap"
	"github.com/alnah/go-docmap/internal/analyze"
	"github.com/alnah/go-docmap/internal/config"
)

func TestHintFor(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ROD_BROWSER_BIN", "")

	tests := []struct {
		name string
		err  error
		want string // substring the hint must contain; empty means no hint
	}{
		{"nil error", nil, ""},
		{"unknown error", errors.New("boom"), ""},
		{"browser connect", docmap.ErrBrowserConnect, "ROD_BROWSER_BIN"},
		{"missing api key", analyze.ErrNoAPIKey, "GEMINI_API_KEY"},
		{"analysis exhausted", analyze.ErrAnalysisFailed, "GEMINI_API_KEY"},
		{"page load", docmap.ErrPageLoad, "--timeout"},
		{"deadline", context.DeadlineExceeded, "--timeout"},
		{"config missing", config.ErrConfigNotFound, "--config"},
		{"write output", docmap.ErrWriteOutput, "writable"},
		{"no content", docmap.ErrNoContent, "no eligible sections"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hintFor(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("hintFor(%v) = %q, want no hint", tt.err, got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("hintFor(%v) = %q, want substring %q", tt.err, got, tt.want)
			}
			if !strings.HasPrefix(got, "\n  hint: ") {
				t.Errorf("hintFor(%v) = %q, not hint-formatted", tt.err, got)
			}
		})
	}
}

// Hints survive the wrapping every call site applies.
func TestHintFor_Wrapped(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	err := fmt.Errorf("analyzing page 2: %w",
		fmt.Errorf("%w: 3 attempts: %w", analyze.ErrAnalysisFailed, errors.New("503")))
	if got := hintFor(err); !strings.Contains(got, "GEMINI_API_KEY") {
		t.Errorf("hintFor(wrapped analysis) = %q, want GEMINI_API_KEY hint", got)
	}
}
