package main

import (
	"context"
	"errors"

	docmap "github.com/alnah/go-docmap"
	"github.com/alnah/go-docmap/internal/analyze"
	"github.com/alnah/go-docmap/internal/config"
	"github.com/alnah/go-docmap/internal/hints"
)

// hintFor returns remediation text for errors with a known fix, formatted
// for appending to the printed error. Unrecognized errors get no hint.
func hintFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, docmap.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, analyze.ErrNoAPIKey),
		errors.Is(err, analyze.ErrAnalysisFailed):
		return hints.ForAnalysisAuth()
	case errors.Is(err, docmap.ErrPageLoad),
		errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound()
	case errors.Is(err, docmap.ErrWriteOutput):
		return hints.ForOutputDirectory()
	case errors.Is(err, docmap.ErrNoContent):
		return hints.ForNoContent()
	}
	return ""
}
