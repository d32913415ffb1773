// Package analyze turns raw page text into a titled, cleaned, outlined
// page analysis using a language model. The model is reached through the
// injected Generator handle; nothing in this package holds global state.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

var (
	ErrNoAPIKey       = errors.New("missing API key")
	ErrEmptyPage      = errors.New("page has no text to analyze")
	ErrBadResponse    = errors.New("model returned an unusable response")
	ErrAnalysisFailed = errors.New("page analysis failed")
)

// Generator is the injected model handle. The production implementation
// wraps the Gemini client; tests substitute scripted fakes.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// RetryConfig declares the retry policy as data. Attempts are observable
// through OnRetry, so callers can surface them without the analyzer
// knowing how.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts. Values below 1 mean
	// a single attempt.
	MaxAttempts int

	// BaseDelay scales linearly with the number of failures so far:
	// the pause before attempt n+1 is BaseDelay*n plus jitter.
	BaseDelay time.Duration

	// JitterRange is the upper bound of the random extra added to each
	// pause. Zero disables jitter.
	JitterRange time.Duration

	// OnRetry, if set, is called with the failed attempt's number and
	// error before the next attempt starts.
	OnRetry func(attempt int, err error)
}

// Node is one outline entry of a page's idea tree.
type Node struct {
	Label    string  `json:"label"`
	Children []*Node `json:"children,omitempty"`
}

// PageAnalysis is the model's strict-JSON answer for one page.
type PageAnalysis struct {
	Title     string `json:"title"`
	CleanText string `json:"clean_text"`
	Tree      *Node  `json:"tree"`
}

// Analyzer runs per-page analysis with retries.
type Analyzer struct {
	client Generator
	model  string
	retry  RetryConfig
	logger *zap.Logger
}

// New creates an Analyzer. The client and model are required; logger may
// be nil.
func New(client Generator, model string, retry RetryConfig, logger *zap.Logger) (*Analyzer, error) {
	if client == nil {
		return nil, fmt.Errorf("analyze: generator client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("analyze: model name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{client: client, model: model, retry: retry, logger: logger}, nil
}

const pageAnalysisPrompt = `You are a document analyst. Return ONLY valid JSON - no markdown code blocks, no explanations.

Given one page of extracted document text, produce:
{
  "title": "short page title",
  "clean_text": "the page text as markdown: fix hyphenation and hard line breaks, drop running headers/footers and page numbers, keep every idea",
  "tree": {"label": "page topic", "children": [{"label": "subtopic", "children": []}]}
}

RULES:
- title: at most 60 characters, no trailing punctuation
- clean_text: markdown, preserve the original wording
- tree: outline of the page's ideas, at most 3 levels deep
- Return ONLY the JSON object

PAGE TEXT:
%s`

// AnalyzePage analyzes one page of text. A malformed model response counts
// as a retryable failure; context cancellation does not. Exhausting the
// retry budget wraps the last cause in ErrAnalysisFailed.
func (a *Analyzer) AnalyzePage(ctx context.Context, pageText string) (*PageAnalysis, error) {
	if strings.TrimSpace(pageText) == "" {
		return nil, ErrEmptyPage
	}

	attempts := a.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	prompt := fmt.Sprintf(pageAnalysisPrompt, pageText)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if a.retry.OnRetry != nil {
				a.retry.OnRetry(attempt-1, lastErr)
			}
			if err := a.pause(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		analysis, err := a.attempt(ctx, prompt)
		if err == nil {
			return analysis, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		a.logger.Warn("page analysis attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
	}

	return nil, fmt.Errorf("%w: %d attempts: %w", ErrAnalysisFailed, attempts, lastErr)
}

func (a *Analyzer) attempt(ctx context.Context, prompt string) (*PageAnalysis, error) {
	raw, err := a.client.Generate(ctx, a.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating analysis: %w", err)
	}
	return decodeAnalysis(raw)
}

// pause sleeps the backoff for the given number of failures, honoring ctx.
func (a *Analyzer) pause(ctx context.Context, failures int) error {
	delay := a.retry.BaseDelay * time.Duration(failures)
	if a.retry.JitterRange > 0 {
		delay += rand.N(a.retry.JitterRange)
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodeAnalysis parses the model's answer. Models wrap JSON in code
// fences or prose despite instructions, so both are peeled before the
// response counts as unusable.
func decodeAnalysis(raw string) (*PageAnalysis, error) {
	cleaned := stripFences(raw)

	var pa PageAnalysis
	if err := sonic.Unmarshal([]byte(cleaned), &pa); err != nil {
		clipped := clipObject(cleaned)
		if clipped == "" {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		if err := sonic.Unmarshal([]byte(clipped), &pa); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
	}

	if pa.CleanText == "" && pa.Tree == nil {
		return nil, fmt.Errorf("%w: response carries neither text nor tree", ErrBadResponse)
	}
	return &pa, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// clipObject returns the first balanced {...} object in s, or "".
func clipObject(s string) string {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
