package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	docmap "github.com/alnah/go-docmap"
	"github.com/alnah/go-docmap/internal/analyze"
	"github.com/alnah/go-docmap/internal/board"
	"github.com/alnah/go-docmap/internal/config"
	"github.com/alnah/go-docmap/internal/fileutil"
	"github.com/alnah/go-docmap/internal/logging"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput          = errors.New("no input specified")
	ErrInvalidExtension = errors.New("unsupported input extension")
	ErrReadBoard        = errors.New("failed to read board file")
	ErrInvalidTimeout   = errors.New("invalid timeout")
	ErrBinaryBatch      = errors.New("binary action requires a single input")
	ErrOutputConflict   = errors.New("output names a file but there are multiple inputs")
	ErrExporterInit     = errors.New("failed to initialize exporter")
)

// exportJob is one input to process.
type exportJob struct {
	InputPath  string
	OutputPath string // "-" means stdout (binary action)
	Title      string
	IsBoard    bool // input is a prebuilt board HTML file
}

// ExportResult holds the outcome of a single export.
type ExportResult struct {
	InputPath  string
	OutputPath string
	Pages      int
	Degraded   int // blocks that failed every quality rung
	Err        error
	Duration   time.Duration
}

// exportParams groups collaborators shared by all batch workers.
type exportParams struct {
	cfg      *config.Config
	builder  *board.Builder
	analyzer *analyze.Analyzer // nil when analysis is skipped
	action   docmap.Action
	stdout   io.Writer
	stderr   io.Writer
	verbose  bool
}

// runExport orchestrates the export pipeline for all inputs.
func runExport(ctx context.Context, flags *cliFlags, inputs []string, env *Environment) error {
	envCfg := loadEnvConfig()

	cfg, err := loadConfiguration(flags, envCfg)
	if err != nil {
		return err
	}

	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}

	applyEnvConfig(envCfg, cfg)
	if err := mergeFlags(flags, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	action, err := resolveAction(cfg.Export.Action)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(flags, inputs, cfg, action)
	if err != nil {
		return err
	}

	logger, err := buildLogger(flags.common.verbose)
	if err != nil {
		return err
	}

	params := &exportParams{
		cfg:     cfg,
		builder: board.NewBuilder(),
		action:  action,
		stdout:  env.Stdout,
		stderr:  env.Stderr,
		verbose: flags.common.verbose,
	}

	if needsAnalysis(jobs, flags) {
		params.analyzer, err = buildAnalyzer(ctx, cfg, flags, logger, env)
		if err != nil {
			return err
		}
	}

	pool := docmap.NewExporterPool(resolveWorkers(envCfg), exporterOptions(cfg, flags, logger, env, len(jobs))...)
	defer pool.Close()

	results := exportBatch(ctx, &poolAdapter{pool: pool}, jobs, params)

	failed := printResults(results, flags.common.quiet, flags.common.verbose, env)
	if failed == 0 {
		return nil
	}
	if len(results) == 1 {
		// Single input: propagate the cause so the exit code reflects it.
		return results[0].Err
	}
	return fmt.Errorf("%d export(s) failed", failed)
}

// loadConfiguration resolves the config source: --config flag, then
// DOCMAP_CONFIG, then a discovered docmap.yaml, then built-in defaults.
func loadConfiguration(flags *cliFlags, envCfg *envConfig) (*config.Config, error) {
	name := flags.common.config
	if name == "" {
		name = envCfg.ConfigPath
	}
	if name != "" {
		cfg, err := config.Load(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if path, ok := config.Discover(); ok {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *cliFlags, cfg *config.Config) error {
	if flags.output.action != "" {
		cfg.Export.Action = flags.output.action
	}
	if flags.analysis.model != "" {
		cfg.Analyzer.Model = flags.analysis.model
	}
	if flags.capture.font != "" {
		cfg.Fonts.Family = flags.capture.font
	}
	if flags.capture.timeout != "" {
		d, err := time.ParseDuration(flags.capture.timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidTimeout, flags.capture.timeout)
		}
		cfg.Capture.PageTimeout = config.Duration(d)
	}
	return nil
}

// resolveAction maps the config action name to an engine action.
// Both the short config spelling and the engine spelling are accepted.
func resolveAction(name string) (docmap.Action, error) {
	switch name {
	case "", "save", string(docmap.ActionSave):
		return docmap.ActionSave, nil
	case "binary", string(docmap.ActionBinary):
		return docmap.ActionBinary, nil
	default:
		return "", fmt.Errorf("%w: %q", docmap.ErrInvalidAction, name)
	}
}

// buildJobs validates inputs and pairs each with an output path.
func buildJobs(flags *cliFlags, inputs []string, cfg *config.Config, action docmap.Action) ([]exportJob, error) {
	var jobs []exportJob

	if flags.board != "" {
		if err := validateInputExtension(flags.board, ".html", ".htm"); err != nil {
			return nil, err
		}
		jobs = append(jobs, exportJob{
			InputPath:  flags.board,
			OutputPath: outputPathFor(flags.board, flags.output.path, cfg, ""),
			Title:      titleFromPath(flags.board),
			IsBoard:    true,
		})
	}

	for _, input := range inputs {
		if err := validateInputExtension(input, ".pdf"); err != nil {
			return nil, err
		}
		jobs = append(jobs, exportJob{
			InputPath:  input,
			OutputPath: outputPathFor(input, flags.output.path, cfg, "-board"),
			Title:      titleFromPath(input),
		})
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: pass one or more PDF documents or --board", ErrNoInput)
	}

	if action == docmap.ActionBinary {
		if len(jobs) > 1 {
			return nil, ErrBinaryBatch
		}
		jobs[0].OutputPath = "-"
		return jobs, nil
	}

	if isFileOutput(flags.output.path) && len(jobs) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrOutputConflict, flags.output.path)
	}

	return jobs, nil
}

// validateInputExtension checks the file extension against the allowed set.
func validateInputExtension(path string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (want %s)", ErrInvalidExtension, ext, strings.Join(allowed, " or "))
}

// outputPathFor builds the output path for one input. An explicit file
// output wins; otherwise the name is derived from the input and placed
// in the output directory, the configured export dir, or beside the
// input, in that order.
func outputPathFor(input, outputFlag string, cfg *config.Config, suffix string) string {
	if isFileOutput(outputFlag) {
		return outputFlag
	}

	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := fileutil.SanitizeFilename(stem+suffix) + ".pdf"

	dir := outputFlag
	if dir == "" {
		dir = cfg.Export.Dir
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}

// isFileOutput reports whether the --output value names a PDF file
// rather than a directory.
func isFileOutput(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// titleFromPath derives a document title from the input file name.
func titleFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(stem))
	if stem == "" {
		return "Document"
	}
	r := []rune(stem)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// needsAnalysis reports whether any job runs the page analysis stage.
func needsAnalysis(jobs []exportJob, flags *cliFlags) bool {
	if flags.analysis.noAnalysis {
		return false
	}
	for _, job := range jobs {
		if !job.IsBoard {
			return true
		}
	}
	return false
}

// buildAnalyzer wires the analysis client from the environment key and
// the configured retry shape.
func buildAnalyzer(ctx context.Context, cfg *config.Config, flags *cliFlags, logger *zap.Logger, env *Environment) (*analyze.Analyzer, error) {
	client, err := analyze.NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		if errors.Is(err, analyze.ErrNoAPIKey) {
			return nil, fmt.Errorf("%w: set GEMINI_API_KEY or pass --no-analysis", analyze.ErrNoAPIKey)
		}
		return nil, err
	}

	retry := analyze.RetryConfig{
		MaxAttempts: cfg.Analyzer.MaxAttempts,
		BaseDelay:   cfg.Analyzer.BaseDelay.Std(),
		JitterRange: cfg.Analyzer.JitterRange.Std(),
	}
	if flags.common.verbose {
		stderr := env.Stderr
		retry.OnRetry = func(attempt int, err error) {
			fmt.Fprintf(stderr, "analysis attempt %d failed, retrying: %v\n", attempt, err)
		}
	}

	return analyze.New(client, cfg.Analyzer.Model, retry, logger)
}

// buildLogger returns a terminal logger in verbose mode, a no-op
// logger otherwise.
func buildLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	logger, err := logging.New(logging.StyleTerminal, "debug")
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// exporterOptions translates the merged config into engine options.
func exporterOptions(cfg *config.Config, flags *cliFlags, logger *zap.Logger, env *Environment, jobCount int) []docmap.Option {
	opts := []docmap.Option{
		docmap.WithSettleDelay(cfg.Capture.SettleDelay.Std()),
		docmap.WithPageTimeout(cfg.Capture.PageTimeout.Std()),
		docmap.WithLogger(logger),
	}

	if len(cfg.Capture.Ladder) > 0 {
		ladder := make([]docmap.CaptureRung, len(cfg.Capture.Ladder))
		for i, rung := range cfg.Capture.Ladder {
			ladder[i] = docmap.CaptureRung{Fidelity: rung.Fidelity, Budget: rung.Budget.Std()}
		}
		opts = append(opts, docmap.WithLadder(ladder))
	}

	if cfg.Fonts.GateRounds > 0 && cfg.Fonts.GateInterval > 0 {
		opts = append(opts, docmap.WithFontGate(cfg.Fonts.GateRounds, cfg.Fonts.GateInterval.Std()))
	}
	if cfg.Fonts.Family != "" {
		opts = append(opts, docmap.WithFontFamily(cfg.Fonts.Family))
	}

	// A shared progress line only makes sense for a single export.
	if jobCount == 1 && !flags.common.quiet {
		opts = append(opts, docmap.WithProgress(progressLine(env.Stderr)))
	}

	return opts
}

// progressLine renders phase transitions as a single rewriting stderr line.
func progressLine(w io.Writer) docmap.ProgressFunc {
	return func(phase string, percent int) {
		fmt.Fprintf(w, "\r%-8s %3d%%", phase, percent)
		if percent >= 100 {
			fmt.Fprintln(w)
		}
	}
}

// printResults outputs per-file outcomes and returns the failure count.
func printResults(results []ExportResult, quiet, verbose bool, env *Environment) int {
	failed := 0

	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, hintFor(r.Err))
			continue
		}

		if quiet {
			continue
		}

		if r.OutputPath == "-" {
			// The PDF went to stdout; keep the note out of its way.
			fmt.Fprintf(env.Stderr, "Wrote %s to stdout (%d pages)\n", r.InputPath, r.Pages)
			continue
		}

		switch {
		case verbose:
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n",
				r.InputPath, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		case r.Degraded > 0:
			fmt.Fprintf(env.Stdout, "Created %s (%d blocks degraded)\n", r.OutputPath, r.Degraded)
		default:
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}

		if verbose && r.Degraded > 0 {
			fmt.Fprintf(env.Stdout, "  %d block(s) failed every quality rung and were replaced by markers\n", r.Degraded)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}

	return failed
}
