package main

import (
	"os"

	flag "github.com/spf13/pflag"
)

// defaultConfigFileName is what --init-config writes when no path is given.
const defaultConfigFileName = "docmap.yaml"

// commonFlags holds flags shared by every run mode.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// outputFlags holds delivery flags.
type outputFlags struct {
	path   string
	action string
}

// captureFlags holds capture tuning flags.
type captureFlags struct {
	font    string
	timeout string
}

// analysisFlags holds page analysis flags.
type analysisFlags struct {
	model      string
	noAnalysis bool
}

// cliFlags holds all docmap flags.
type cliFlags struct {
	common     commonFlags
	output     outputFlags
	capture    captureFlags
	analysis   analysisFlags
	board      string
	initConfig string
	doctor     bool
	jsonOut    bool
	version    bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed progress")
}

// addOutputFlags adds delivery flags to a FlagSet.
func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.StringVarP(&f.path, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.action, "action", "a", "", "delivery action: save, binary")
}

// addCaptureFlags adds capture tuning flags to a FlagSet.
func addCaptureFlags(fs *flag.FlagSet, f *captureFlags) {
	fs.StringVar(&f.font, "font", "", "font family the board must have ready before capture")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "page load timeout (e.g. 30s, 2m)")
}

// addAnalysisFlags adds page analysis flags to a FlagSet.
func addAnalysisFlags(fs *flag.FlagSet, f *analysisFlags) {
	fs.StringVarP(&f.model, "model", "m", "", "analysis model name")
	fs.BoolVar(&f.noAnalysis, "no-analysis", false, "skip page analysis, one section per page")
}

// parseFlags parses CLI flags and returns positional args.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("docmap", flag.ContinueOnError)
	f := &cliFlags{}

	addCommonFlags(fs, &f.common)
	addOutputFlags(fs, &f.output)
	addCaptureFlags(fs, &f.capture)
	addAnalysisFlags(fs, &f.analysis)

	fs.StringVarP(&f.board, "board", "b", "", "export a prebuilt board HTML file")
	fs.StringVar(&f.initConfig, "init-config", "", "write a starter config file and exit")
	fs.Lookup("init-config").NoOptDefVal = defaultConfigFileName
	fs.BoolVar(&f.doctor, "doctor", false, "check the environment and exit")
	fs.BoolVar(&f.jsonOut, "json", false, "machine-readable doctor output")
	fs.BoolVar(&f.version, "version", false, "show version and exit")

	fs.Usage = func() { printUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
