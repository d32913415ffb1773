package main

import (
	"fmt"
	"io"
)

// printUsage prints the usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docmap [flags] <document.pdf> [more.pdf ...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Turn PDF documents into review-board PDFs: extract the text, analyze")
	fmt.Fprintln(w, "each page into a summary and a tree diagram, lay the results out on")
	fmt.Fprintln(w, "an HTML board, and capture the board back to a paginated PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>    Output file (single input) or directory")
	fmt.Fprintln(w, "  -a, --action <s>       Delivery action: save, binary (PDF to stdout)")
	fmt.Fprintln(w, "  -b, --board <path>     Export a prebuilt board HTML file")
	fmt.Fprintln(w, "  -c, --config <name>    Config file name or path")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Analysis:")
	fmt.Fprintln(w, "  -m, --model <s>        Analysis model name")
	fmt.Fprintln(w, "      --no-analysis      Skip page analysis, one section per page")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Capture:")
	fmt.Fprintln(w, "      --font <s>         Font family to wait for before capture")
	fmt.Fprintln(w, "  -t, --timeout <d>      Page load timeout (e.g. 30s, 2m)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Maintenance:")
	fmt.Fprintln(w, "      --init-config [p]  Write a starter config file and exit")
	fmt.Fprintln(w, "      --doctor           Check the environment and exit")
	fmt.Fprintln(w, "      --json             Machine-readable doctor output")
	fmt.Fprintln(w, "      --version          Show version and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet            Only show errors")
	fmt.Fprintln(w, "  -v, --verbose          Show detailed progress")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  GEMINI_API_KEY         API key for page analysis")
	fmt.Fprintln(w, "  DOCMAP_CONFIG          Default config file name or path")
	fmt.Fprintln(w, "  DOCMAP_WORKERS         Parallel exporters for batch runs (0 = auto)")
	fmt.Fprintln(w, "  ROD_BROWSER_BIN        Chrome/Chromium binary path")
	fmt.Fprintln(w, "  ROD_NO_SANDBOX         Set to 1 to disable the browser sandbox")
}
