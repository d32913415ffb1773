// Package docmap exports rendered document boards to paginated PDF using
// headless Chrome.
//
// # Quick Start
//
// Create an exporter, export a board, and close when done:
//
//	exp, err := docmap.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Close()
//
//	result, err := exp.Export(ctx, docmap.Request{
//	    BoardHTML:  boardHTML,
//	    Title:      "Architecture Overview",
//	    Action:     docmap.ActionSave,
//	    OutputPath: "overview.pdf",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Use ActionBinary to receive the PDF bytes and MIME type in the result
// instead of writing a file. Blocks that could not be rasterized appear
// as inline markers in the document and are listed in Result.FailedBlocks.
//
// # Export Pipeline
//
// The export process follows these stages:
//
//  1. Board loading and container pre-flight (headless Chrome via go-rod)
//  2. Font readiness gate (bounded polling, degrades gracefully)
//  3. Per-block capture through a quality-degrading ladder
//  4. Page assembly with pagination and footers (go-pdf/fpdf)
//  5. Delivery to disk or as binary
//
// # Configuration
//
// Use functional options to customize the exporter:
//
//	exp, err := docmap.New(
//	    docmap.WithLadder([]docmap.CaptureRung{
//	        {Fidelity: 2.0, Budget: 60 * time.Second},
//	        {Fidelity: 1.0, Budget: 60 * time.Second},
//	    }),
//	    docmap.WithFontFamily("Inter"),
//	    docmap.WithProgress(func(phase string, percent int) {
//	        fmt.Printf("%s %d%%\n", phase, percent)
//	    }),
//	)
//
// # Parallel Processing
//
// For batch export, use ExporterPool to manage multiple browser instances:
//
//	pool := docmap.NewExporterPool(4)
//	defer pool.Close()
//
//	exp, err := pool.Acquire()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Release(exp)
//	result, err := exp.Export(ctx, req)
//
// # Browser Requirements
//
// Capturing requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package docmap
