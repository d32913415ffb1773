package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	docmap "github.com/alnah/go-docmap"
	"github.com/alnah/go-docmap/internal/analyze"
	"github.com/alnah/go-docmap/internal/board"
	"github.com/alnah/go-docmap/internal/extract"
)

// exportBatch processes jobs concurrently using the exporter pool.
// Each worker owns one exporter (one browser) for its whole run.
func exportBatch(ctx context.Context, pool Pool, jobs []exportJob, params *exportParams) []ExportResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := pool.Size()
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	results := make([]ExportResult, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	var mu sync.Mutex
	var acquireErr error

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			exp, err := pool.Acquire()
			if err != nil {
				// Leave the queue to workers that did get an exporter;
				// jobs nobody claims are marked after the wait.
				mu.Lock()
				if acquireErr == nil {
					acquireErr = err
				}
				mu.Unlock()
				return
			}
			defer pool.Release(exp)

			for idx := range queue {
				if ctx.Err() != nil {
					results[idx] = ExportResult{
						InputPath: jobs[idx].InputPath,
						Err:       ctx.Err(),
					}
					continue
				}
				results[idx] = exportOne(ctx, exp, jobs[idx], params)
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()

	// Unclaimed jobs mean every worker failed to acquire an exporter.
	for i := range results {
		if results[i].InputPath == "" {
			results[i] = ExportResult{
				InputPath: jobs[i].InputPath,
				Err:       fmt.Errorf("%w: %v", ErrExporterInit, acquireErr),
			}
		}
	}
	return results
}

// exportOne runs the full pipeline for a single job.
func exportOne(ctx context.Context, exp Exporter, job exportJob, params *exportParams) ExportResult {
	start := time.Now()
	result := ExportResult{
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
	}

	boardHTML, err := buildBoardHTML(ctx, job, params)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	req := docmap.Request{
		BoardHTML: boardHTML,
		Title:     job.Title,
		Action:    params.action,
	}
	if params.action == docmap.ActionSave {
		req.OutputPath = job.OutputPath
	}

	res, err := exp.Export(ctx, req)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	result.Pages = res.Pages
	result.Degraded = len(res.FailedBlocks)

	if params.action == docmap.ActionBinary {
		if _, err := params.stdout.Write(res.PDF); err != nil {
			result.Err = fmt.Errorf("%w: %v", docmap.ErrWriteOutput, err)
		}
	}

	result.Duration = time.Since(start)
	return result
}

// buildBoardHTML produces the board document for a job: prebuilt boards
// are read as-is, PDF documents go through extract, analyze, and build.
func buildBoardHTML(ctx context.Context, job exportJob, params *exportParams) (string, error) {
	if job.IsBoard {
		data, err := os.ReadFile(job.InputPath) // #nosec G304 -- board path is user-provided
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrReadBoard, err)
		}
		return string(data), nil
	}

	pages, err := extract.Extract(job.InputPath)
	if err != nil {
		return "", err
	}
	if params.verbose {
		fmt.Fprintf(params.stderr, "%s: extracted %d pages\n", job.InputPath, len(pages))
	}

	sections, err := buildSections(ctx, pages, params)
	if err != nil {
		return "", err
	}

	return params.builder.Build(ctx, board.Document{
		Title:    job.Title,
		Date:     params.cfg.Board.Date,
		Sections: sections,
	})
}

// buildSections turns extracted pages into board sections. Pages with
// no text are skipped. Without an analyzer every page becomes one
// section holding its raw text.
func buildSections(ctx context.Context, pages []extract.Page, params *exportParams) ([]board.Section, error) {
	sections := make([]board.Section, 0, len(pages))

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		label := fmt.Sprintf("Page %d", page.Number)

		if params.analyzer == nil {
			sections = append(sections, board.Section{
				Title:    label,
				Markdown: page.Text,
				Tree:     &board.Node{Label: label},
			})
			continue
		}

		pa, err := params.analyzer.AnalyzePage(ctx, page.Text)
		if err != nil {
			return nil, fmt.Errorf("analyzing page %d: %w", page.Number, err)
		}
		if params.verbose {
			fmt.Fprintf(params.stderr, "page %d analyzed: %s\n", page.Number, pa.Title)
		}

		sections = append(sections, board.Section{
			Title:    pa.Title,
			Markdown: pa.CleanText,
			Tree:     toBoardNode(pa.Tree),
		})
	}

	return sections, nil
}

// toBoardNode converts an analysis tree into the board's node type.
func toBoardNode(n *analyze.Node) *board.Node {
	if n == nil {
		return nil
	}
	out := &board.Node{Label: n.Label}
	for _, child := range n.Children {
		out.Children = append(out.Children, toBoardNode(child))
	}
	return out
}
