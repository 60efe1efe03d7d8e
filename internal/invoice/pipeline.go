package invoice

import (
	"context"
	"fmt"
	"log/slog"
)

// Extractor sends one rendered page image to a model and returns the line
// items it found
type Extractor interface {
	// ExtractPage analyzes a JPEG page image and returns its line items
	ExtractPage(ctx context.Context, image []byte) ([]LineItem, error)
	// Close releases the underlying client
	Close() error
}

// Document is a page source that can render pages to JPEG images
type Document interface {
	// PageCount returns the number of pages in the document
	PageCount() int
	// RenderPage renders page i to a JPEG image
	RenderPage(i int) ([]byte, error)
	// Close releases the document
	Close() error
}

// Progress receives per-page advancement during an extraction run
type Progress interface {
	Start(totalPages int)
	Advance(page int)
}

// noopProgress is used when the caller does not report progress
type noopProgress struct{}

func (noopProgress) Start(int)   {}
func (noopProgress) Advance(int) {}

// PageResult is the outcome of a single page: either its line items or the
// reason the page contributed nothing
type PageResult struct {
	Page  int        `json:"page"`
	Items []LineItem `json:"items,omitempty"`
	Err   error      `json:"-"`
}

// Failed reports whether the page was skipped due to an error
func (p PageResult) Failed() bool {
	return p.Err != nil
}

// Result is the aggregated outcome of a document run. Items holds every
// extracted line item in page-then-within-page order; Pages holds the
// per-page report including failures.
type Result struct {
	Items []LineItem
	Pages []PageResult
}

// FailedPages returns the page results that contributed zero records due to
// an error
func (r *Result) FailedPages() []PageResult {
	var failed []PageResult
	for _, p := range r.Pages {
		if p.Failed() {
			failed = append(failed, p)
		}
	}
	return failed
}

// Pipeline runs the page-by-page extraction: render, extract, aggregate.
// Pages are processed strictly sequentially; a failing page is recorded and
// skipped, never fatal for the document.
type Pipeline struct {
	extractor Extractor
	progress  Progress
}

// NewPipeline creates a Pipeline without progress reporting
func NewPipeline(extractor Extractor) *Pipeline {
	return NewPipelineWithProgress(extractor, noopProgress{})
}

// NewPipelineWithProgress creates a Pipeline that reports per-page progress
func NewPipelineWithProgress(extractor Extractor, progress Progress) *Pipeline {
	if progress == nil {
		progress = noopProgress{}
	}
	return &Pipeline{
		extractor: extractor,
		progress:  progress,
	}
}

// Extract processes pages [0, min(PageCount, limit)) of the document. A
// limit of 0 or less means all pages. The returned Result always reflects
// every page visited; the error is non-nil only when the context is
// cancelled mid-document.
func (p *Pipeline) Extract(ctx context.Context, doc Document, limit int) (*Result, error) {
	pages := doc.PageCount()
	if limit > 0 && limit < pages {
		pages = limit
	}

	result := &Result{}
	p.progress.Start(pages)

	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("extraction cancelled at page %d: %w", i+1, err)
		}

		page := p.processPage(ctx, doc, i)
		result.Pages = append(result.Pages, page)
		result.Items = append(result.Items, page.Items...)
		p.progress.Advance(i)

		if page.Failed() {
			slog.Warn("Page contributed no line items", "page", i+1, "error", page.Err)
		} else {
			slog.Debug("Extracted page", "page", i+1, "items", len(page.Items))
		}
	}

	return result, nil
}

// processPage renders and extracts a single page, absorbing failures into
// the PageResult
func (p *Pipeline) processPage(ctx context.Context, doc Document, i int) PageResult {
	image, err := doc.RenderPage(i)
	if err != nil {
		return PageResult{Page: i, Err: fmt.Errorf("rendering page %d: %w", i+1, err)}
	}

	items, err := p.extractor.ExtractPage(ctx, image)
	if err != nil {
		return PageResult{Page: i, Err: fmt.Errorf("extracting page %d: %w", i+1, err)}
	}

	return PageResult{Page: i, Items: items}
}
