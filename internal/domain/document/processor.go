// Package document turns stored uploads into task results: plain-text files
// are decoded directly, PDFs go through text extraction and an LLM-generated
// structured abstract backed by a content-addressed cache.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
	"github.com/matiasleandrokruk/deepchat/internal/infra/cache"
	"github.com/matiasleandrokruk/deepchat/internal/infra/llm"
)

// Processor implements the orchestrator's DocumentProcessor.
type Processor struct {
	llm     llm.Provider
	cache   *cache.Store
	prompts *promptSet
	log     *slog.Logger

	// extract is the PDF text extractor; a field so tests can substitute it.
	extract func(path string) (string, error)
}

// NewProcessor wires a Processor over the given provider and summary cache.
func NewProcessor(provider llm.Provider, cacheStore *cache.Store, log *slog.Logger) (*Processor, error) {
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		llm:     provider,
		cache:   cacheStore,
		prompts: prompts,
		log:     log,
		extract: pdfExtractor,
	}, nil
}

// Process computes the result for a stored upload. PDF troubles are expressed
// as warning results rather than errors, so a bad document never fails the
// task outright; an error return is reserved for truly unprocessable input.
func (p *Processor) Process(ctx context.Context, t *task.Task) (task.Result, error) {
	switch t.ContentType {
	case "text/plain":
		content, err := os.ReadFile(t.FilePath)
		if err != nil {
			return nil, fmt.Errorf("document: read upload: %w", err)
		}
		return task.NewTextResult(t.ID, t.FileName, decodeText(content)), nil
	case "application/pdf":
		return p.processPDF(ctx, t), nil
	default:
		return nil, fmt.Errorf("document: unsupported content type %q", t.ContentType)
	}
}

// processPDF serves from the summary cache when possible, otherwise extracts
// the text and generates a structured abstract. The work runs in its own
// goroutine detached from ctx's cancellation: when the deadline expires a
// timeout result is returned but generation continues in the background and
// lands in the cache for the next request.
func (p *Processor) processPDF(ctx context.Context, t *task.Task) task.Result {
	if p.extract == nil {
		return task.NewPDFUnsupportedResult(t.ID, t.FileName,
			"PDF file uploaded successfully, but PDF processing is not available in this build.")
	}

	content, err := os.ReadFile(t.FilePath)
	if err != nil {
		return task.NewPDFErrorResult(t.ID, t.FileName, fmt.Sprintf("PDF processing failed: %v", err))
	}

	fingerprint := cache.Fingerprint(t.ID, content)
	if abstract, ok := p.cache.Get(fingerprint); ok {
		p.log.Info("serving cached abstract", "task_id", t.ID, "fingerprint", fingerprint)
		return task.NewPDFResult(t.ID, t.FileName, abstract)
	}

	results := make(chan task.Result, 1)
	go func() {
		results <- p.summarize(context.WithoutCancel(ctx), t, fingerprint)
	}()

	select {
	case res := <-results:
		return res
	case <-ctx.Done():
		p.log.Warn("pdf summary exceeded its deadline, continuing in background",
			"task_id", t.ID, "file", t.FileName)
		return task.NewPDFTimeoutResult(t.ID, t.FileName)
	}
}

func (p *Processor) summarize(ctx context.Context, t *task.Task, fingerprint string) task.Result {
	text, err := p.extract(t.FilePath)
	if err != nil {
		p.log.Warn("pdf text extraction failed", "task_id", t.ID, "error", err)
		return task.NewPDFErrorResult(t.ID, t.FileName, fmt.Sprintf("PDF parsing failed: %v", err))
	}
	if len(text) < p.prompts.Summary.MinTextChars {
		return task.NewPDFResult(t.ID, t.FileName,
			"Unable to extract valid text content from PDF. Please ensure the PDF contains extractable text.")
	}

	resp, err := p.llm.ChatCompletion(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: p.prompts.Summary.render(text)}},
		Temperature: p.prompts.Summary.Temperature,
		MaxTokens:   p.prompts.Summary.MaxTokens,
	})
	if err != nil {
		p.log.Warn("abstract generation failed", "task_id", t.ID, "error", err)
		return task.NewPDFErrorResult(t.ID, t.FileName, fmt.Sprintf("PDF abstract generation failed: %v", err))
	}
	abstract := resp.Content
	if strings.TrimSpace(abstract) == "" {
		return task.NewPDFErrorResult(t.ID, t.FileName, "API returned an empty abstract, please try again.")
	}

	if err := p.cache.Put(fingerprint, abstract); err != nil {
		p.log.Warn("caching abstract failed", "fingerprint", fingerprint, "error", err)
	}
	return task.NewPDFResult(t.ID, t.FileName, abstract)
}

// decodeText interprets uploaded bytes as UTF-8, falling back to a Latin-1
// reading for legacy encodings so the upload never hard-fails on charset.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return string(runes)
}
