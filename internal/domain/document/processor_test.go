package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
	"github.com/matiasleandrokruk/deepchat/internal/infra/cache"
	"github.com/matiasleandrokruk/deepchat/internal/infra/llm"
)

type stubProvider struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
	delay time.Duration
}

func (p *stubProvider) ChatCompletion(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResponse{Content: p.reply}, nil
}

func (p *stubProvider) ModelInfo() llm.ModelMeta { return llm.ModelMeta{ID: "stub"} }

func (p *stubProvider) HealthCheck(context.Context) error { return nil }

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestProcessor(t *testing.T, provider *stubProvider) (*Processor, *cache.Store) {
	t.Helper()
	store := cache.New(t.TempDir())
	p, err := NewProcessor(provider, store, nil)
	if err != nil {
		t.Fatalf("NewProcessor error = %v", err)
	}
	return p, store
}

func writeUpload(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing upload fixture: %v", err)
	}
	return path
}

func TestProcess_TextFile(t *testing.T) {
	p, _ := newTestProcessor(t, &stubProvider{})
	path := writeUpload(t, "notes.txt", []byte("plain text body"))

	res, err := p.Process(context.Background(), task.NewUploadTask("t1", "notes.txt", path, "text/plain"))
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	text, ok := res.(*task.TextResult)
	if !ok {
		t.Fatalf("result type = %T; want *task.TextResult", res)
	}
	if text.Content != "plain text body" || text.FileName != "notes.txt" {
		t.Errorf("result = %+v; want the file body and name", text)
	}
}

func TestProcess_TextFileNonUTF8(t *testing.T) {
	p, _ := newTestProcessor(t, &stubProvider{})
	// 0xE9 is "é" in Latin-1 and invalid as a standalone UTF-8 byte.
	path := writeUpload(t, "legacy.txt", []byte{'c', 'a', 'f', 0xE9})

	res, err := p.Process(context.Background(), task.NewUploadTask("t1", "legacy.txt", path, "text/plain"))
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if got := res.(*task.TextResult).Content; got != "café" {
		t.Errorf("decoded content = %q; want %q", got, "café")
	}
}

func TestProcess_UnsupportedContentType(t *testing.T) {
	p, _ := newTestProcessor(t, &stubProvider{})
	path := writeUpload(t, "img.png", []byte{0x89, 'P', 'N', 'G'})

	if _, err := p.Process(context.Background(), task.NewUploadTask("t1", "img.png", path, "image/png")); err == nil {
		t.Fatal("Process accepted an unsupported content type")
	}
}

func TestProcess_PDFCacheHit(t *testing.T) {
	provider := &stubProvider{}
	p, store := newTestProcessor(t, provider)
	path := writeUpload(t, "paper.pdf", []byte("irrelevant, cache answers first"))
	if err := store.Put("pdf-1", "a cached structured abstract"); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	res, err := p.Process(context.Background(), task.NewUploadTask("pdf-1", "paper.pdf", path, "application/pdf"))
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	pdf, ok := res.(*task.PDFResult)
	if !ok || pdf.Content != "a cached structured abstract" {
		t.Fatalf("result = %+v; want the cached abstract", res)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called %d times on a cache hit; want 0", provider.callCount())
	}
}

func TestProcess_PDFSummarySuccessAndCached(t *testing.T) {
	provider := &stubProvider{reply: "**Abstract**\n• Generated summary"}
	p, _ := newTestProcessor(t, provider)
	p.extract = func(string) (string, error) {
		return strings.Repeat("research text ", 20), nil
	}
	path := writeUpload(t, "paper.pdf", []byte("%PDF-stand-in"))
	upload := task.NewUploadTask("pdf-2", "paper.pdf", path, "application/pdf")

	res, err := p.Process(context.Background(), upload)
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	pdf, ok := res.(*task.PDFResult)
	if !ok || pdf.Content != provider.reply {
		t.Fatalf("result = %+v; want the generated abstract", res)
	}

	// Repeat processing must be served from the cache.
	if _, err := p.Process(context.Background(), upload); err != nil {
		t.Fatalf("second Process error = %v", err)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times across two runs; want 1 (cache)", provider.callCount())
	}
}

func TestProcess_PDFTooLittleText(t *testing.T) {
	provider := &stubProvider{}
	p, _ := newTestProcessor(t, provider)
	p.extract = func(string) (string, error) { return "scan", nil }
	path := writeUpload(t, "scan.pdf", []byte("%PDF-stand-in"))

	res, err := p.Process(context.Background(), task.NewUploadTask("pdf-3", "scan.pdf", path, "application/pdf"))
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	pdf, ok := res.(*task.PDFResult)
	if !ok || !strings.Contains(pdf.Content, "Unable to extract valid text") {
		t.Fatalf("result = %+v; want the guidance message", res)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called %d times for an unextractable PDF; want 0", provider.callCount())
	}
}

func TestProcess_PDFWithoutExtractorIsUnsupported(t *testing.T) {
	provider := &stubProvider{}
	p, _ := newTestProcessor(t, provider)
	p.extract = nil // as in a build with PDF support compiled out
	path := writeUpload(t, "paper.pdf", []byte("%PDF-stand-in"))

	res, err := p.Process(context.Background(), task.NewUploadTask("pdf-7", "paper.pdf", path, "application/pdf"))
	if err != nil {
		t.Fatalf("Process error = %v; want a warning result", err)
	}
	unsupported, ok := res.(*task.PDFUnsupportedResult)
	if !ok {
		t.Fatalf("result type = %T; want *task.PDFUnsupportedResult", res)
	}
	if unsupported.Status != "warning" || !strings.Contains(unsupported.Content, "uploaded successfully") {
		t.Errorf("result = %+v; want a warning confirming the upload", unsupported)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called %d times without an extractor; want 0", provider.callCount())
	}
}

func TestProcess_GarbagePDFIsSoftError(t *testing.T) {
	p, _ := newTestProcessor(t, &stubProvider{})
	path := writeUpload(t, "broken.pdf", []byte("this is not a pdf at all"))

	res, err := p.Process(context.Background(), task.NewUploadTask("pdf-4", "broken.pdf", path, "application/pdf"))
	if err != nil {
		t.Fatalf("Process returned a hard error = %v; want a warning result", err)
	}
	if _, ok := res.(*task.PDFErrorResult); !ok {
		t.Fatalf("result type = %T; want *task.PDFErrorResult", res)
	}
}

func TestProcess_PDFProviderErrorIsSoft(t *testing.T) {
	provider := &stubProvider{err: errors.New("api down")}
	p, _ := newTestProcessor(t, provider)
	p.extract = func(string) (string, error) {
		return strings.Repeat("research text ", 20), nil
	}
	path := writeUpload(t, "paper.pdf", []byte("%PDF-stand-in"))

	res, err := p.Process(context.Background(), task.NewUploadTask("pdf-5", "paper.pdf", path, "application/pdf"))
	if err != nil {
		t.Fatalf("Process error = %v; want a warning result", err)
	}
	pdfErr, ok := res.(*task.PDFErrorResult)
	if !ok || !strings.Contains(pdfErr.Content, "api down") {
		t.Fatalf("result = %+v; want a pdf_error naming the cause", res)
	}
}

func TestProcess_PDFTimeoutContinuesInBackground(t *testing.T) {
	provider := &stubProvider{reply: "late abstract", delay: 150 * time.Millisecond}
	p, store := newTestProcessor(t, provider)
	p.extract = func(string) (string, error) {
		return strings.Repeat("research text ", 20), nil
	}
	path := writeUpload(t, "big.pdf", []byte("%PDF-stand-in"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := p.Process(ctx, task.NewUploadTask("pdf-6", "big.pdf", path, "application/pdf"))
	if err != nil {
		t.Fatalf("Process error = %v", err)
	}
	if _, ok := res.(*task.PDFTimeoutResult); !ok {
		t.Fatalf("result type = %T; want *task.PDFTimeoutResult", res)
	}

	// The detached worker finishes after the deadline and fills the cache.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if abstract, ok := store.Get("pdf-6"); ok {
			if abstract != "late abstract" {
				t.Fatalf("cached abstract = %q; want %q", abstract, "late abstract")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("background summary never reached the cache")
}
