//go:build !nopdf

package document

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfExtractor is the extractor installed into new Processors. The nopdf
// build tag compiles PDF support out, leaving it nil.
var pdfExtractor = extractPDFText

// extractPDFText pulls the plain text out of a PDF file, page by page.
// Pages without extractable text are skipped; whitespace runs are collapsed
// so the text is usable as prompt input.
func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("document: open pdf: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		cleaned := strings.Join(strings.Fields(text), " ")
		if cleaned == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(cleaned)
	}
	return sb.String(), nil
}
