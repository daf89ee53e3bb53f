//go:build nopdf

package document

// PDF support compiled out. Uploads still succeed; PDF tasks get an
// unsupported result instead of an abstract.
var pdfExtractor func(path string) (string, error)
