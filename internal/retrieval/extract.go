// ABOUTME: Extracts indexable text from uploaded files by extension
// ABOUTME: Text formats pass through; SQL Server .bak dumps yield their printable ASCII runs
package retrieval

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/harper/chat2db/internal/errs"
)

// minPrintableRun is the shortest byte run kept from binary dumps
const minPrintableRun = 3

// SupportedExtensions lists the file types ExtractText understands
var SupportedExtensions = []string{".txt", ".md", ".csv", ".json", ".sql", ".bak"}

// ExtractText returns the text content of an uploaded file. PDF and image
// files need an external extractor and are rejected.
func ExtractText(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var text string
	switch ext {
	case ".txt", ".md", ".csv", ".json", ".sql":
		if !utf8.Valid(data) {
			return "", errs.Newf(errs.ErrKindInvalidInput, "%s is not valid UTF-8", filename)
		}
		text = string(data)
	case ".bak":
		text = printableRuns(data)
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported file type: %s", ext)
	}

	if strings.TrimSpace(text) == "" {
		return "", errs.Newf(errs.ErrKindInvalidInput, "no readable text found in %s", filename)
	}
	return text, nil
}

// printableRuns joins every run of at least minPrintableRun printable
// ASCII bytes (space through tilde) with newlines.
func printableRuns(data []byte) string {
	var runs []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minPrintableRun {
			runs = append(runs, string(data[start:end]))
		}
		start = -1
	}
	for i, b := range data {
		if b >= ' ' && b <= '~' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))
	return strings.Join(runs, "\n")
}
