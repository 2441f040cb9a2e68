// ABOUTME: Chunker splits ingested documents into overlapping fragments for retrieval
// ABOUTME: Prefers paragraph, then sentence boundaries, and hard-cuts only oversized sentences
package retrieval

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, measured in runes
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunker handles document chunking
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker creates a chunker with the default size and overlap
func NewChunker() *Chunker {
	return &Chunker{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// Split returns chunks of at most Size runes. Consecutive chunks share up
// to Overlap trailing runes of the previous chunk.
func (c *Chunker) Split(text string) []string {
	size := c.Size
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var pieces []string
	for _, para := range splitParagraphs(text) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= size {
			pieces = append(pieces, para)
			continue
		}
		for _, sent := range splitSentences(para) {
			pieces = append(pieces, hardCut(sent, size)...)
		}
	}

	var chunks []string
	var current string
	for _, piece := range pieces {
		if current == "" {
			current = piece
			continue
		}
		if utf8.RuneCountInString(current)+1+utf8.RuneCountInString(piece) <= size {
			current += "\n" + piece
			continue
		}
		chunks = append(chunks, current)

		carry := tail(current, overlap)
		if carry != "" && utf8.RuneCountInString(carry)+1+utf8.RuneCountInString(piece) <= size {
			current = carry + "\n" + piece
		} else {
			current = piece
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitParagraphs splits text by blank lines
func splitParagraphs(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
}

// splitSentences splits text by ". " (period + space)
func splitSentences(text string) []string {
	sentences := strings.Split(text, ". ")

	var result []string
	for i, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}

		// Add back the period (except for the last sentence which might already have it)
		if i < len(sentences)-1 && !strings.HasSuffix(sent, ".") {
			sent = sent + "."
		}

		result = append(result, sent)
	}

	return result
}

// hardCut splits s into pieces of at most size runes
func hardCut(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// tail returns the last n runes of s
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
