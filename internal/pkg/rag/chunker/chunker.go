// Package chunker splits markdown documents into overlapping chunks for
// vector indexing.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var paragraphRegex = regexp.MustCompile(`\n\n+`)

// Chunk is a contiguous piece of a document.
type Chunk struct {
	// DocumentName is the source document file name.
	DocumentName string
	// Content is the chunk text.
	Content string
	// Index is the 0-based position of the chunk within its document.
	Index int
}

// ID returns the unique identifier of the chunk within the collection.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s_%d", c.DocumentName, c.Index)
}

// Chunker accumulates paragraphs into chunks of bounded size.
// Boundaries prefer paragraph breaks; a paragraph larger than the chunk size
// is split on word boundaries instead.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker. chunkSize and overlap are measured in Unicode
// characters.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split chunks a document's content. Empty or whitespace-only content yields
// no chunks. Consecutive chunks share an overlap region trimmed forward to a
// word boundary so no chunk starts mid-word.
func (c *Chunker) Split(documentName, content string) []Chunk {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	paragraphs := paragraphRegex.Split(content, -1)

	var chunks []Chunk
	var current string

	flush := func(text string) {
		chunks = append(chunks, Chunk{
			DocumentName: documentName,
			Content:      strings.TrimSpace(text),
			Index:        len(chunks),
		})
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if runeLen(current)+runeLen(para)+2 > c.chunkSize {
			if current != "" {
				flush(current)
				current = c.seedOverlap(current, para)
			} else {
				// The paragraph alone exceeds the chunk size, fall back
				// to splitting on word boundaries.
				current = c.splitByWords(para, flush)
			}
		} else if current == "" {
			current = para
		} else {
			current += "\n\n" + para
		}
	}

	if current != "" {
		flush(current)
	}

	return chunks
}

// seedOverlap starts a new chunk with the tail of the previous one so
// adjacent chunks share context.
func (c *Chunker) seedOverlap(prev, para string) string {
	if c.overlap <= 0 || runeLen(prev) <= c.overlap {
		return para
	}

	runes := []rune(prev)
	overlapText := string(runes[len(runes)-c.overlap:])
	// Trim forward to the first word boundary.
	if i := strings.Index(overlapText, " "); i > 0 {
		overlapText = overlapText[i+1:]
	}
	return overlapText + "\n\n" + para
}

// splitByWords chunks an oversized paragraph word by word, flushing every
// full chunk, and returns the trailing partial accumulation.
func (c *Chunker) splitByWords(para string, flush func(string)) string {
	var current string
	for _, word := range strings.Fields(para) {
		if runeLen(current)+runeLen(word)+1 > c.chunkSize {
			if current != "" {
				flush(current)
			}
			current = word
		} else if current == "" {
			current = word
		} else {
			current += " " + word
		}
	}
	return current
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
