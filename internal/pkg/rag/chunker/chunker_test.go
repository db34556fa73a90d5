package chunker_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bankdesk/internal/pkg/rag/chunker"
)

func TestChunkID(t *testing.T) {
	c := chunker.Chunk{DocumentName: "fees.md", Content: "x", Index: 2}
	assert.Equal(t, "fees.md_2", c.ID())
}

func TestSplitEmptyContent(t *testing.T) {
	c := chunker.New(500, 50)

	assert.Empty(t, c.Split("doc.md", ""))
	assert.Empty(t, c.Split("doc.md", "   \n\n  \t  "))
}

func TestSplitSingleParagraph(t *testing.T) {
	c := chunker.New(500, 50)

	chunks := c.Split("accounts.md", "Savings accounts earn 2% interest.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Savings accounts earn 2% interest.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "accounts.md_0", chunks[0].ID())
}

func TestSplitAccumulatesParagraphs(t *testing.T) {
	c := chunker.New(500, 50)

	content := "First paragraph about fees.\n\nSecond paragraph about cards.\n\n\n\nThird paragraph."
	chunks := c.Split("fees.md", content)
	require.Len(t, chunks, 1)
	assert.Equal(t, "First paragraph about fees.\n\nSecond paragraph about cards.\n\nThird paragraph.", chunks[0].Content)
}

func TestSplitOverlapStartsAtWordBoundary(t *testing.T) {
	c := chunker.New(40, 10)

	content := "alpha beta gamma delta epsilon\n\nzeta eta theta iota kappa"
	chunks := c.Split("doc.md", content)
	require.Len(t, chunks, 2)

	assert.Equal(t, "alpha beta gamma delta epsilon", chunks[0].Content)
	// The second chunk is seeded with the tail of the first, trimmed to a
	// full word.
	assert.Equal(t, "epsilon\n\nzeta eta theta iota kappa", chunks[1].Content)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestSplitNoOverlapWhenDisabled(t *testing.T) {
	c := chunker.New(40, 0)

	content := "alpha beta gamma delta epsilon\n\nzeta eta theta iota kappa"
	chunks := c.Split("doc.md", content)
	require.Len(t, chunks, 2)
	assert.Equal(t, "zeta eta theta iota kappa", chunks[1].Content)
}

func TestSplitOversizedParagraph(t *testing.T) {
	c := chunker.New(50, 10)

	para := strings.TrimSpace(strings.Repeat("overdraft protection ", 20))
	chunks := c.Split("doc.md", para)
	require.Greater(t, len(chunks), 1)

	var words []string
	for i, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk.Content), 50)
		assert.Equal(t, i, chunk.Index)
		words = append(words, strings.Fields(chunk.Content)...)
	}
	// Word-boundary splitting loses no words.
	assert.Equal(t, strings.Fields(para), words)
}

func TestSplitSequentialIndexes(t *testing.T) {
	c := chunker.New(60, 10)

	var paras []string
	for i := 0; i < 8; i++ {
		paras = append(paras, strings.TrimSpace(strings.Repeat("wire transfer limits ", 2)))
	}
	chunks := c.Split("transfers.md", strings.Join(paras, "\n\n"))
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, "transfers.md", chunk.DocumentName)
		assert.NotEmpty(t, chunk.Content)
	}
}
