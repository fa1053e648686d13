package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunker_DocumentStart_NoHeaders(t *testing.T) {
	chunker := NewMarkdownChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "readme.md",
		Content:  []byte("just some prose\nwith no headers at all\n"),
		Language: "markdown",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "(document start)", chunks[0].Metadata.SymbolName)
	assert.Equal(t, SymbolTypeMarkdown, chunks[0].Metadata.SymbolType)
}

func TestMarkdownChunker_PreHeaderContent_BecomesDocumentStartChunk(t *testing.T) {
	source := "intro paragraph\n\n# Title\n\nbody text\n"
	// MinChunkSize 1 keeps the short Title section from merging up.
	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{MinChunkSize: 1})
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "doc.md",
		Content:  []byte(source),
		Language: "markdown",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "(document start)", chunks[0].Metadata.SymbolName)
	assert.Contains(t, chunks[0].Text, "intro paragraph")

	var foundTitle bool
	for _, c := range chunks[1:] {
		if c.Metadata.SymbolName == "Title" {
			foundTitle = true
			assert.Contains(t, c.Text, "# Title")
			assert.Contains(t, c.Text, "body text")
		}
	}
	assert.True(t, foundTitle)
}

func TestMarkdownChunker_LargeSection_SplitsAndRepeatsHeader(t *testing.T) {
	var body strings.Builder
	body.WriteString("# H1\n\n")
	for i := 0; i < 200; i++ {
		body.WriteString("this is a sentence of prose that takes up some space in the section body.\n\n")
	}

	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{
		MaxChunkSize:      1500,
		MinChunkSize:      100,
		OverlapRatio:      0.15,
		SplitOnParagraphs: true,
	})
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "big.md",
		Content:  []byte(body.String()),
		Language: "markdown",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	for i, c := range chunks {
		assert.Equal(t, "H1", c.Metadata.SymbolName)
		assert.True(t, strings.HasPrefix(c.Text, "# H1"), "chunk %d must start with the repeated header", i)
	}
}

func TestMarkdownChunker_ShortSection_MergesIntoPreceding(t *testing.T) {
	source := "# Section One\n\nThis is a reasonably long paragraph of introductory text that clears the minimum chunk size easily on its own so it won't be merged away by the merge-up rule applied to short trailing sections.\n\n## tiny\n\nx\n"
	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{
		MaxChunkSize: 1500,
		MinChunkSize: 100,
		OverlapRatio: 0.15,
	})
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "merge.md",
		Content:  []byte(source),
		Language: "markdown",
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "tiny")
}

func TestMarkdownChunker_EmptyContent_ReturnsNoChunks(t *testing.T) {
	chunker := NewMarkdownChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "empty.md",
		Content:  []byte("   \n\n  "),
		Language: "markdown",
	})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestMarkdownChunker_NestedHeaders_ParentSectionIncludesChild(t *testing.T) {
	source := "# Parent\n\nparent body\n\n## Child\n\nchild body\n\n# Sibling\n\nsibling body\n"
	// MinChunkSize 1 keeps the short sections from merging up.
	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{MinChunkSize: 1})
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "nested.md",
		Content:  []byte(source),
		Language: "markdown",
	})
	require.NoError(t, err)

	var parent, sibling *Chunk
	for _, c := range chunks {
		switch c.Metadata.SymbolName {
		case "Parent":
			parent = c
		case "Sibling":
			sibling = c
		}
	}
	require.NotNil(t, parent)
	require.NotNil(t, sibling)
	assert.Contains(t, parent.Text, "child body", "parent section runs until the next equal-or-higher header")
	assert.NotContains(t, sibling.Text, "parent body")
}
