package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"docology-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageOfWords(page, n int) model.PageText {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("p%dw%d", page, i)
	}
	return model.PageText{Page: page, Text: strings.Join(words, " ")}
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	c := NewChunker(800, 150)

	chunks := c.Split("doc-1", []model.PageText{{Page: 1, Text: "only a few words here"}})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "only a few words here", chunks[0].TextContent)
	assert.Equal(t, 5, chunks[0].TokenCount)
}

func TestSplitWindowAndOverlap(t *testing.T) {
	c := NewChunker(100, 20)

	chunks := c.Split("doc-1", []model.PageText{pageOfWords(1, 250)})
	// 250 个词，窗口 100 步长 80：[0,100) [80,180) [160,250)
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, chunks[0].TokenCount)
	assert.Equal(t, 100, chunks[1].TokenCount)
	assert.Equal(t, 90, chunks[2].TokenCount)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Ordinal)
		assert.Equal(t, "doc-1", ch.DocumentID)
	}

	// 相邻块共享 20 个词：前块尾部与后块头部重叠
	assert.True(t, strings.HasSuffix(chunks[0].TextContent, "p1w99"))
	assert.True(t, strings.HasPrefix(chunks[1].TextContent, "p1w80"))
}

func TestSplitEveryTokenCovered(t *testing.T) {
	c := NewChunker(50, 10)

	chunks := c.Split("doc-1", []model.PageText{pageOfWords(1, 137)})
	seen := make(map[string]struct{})
	for _, ch := range chunks {
		for _, w := range strings.Fields(ch.TextContent) {
			seen[w] = struct{}{}
		}
	}
	for i := 0; i < 137; i++ {
		_, ok := seen[fmt.Sprintf("p1w%d", i)]
		assert.True(t, ok, "词 p1w%d 未被任何分块覆盖", i)
	}
}

func TestSplitMajorityPageAttribution(t *testing.T) {
	c := NewChunker(100, 0)

	// 第一块全部来自第 1 页；第二块 30 词来自第 1 页、70 词来自第 2 页
	chunks := c.Split("doc-1", []model.PageText{pageOfWords(1, 130), pageOfWords(2, 70)})
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 2, chunks[1].Page, "跨页块应归属 token 占多数的页")
}

func TestSplitEmptyPageContributesNothing(t *testing.T) {
	c := NewChunker(800, 150)

	chunks := c.Split("doc-1", []model.PageText{
		{Page: 1, Text: "first page text"},
		{Page: 2, Text: "   \n\t "},
		{Page: 3, Text: "third page text"},
	})
	require.Len(t, chunks, 1)
	assert.Equal(t, 6, chunks[0].TokenCount)
	assert.Equal(t, 1, chunks[0].Page)
}

func TestSplitWhitespaceOnlyDocument(t *testing.T) {
	c := NewChunker(800, 150)

	assert.Empty(t, c.Split("doc-1", []model.PageText{{Page: 1, Text: "  \n "}}))
	assert.Empty(t, c.Split("doc-1", nil))
}

func TestSplitPreservesOriginalWhitespace(t *testing.T) {
	c := NewChunker(800, 150)

	text := "alpha  beta\n\ngamma\tdelta"
	chunks := c.Split("doc-1", []model.PageText{{Page: 1, Text: text}})
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].TextContent, "块文本应是原文切片而非重新拼接")
}

func TestNewChunkerFallsBackOnBadParams(t *testing.T) {
	c := NewChunker(0, -5)
	assert.Equal(t, defaultChunkSize, c.size)
	assert.Equal(t, defaultChunkOverlap, c.overlap)

	c = NewChunker(100, 100)
	assert.Equal(t, 100, c.size)
	assert.Less(t, c.overlap, c.size)
}
