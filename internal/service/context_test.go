package service

import (
	"fmt"
	"strings"
	"testing"

	"docology-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateOfTokens(key string, rank, tokens int) model.RetrievedCandidate {
	words := make([]string, tokens)
	for i := range words {
		words[i] = fmt.Sprintf("%s-w%d", key, i)
	}
	return model.RetrievedCandidate{
		ChunkKey:    key,
		DocumentID:  "doc",
		FileName:    "report.pdf",
		Page:        1,
		Rank:        rank,
		TextContent: strings.Join(words, " "),
		TokenCount:  tokens,
	}
}

func TestAssemblePrefixWithinBudget(t *testing.T) {
	a := NewContextAssembler(250)

	assembled := a.Assemble([]model.RetrievedCandidate{
		candidateOfTokens("c0", 0, 100),
		candidateOfTokens("c1", 1, 100),
		candidateOfTokens("c2", 2, 100), // 超预算，不入选
	})
	require.Len(t, assembled.Sources, 2)
	assert.Equal(t, "c0", assembled.Sources[0].ChunkKey)
	assert.Equal(t, "c1", assembled.Sources[1].ChunkKey)
	assert.Contains(t, assembled.Text, "[1] (report.pdf, p. 1)")
	assert.Contains(t, assembled.Text, "[2] (report.pdf, p. 1)")
	assert.NotContains(t, assembled.Text, "[3]")
}

func TestAssembleTruncatesOversizedTopCandidate(t *testing.T) {
	a := NewContextAssembler(10)

	assembled := a.Assemble([]model.RetrievedCandidate{candidateOfTokens("c0", 0, 50)})
	require.Len(t, assembled.Sources, 1)
	assert.Equal(t, 10, assembled.Sources[0].TokenCount)
	assert.Equal(t, 10, len(strings.Fields(assembled.Sources[0].TextContent)))
	assert.Contains(t, assembled.Sources[0].TextContent, "c0-w9")
	assert.NotContains(t, assembled.Sources[0].TextContent, "c0-w10")
}

func TestAssembleEmptyCandidates(t *testing.T) {
	a := NewContextAssembler(100)

	assembled := a.Assemble(nil)
	assert.Empty(t, assembled.Sources)
	assert.Empty(t, assembled.Text)
}

func TestTruncateTokensKeepsPrefix(t *testing.T) {
	assert.Equal(t, "a b", truncateTokens("a b c d", 2))
	assert.Equal(t, "a b c d", truncateTokens("a b c d", 10))
}
