package embedding

import (
	"strings"
	"testing"

	"docology-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(dim, maxTokens int) Embedder {
	return NewEmbedder(config.EmbeddingConfig{
		Model:          "hashing-v1",
		Dimensions:     dim,
		MaxInputTokens: maxTokens,
	})
}

func TestEmbedDeterministic(t *testing.T) {
	e := newTestEmbedder(128, 1024)

	a := e.Embed("预算 在 第二页 的 表格 中 给出")
	b := e.Embed("预算 在 第二页 的 表格 中 给出")

	require.Len(t, a, 128)
	assert.Equal(t, a, b, "相同文本必须产生比特级相同的向量")
}

func TestEmbedNormalized(t *testing.T) {
	e := newTestEmbedder(64, 1024)

	vec := e.Embed("quarterly budget report with revenue figures")
	var sq float64
	for _, v := range vec {
		sq += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sq, 1e-5)
}

func TestEmbedEmptyText(t *testing.T) {
	e := newTestEmbedder(32, 1024)

	vec := e.Embed("   \n\t ")
	require.Len(t, vec, 32)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedTruncatesFromEnd(t *testing.T) {
	e := newTestEmbedder(64, 10)

	words := make([]string, 50)
	for i := range words {
		words[i] = strings.Repeat("w", i+1)
	}
	full := strings.Join(words, " ")
	head := strings.Join(words[:10], " ")

	assert.Equal(t, e.Embed(head), e.Embed(full), "超长输入应等价于仅保留前 maxTokens 个词")
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	e := newTestEmbedder(64, 1024)

	texts := []string{"first chunk", "second chunk", "third chunk"}
	batch := e.EmbedBatch(texts)

	require.Len(t, batch, len(texts))
	for i, text := range texts {
		assert.Equal(t, e.Embed(text), batch[i])
	}
}

func TestModelVersionIncludesDimension(t *testing.T) {
	e := newTestEmbedder(384, 1024)
	assert.Equal(t, "hashing-v1-d384", e.ModelVersion())
}
