package service

import (
	"testing"

	"docology-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSources() []model.RetrievedCandidate {
	return []model.RetrievedCandidate{
		{ChunkKey: "a_0", DocumentID: "a", FileName: "report.pdf", Page: 2},
		{ChunkKey: "a_3", DocumentID: "a", FileName: "report.pdf", Page: 3},
		{ChunkKey: "b_1", DocumentID: "b", FileName: "notes.txt", Page: 1},
	}
}

func TestParseMarkers(t *testing.T) {
	markers := parseMarkers("预算为 120 万 [1]，明细见附表 [2][10]。")
	assert.Equal(t, []int{1, 2, 10}, markers)
}

func TestParseMarkersIgnoresMalformed(t *testing.T) {
	assert.Empty(t, parseMarkers("数组下标 [i] 与空括号 [] 以及未闭合 [3"))
	assert.Equal(t, []int{2}, parseMarkers("[x1] 不算，[2] 算"))
}

func TestResolveCitationsSingleDocumentPageOnly(t *testing.T) {
	// 引用只落在 report.pdf 上，展示文本应为纯页码
	citations := resolveCitations("The budget is 1.2M [1], detailed on the next page [2].", sampleSources())
	require.Len(t, citations, 2)
	assert.Equal(t, "p. 2", citations[0].Label)
	assert.Equal(t, "p. 3", citations[1].Label)
}

func TestResolveCitationsMultiDocumentWithFileName(t *testing.T) {
	citations := resolveCitations("See [1] and also [3].", sampleSources())
	require.Len(t, citations, 2)
	assert.Equal(t, "report.pdf, p. 2", citations[0].Label)
	assert.Equal(t, "notes.txt, p. 1", citations[1].Label)
}

func TestResolveCitationsScopeUsesCitedDocsOnly(t *testing.T) {
	// 上下文里有两个文档，但答案只引用了一个，仍按单文档渲染
	citations := resolveCitations("Only [1] is relevant.", sampleSources())
	require.Len(t, citations, 1)
	assert.Equal(t, "p. 2", citations[0].Label)
}

func TestResolveCitationsDropsUnresolvable(t *testing.T) {
	citations := resolveCitations("Claim [1], bogus [7], zero [0].", sampleSources())
	require.Len(t, citations, 1)
	assert.Equal(t, 1, citations[0].Marker)
}

func TestResolveCitationsDeduplicatesByFirstAppearance(t *testing.T) {
	citations := resolveCitations("[3] 然后 [1] 再次 [3] 最后 [1]", sampleSources())
	require.Len(t, citations, 2)
	assert.Equal(t, "notes.txt", citations[0].FileName)
	assert.Equal(t, "report.pdf", citations[1].FileName)
}

func TestResolveCitationsEmptyAnswer(t *testing.T) {
	assert.Empty(t, resolveCitations("没有任何标号的回答。", sampleSources()))
}
