package vectorstore

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolFromAngles(angles []float64) []Candidate {
	query := unitVec(4, 0)
	pool := make([]Candidate, 0, len(angles))
	for i, theta := range angles {
		e := mkEntry("doc", i, unitVec(4, theta))
		pool = append(pool, Candidate{Entry: e, Score: dot(e.Vector, query)})
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].ChunkKey < pool[j].ChunkKey
	})
	return pool
}

func TestRerankMMRLambdaOneIsPlainTopK(t *testing.T) {
	pool := poolFromAngles([]float64{0.9, 0.1, 0.5, 0.3, 0.7})

	got := rerankMMR(pool, 3, 1.0)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, pool[i].ChunkKey, c.ChunkKey, "lambda=1 应退化为纯相似度排序")
		assert.Equal(t, i, c.Rank)
	}
}

func TestRerankMMRLambdaZeroPrefersDiversity(t *testing.T) {
	// 0 与 0.01 几乎重合，0.01 相关性第二高；1.2 离查询最远但与已选最不相似
	pool := poolFromAngles([]float64{0, 0.01, 1.2})

	got := rerankMMR(pool, 2, 0.0)
	require.Len(t, got, 2)
	assert.Equal(t, "doc_0", got[0].ChunkKey)
	assert.Equal(t, "doc_2", got[1].ChunkKey, "lambda=0 时应跳过近重复的候选")
}

func TestRerankMMRSkipsNearDuplicates(t *testing.T) {
	// 三条近重复加一条不同方向的候选，默认 lambda 也应该选到后者
	pool := poolFromAngles([]float64{0.0, 0.001, 0.002, math.Pi / 2})

	got := rerankMMR(pool, 2, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, "doc_0", got[0].ChunkKey)
	assert.Equal(t, "doc_3", got[1].ChunkKey)
}

func TestRerankMMRShortPool(t *testing.T) {
	pool := poolFromAngles([]float64{0.2, 0.4})

	got := rerankMMR(pool, 8, 0.7)
	assert.Len(t, got, 2, "候选不足 k 个时返回全部候选")

	assert.Nil(t, rerankMMR(nil, 8, 0.7))
	assert.Nil(t, rerankMMR(pool, 0, 0.7))
}

func TestDotOfNormalizedVectorsIsCosine(t *testing.T) {
	a := unitVec(4, 0.3)
	b := unitVec(4, 1.1)
	assert.InDelta(t, math.Cos(0.8), dot(a, b), 1e-6)
}
