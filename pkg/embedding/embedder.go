// Package embedding 提供本地确定性的文本向量化实现。
package embedding

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"docology-go/internal/config"
)

// Embedder 将文本映射为定长稠密向量。
// 相同的文本与模型版本必须产生比特级相同的向量，计算完全在本地完成。
type Embedder interface {
	// Embed 计算单条文本的向量。超出最大输入长度的文本从尾部截断，不报错。
	Embed(text string) []float32
	// EmbedBatch 批量计算向量，输出顺序与输入顺序严格一致。
	EmbedBatch(texts []string) [][]float32
	Dimension() int
	// ModelVersion 标识当前模型，索引与查询两侧必须一致。
	ModelVersion() string
}

// hashingEmbedder 是基于特征哈希（hashing trick）的本地向量化实现。
// 词与相邻词对经 FNV-64 哈希映射到固定维度，带符号累加后做 L2 归一化。
type hashingEmbedder struct {
	dim       int
	maxTokens int
	model     string
}

// NewEmbedder 根据配置创建一个本地 Embedder 实例。
func NewEmbedder(cfg config.EmbeddingConfig) Embedder {
	return &hashingEmbedder{
		dim:       cfg.Dimensions,
		maxTokens: cfg.MaxInputTokens,
		model:     cfg.Model,
	}
}

func (e *hashingEmbedder) Dimension() int {
	return e.dim
}

func (e *hashingEmbedder) ModelVersion() string {
	return fmt.Sprintf("%s-d%d", e.model, e.dim)
}

// Embed 计算文本的向量表示。空文本返回全零向量。
func (e *hashingEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dim)

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) > e.maxTokens {
		// 从尾部确定性截断，保证每个分块都能进入索引
		tokens = tokens[:e.maxTokens]
	}
	if len(tokens) == 0 {
		return vec
	}

	for i, tok := range tokens {
		e.addFeature(vec, tok, 1.0)
		if i+1 < len(tokens) {
			// 相邻词对作为次级特征，保留局部词序信息
			e.addFeature(vec, tok+" "+tokens[i+1], 0.5)
		}
	}

	normalize(vec)
	return vec
}

// EmbedBatch 依次计算每条文本的向量，输出下标与输入下标一一对应。
func (e *hashingEmbedder) EmbedBatch(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.Embed(t)
	}
	return out
}

// addFeature 将一个特征哈希到向量的某个分量上，最高位决定符号。
func (e *hashingEmbedder) addFeature(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// normalize 对向量做 L2 归一化，使余弦相似度可以用点积计算。
func normalize(vec []float32) {
	var sq float64
	for _, v := range vec {
		sq += float64(v) * float64(v)
	}
	if sq == 0 {
		return
	}
	norm := float32(math.Sqrt(sq))
	for i := range vec {
		vec[i] /= norm
	}
}
