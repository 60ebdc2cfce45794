// Package vectorstore 定义了向量索引的统一能力集与可选后端实现。
package vectorstore

import (
	"context"
	"fmt"

	"docology-go/internal/config"
	"docology-go/pkg/es"
)

// Entry 是写入向量索引的一条分块记录。
type Entry struct {
	ChunkKey     string
	DocumentID   string
	Ordinal      int
	Page         int
	TextContent  string
	TokenCount   int
	Vector       []float32
	ModelVersion string
}

// Candidate 是一次检索返回的候选条目。
// Score 为与查询向量的余弦相似度，Rank 为重排后的名次（从 0 开始）。
type Candidate struct {
	Entry
	Score float64
	Rank  int
}

// SearchOptions 控制一次检索的行为。
// FetchK 是 MMR 重排前的候选池大小；Lambda 趋向 1 偏重相关性，趋向 0 偏重多样性。
// DocumentIDs 为空表示在全部文档范围内检索。
type SearchOptions struct {
	K           int
	FetchK      int
	Lambda      float64
	DocumentIDs []string
}

// Store 是向量索引后端的统一接口，调用方不感知具体实现。
// 实现必须保证：并发读与单写互不阻塞且读端只会看到写入前或写入后的完整状态；
// 按文档删除是全有或全无的；Clear 幂等。
type Store interface {
	// Upsert 原子地替换一个文档的全部索引条目。
	Upsert(ctx context.Context, documentID string, entries []Entry) error
	// DeleteByDocument 删除某个文档的全部条目，不影响其他文档。对未索引的 id 是空操作。
	DeleteByDocument(ctx context.Context, documentID string) error
	// Clear 清空整个索引。
	Clear(ctx context.Context) error
	// Search 返回按相似度与多样性重排后的候选，数量不超过 opts.K。
	Search(ctx context.Context, queryVector []float32, opts SearchOptions) ([]Candidate, error)
	// ModelVersion 返回索引中记录的向量模型版本；空索引返回空串。
	ModelVersion(ctx context.Context) (string, error)
}

// New 根据配置的 backend 标志选择具体实现，进程启动后不再切换。
func New(cfg config.VectorStoreConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "elasticsearch":
		return NewESStore(es.ESClient, cfg.Elasticsearch.IndexName), nil
	default:
		return nil, fmt.Errorf("未知的向量索引后端: %s", cfg.Backend)
	}
}

// applySearchDefaults 为缺省的检索参数补上默认值。
func applySearchDefaults(opts *SearchOptions) {
	if opts.K <= 0 {
		opts.K = 8
	}
	if opts.FetchK < opts.K {
		opts.FetchK = 4 * opts.K
	}
	if opts.Lambda < 0 || opts.Lambda > 1 {
		opts.Lambda = 0.7
	}
}
