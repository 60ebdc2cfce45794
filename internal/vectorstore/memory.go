package vectorstore

import (
	"context"
	"sort"
	"sync"
)

// memoryStore 是进程内的向量索引实现，暴力余弦检索。
// 读写通过 RWMutex 隔离：查询取读锁，写入取写锁，读端不会观察到写到一半的文档。
type memoryStore struct {
	mu           sync.RWMutex
	entries      map[string]Entry // key 为 ChunkKey
	modelVersion string
}

// NewMemoryStore 创建一个空的内存向量索引。
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]Entry)}
}

// Upsert 原子地替换一个文档的全部条目。锁内先删后插，调用方不会看到中间状态。
func (s *memoryStore) Upsert(ctx context.Context, documentID string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if e.DocumentID == documentID {
			delete(s.entries, key)
		}
	}
	for _, e := range entries {
		s.entries[e.ChunkKey] = e
		if e.ModelVersion != "" {
			s.modelVersion = e.ModelVersion
		}
	}
	return nil
}

// DeleteByDocument 删除某个文档的全部条目。未索引的 id 是空操作。
func (s *memoryStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if e.DocumentID == documentID {
			delete(s.entries, key)
		}
	}
	return nil
}

// Clear 清空索引。重复调用等价于调用一次。
func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	s.modelVersion = ""
	return nil
}

// Search 先按余弦相似度取 FetchK 个候选，再做 MMR 重排返回前 K 个。
func (s *memoryStore) Search(ctx context.Context, queryVector []float32, opts SearchOptions) ([]Candidate, error) {
	applySearchDefaults(&opts)

	var allowed map[string]struct{}
	if len(opts.DocumentIDs) > 0 {
		allowed = make(map[string]struct{}, len(opts.DocumentIDs))
		for _, id := range opts.DocumentIDs {
			allowed[id] = struct{}{}
		}
	}

	s.mu.RLock()
	pool := make([]Candidate, 0, len(s.entries))
	for _, e := range s.entries {
		if allowed != nil {
			if _, ok := allowed[e.DocumentID]; !ok {
				continue
			}
		}
		pool = append(pool, Candidate{Entry: e, Score: dot(e.Vector, queryVector)})
	}
	s.mu.RUnlock()

	// 相同分数时按 ChunkKey 排序，保证结果确定
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].ChunkKey < pool[j].ChunkKey
	})
	if len(pool) > opts.FetchK {
		pool = pool[:opts.FetchK]
	}

	return rerankMMR(pool, opts.K, opts.Lambda), nil
}

// ModelVersion 返回索引中记录的模型版本；空索引返回空串。
func (s *memoryStore) ModelVersion(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return "", nil
	}
	return s.modelVersion, nil
}
