// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"

	"docology-go/internal/config"
	"docology-go/internal/model"
	"docology-go/internal/pipeline"
	"docology-go/internal/repository"
	"docology-go/internal/vectorstore"
	"docology-go/pkg/embedding"
	"docology-go/pkg/log"
)

// RetrieveService 定义了向量检索操作的接口。
type RetrieveService interface {
	// Retrieve 对查询向量化后在索引中检索，返回经多样性重排并补全文件名的候选。
	// documentIDs 为空表示不限定范围；限定范围内没有任何已索引分块时返回空结果。
	Retrieve(ctx context.Context, query string, documentIDs []string) ([]model.RetrievedCandidate, error)
}

type retrieveService struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	docRepo  repository.DocumentRepository
	gate     *pipeline.IndexGate
	cfg      config.RetrievalConfig
}

// NewRetrieveService 创建一个新的 RetrieveService 实例。
func NewRetrieveService(
	embedder embedding.Embedder,
	store vectorstore.Store,
	docRepo repository.DocumentRepository,
	gate *pipeline.IndexGate,
	cfg config.RetrievalConfig,
) RetrieveService {
	return &retrieveService{
		embedder: embedder,
		store:    store,
		docRepo:  docRepo,
		gate:     gate,
		cfg:      cfg,
	}
}

func (s *retrieveService) Retrieve(ctx context.Context, query string, documentIDs []string) ([]model.RetrievedCandidate, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	// 索引必须由当前配置的模型版本构建，不一致时拒绝静默检索
	indexVersion, err := s.store.ModelVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取索引模型版本失败: %w", err)
	}
	if indexVersion != "" && indexVersion != s.embedder.ModelVersion() {
		return nil, fmt.Errorf("%w: 索引为 %s, 当前为 %s", model.ErrModelMismatch, indexVersion, s.embedder.ModelVersion())
	}

	queryVector := s.embedder.Embed(query)
	log.Infof("[Query] state=EMBEDDED, 查询已向量化, 维度: %d", len(queryVector))

	candidates, err := s.store.Search(ctx, queryVector, vectorstore.SearchOptions{
		K:           s.cfg.TopK,
		FetchK:      s.cfg.TopK * s.cfg.FetchMultiplier,
		Lambda:      s.cfg.Lambda,
		DocumentIDs: documentIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	log.Infof("[Query] state=RETRIEVED, 命中候选数: %d", len(candidates))
	if len(candidates) == 0 {
		return nil, nil
	}

	results, err := s.attachFileNames(candidates)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// attachFileNames 用文档元数据补全候选的文件名。
// 索引中存在而文档库中查不到的 document_id 意味着两侧不一致，按索引损坏处理。
func (s *retrieveService) attachFileNames(candidates []vectorstore.Candidate) ([]model.RetrievedCandidate, error) {
	idSet := make(map[string]struct{})
	for _, c := range candidates {
		idSet[c.DocumentID] = struct{}{}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	docs, err := s.docRepo.FindBatchByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("批量查找文档失败: %w", err)
	}
	nameByID := make(map[string]string, len(docs))
	for _, d := range docs {
		nameByID[d.ID] = d.FileName
	}

	results := make([]model.RetrievedCandidate, 0, len(candidates))
	for _, c := range candidates {
		fileName, ok := nameByID[c.DocumentID]
		if !ok {
			log.Errorf("[Query] 索引命中了文档库中不存在的文档: %s", c.DocumentID)
			return nil, fmt.Errorf("%w: 文档 %s 不存在", model.ErrIndexCorruption, c.DocumentID)
		}
		results = append(results, model.RetrievedCandidate{
			ChunkKey:    c.ChunkKey,
			DocumentID:  c.DocumentID,
			FileName:    fileName,
			Page:        c.Page,
			Ordinal:     c.Ordinal,
			TextContent: c.TextContent,
			TokenCount:  c.TokenCount,
			Score:       c.Score,
			Rank:        c.Rank,
		})
	}
	return results, nil
}
