package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"docology-go/internal/model"
	"docology-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// esStore 是基于 Elasticsearch dense_vector kNN 的向量索引实现。
// MMR 重排在客户端进行：先向 ES 取 FetchK 个候选（含向量），再本地挑选。
type esStore struct {
	client    *elasticsearch.Client
	indexName string
}

// NewESStore 创建一个 Elasticsearch 后端的向量索引。
func NewESStore(client *elasticsearch.Client, indexName string) Store {
	return &esStore{client: client, indexName: indexName}
}

// Upsert 先删除该文档的既有条目再逐条写入，避免重复写入导致的累计膨胀。
func (s *esStore) Upsert(ctx context.Context, documentID string, entries []Entry) error {
	if err := s.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("清理文档既有条目失败: %w", err)
	}

	for _, e := range entries {
		doc := model.EsChunk{
			ChunkKey:     e.ChunkKey,
			DocumentID:   e.DocumentID,
			Ordinal:      e.Ordinal,
			Page:         e.Page,
			TextContent:  e.TextContent,
			TokenCount:   e.TokenCount,
			Vector:       e.Vector,
			ModelVersion: e.ModelVersion,
		}
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		req := esapi.IndexRequest{
			Index:      s.indexName,
			DocumentID: doc.ChunkKey,
			Body:       bytes.NewReader(docBytes),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("索引分块 %s 到 Elasticsearch 失败: %w", doc.ChunkKey, err)
		}
		if res.IsError() {
			res.Body.Close()
			log.Errorf("索引分块到 Elasticsearch 出错: %s", res.String())
			return errors.New("failed to index chunk")
		}
		res.Body.Close()
	}
	return nil
}

// DeleteByDocument 按 document_id 条件删除。未命中任何条目也视为成功。
func (s *esStore) DeleteByDocument(ctx context.Context, documentID string) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"document_id": documentID},
		},
	}
	return s.deleteByQuery(ctx, query)
}

// Clear 删除索引中的全部条目，保留索引结构本身。幂等。
func (s *esStore) Clear(ctx context.Context) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	}
	return s.deleteByQuery(ctx, query)
}

func (s *esStore) deleteByQuery(ctx context.Context, query map[string]interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return fmt.Errorf("failed to encode delete query: %w", err)
	}

	refresh := true
	req := esapi.DeleteByQueryRequest{
		Index:   []string{s.indexName},
		Body:    &buf,
		Refresh: &refresh,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("elasticsearch delete_by_query failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("Elasticsearch delete_by_query 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return errors.New("elasticsearch delete_by_query returned an error")
	}
	return nil
}

// Search 通过 kNN 取 FetchK 个候选，然后在客户端做 MMR 重排。
func (s *esStore) Search(ctx context.Context, queryVector []float32, opts SearchOptions) ([]Candidate, error) {
	applySearchDefaults(&opts)

	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   queryVector,
		"k":              opts.FetchK,
		"num_candidates": opts.FetchK * 4,
	}
	if len(opts.DocumentIDs) > 0 {
		knn["filter"] = map[string]interface{}{
			"terms": map[string]interface{}{"document_id": opts.DocumentIDs},
		}
	}
	esQuery := map[string]interface{}{
		"knn":  knn,
		"size": opts.FetchK,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsChunk `json:"_source"`
				Score  float64       `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	// 按 ChunkKey 去重后进入重排，避免候选池中出现重复分块
	seen := make(map[string]struct{}, len(esResponse.Hits.Hits))
	pool := make([]Candidate, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		if _, ok := seen[hit.Source.ChunkKey]; ok {
			continue
		}
		seen[hit.Source.ChunkKey] = struct{}{}
		pool = append(pool, Candidate{
			Entry: Entry{
				ChunkKey:     hit.Source.ChunkKey,
				DocumentID:   hit.Source.DocumentID,
				Ordinal:      hit.Source.Ordinal,
				Page:         hit.Source.Page,
				TextContent:  hit.Source.TextContent,
				TokenCount:   hit.Source.TokenCount,
				Vector:       hit.Source.Vector,
				ModelVersion: hit.Source.ModelVersion,
			},
			Score: dot(hit.Source.Vector, queryVector),
		})
	}

	return rerankMMR(pool, opts.K, opts.Lambda), nil
}

// ModelVersion 取索引中任意一条记录的 model_version；空索引返回空串。
func (s *esStore) ModelVersion(ctx context.Context) (string, error) {
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithSize(1),
		s.client.Search.WithSourceIncludes("model_version"),
	)
	if err != nil {
		return "", fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ModelVersion string `json:"model_version"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return "", fmt.Errorf("failed to decode es response: %w", err)
	}
	if len(esResponse.Hits.Hits) == 0 {
		return "", nil
	}
	return esResponse.Hits.Hits[0].Source.ModelVersion, nil
}
