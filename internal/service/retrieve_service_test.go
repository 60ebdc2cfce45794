package service

import (
	"context"
	"testing"

	"docology-go/internal/config"
	"docology-go/internal/model"
	"docology-go/internal/pipeline"
	"docology-go/internal/repository"
	"docology-go/internal/vectorstore"
	"docology-go/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocumentRepository 只实现检索路径用到的查询，其余操作留空。
type fakeDocumentRepository struct {
	docs map[string]*model.Document
}

func (f *fakeDocumentRepository) Create(doc *model.Document) error { return nil }
func (f *fakeDocumentRepository) FindByID(id string) (*model.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return doc, nil
}
func (f *fakeDocumentRepository) FindAll() ([]model.Document, error) { return nil, nil }
func (f *fakeDocumentRepository) FindBatchByIDs(ids []string) ([]*model.Document, error) {
	var out []*model.Document
	for _, id := range ids {
		if doc, ok := f.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}
func (f *fakeDocumentRepository) Update(doc *model.Document) error { return nil }
func (f *fakeDocumentRepository) Delete(id string) error           { return nil }
func (f *fakeDocumentRepository) SetIndexStatus(ctx context.Context, id, status string) error {
	return nil
}
func (f *fakeDocumentRepository) GetIndexStatus(ctx context.Context, id string) (string, error) {
	return "", nil
}
func (f *fakeDocumentRepository) DeleteIndexStatus(ctx context.Context, id string) error { return nil }

func newRetrieveFixture(t *testing.T, docs map[string]*model.Document) (RetrieveService, vectorstore.Store, embedding.Embedder) {
	t.Helper()
	embedder := embedding.NewEmbedder(config.EmbeddingConfig{Model: "hashing-v1", Dimensions: 64, MaxInputTokens: 1024})
	store := vectorstore.NewMemoryStore()
	svc := NewRetrieveService(embedder, store, &fakeDocumentRepository{docs: docs}, &pipeline.IndexGate{}, config.RetrievalConfig{
		TopK:            4,
		FetchMultiplier: 4,
		Lambda:          0.7,
	})
	return svc, store, embedder
}

func indexText(t *testing.T, store vectorstore.Store, embedder embedding.Embedder, docID string, ordinal int, text string) {
	t.Helper()
	entries := []vectorstore.Entry{{
		ChunkKey:     model.DocumentChunk{DocumentID: docID, Ordinal: ordinal}.ChunkKey(),
		DocumentID:   docID,
		Ordinal:      ordinal,
		Page:         1,
		TextContent:  text,
		TokenCount:   len(text),
		Vector:       embedder.Embed(text),
		ModelVersion: embedder.ModelVersion(),
	}}
	require.NoError(t, store.Upsert(context.Background(), docID, entries))
}

func TestRetrieveJoinsFileNames(t *testing.T) {
	svc, store, embedder := newRetrieveFixture(t, map[string]*model.Document{
		"doc-a": {ID: "doc-a", FileName: "report.pdf"},
	})
	indexText(t, store, embedder, "doc-a", 0, "quarterly budget revenue figures")

	results, err := svc.Retrieve(context.Background(), "budget figures", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "report.pdf", results[0].FileName)
	assert.Equal(t, "doc-a_0", results[0].ChunkKey)
}

func TestRetrieveScopedToMissingDocsReturnsEmpty(t *testing.T) {
	svc, store, embedder := newRetrieveFixture(t, map[string]*model.Document{
		"doc-a": {ID: "doc-a", FileName: "report.pdf"},
	})
	indexText(t, store, embedder, "doc-a", 0, "quarterly budget revenue figures")

	// 限定范围内没有任何已索引分块：返回空结果而不是回退到全索引
	results, err := svc.Retrieve(context.Background(), "budget figures", []string{"doc-x"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveModelMismatch(t *testing.T) {
	svc, store, _ := newRetrieveFixture(t, map[string]*model.Document{
		"doc-a": {ID: "doc-a", FileName: "report.pdf"},
	})
	// 索引里的向量出自另一个模型版本
	require.NoError(t, store.Upsert(context.Background(), "doc-a", []vectorstore.Entry{{
		ChunkKey:     "doc-a_0",
		DocumentID:   "doc-a",
		TextContent:  "text",
		Vector:       make([]float32, 64),
		ModelVersion: "hashing-v0-d64",
	}}))

	_, err := svc.Retrieve(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, model.ErrModelMismatch)
}

func TestRetrieveIndexCorruption(t *testing.T) {
	// 索引命中了文档库中不存在的文档
	svc, store, embedder := newRetrieveFixture(t, map[string]*model.Document{})
	indexText(t, store, embedder, "doc-ghost", 0, "orphaned chunk text")

	_, err := svc.Retrieve(context.Background(), "orphaned text", nil)
	assert.ErrorIs(t, err, model.ErrIndexCorruption)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	svc, _, _ := newRetrieveFixture(t, map[string]*model.Document{})

	results, err := svc.Retrieve(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
