package model

// EsChunk 定义了存储在 Elasticsearch 中的分块文档结构。
type EsChunk struct {
	ChunkKey     string    `json:"chunk_key"` // 唯一标识，documentID + ordinal
	DocumentID   string    `json:"document_id"`
	Ordinal      int       `json:"ordinal"`
	Page         int       `json:"page"`
	TextContent  string    `json:"text_content"`
	TokenCount   int       `json:"token_count"`
	Vector       []float32 `json:"vector"` // 文本内容的向量表示
	ModelVersion string    `json:"model_version"`
}
