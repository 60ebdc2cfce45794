package model

// AskRequest 定义了问答 API 的请求体结构。
// DocumentIDs 为空表示在全部文档范围内检索。
type AskRequest struct {
	Query       string   `json:"query" binding:"required"`
	DocumentIDs []string `json:"document_ids"`
}

// Citation 表示答案中一条可核验的引用来源。
// Marker 是答案文本中的内联标号，从 1 开始。
// Label 是展示用文本：引用只涉及一个文档时为 "p. N"，跨文档时为 "文件名, p. N"。
type Citation struct {
	FileName string `json:"filename"`
	Page     int    `json:"page"`
	Marker   int    `json:"marker"`
	Label    string `json:"label"`
}

// AskResponse 定义了返回给前端的问答结果结构。
type AskResponse struct {
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
}

// RetrievedCandidate 表示一次检索返回的候选分块，仅在单次查询内存在。
// Score 是与查询的相似度，Rank 是多样性重排后的名次（从 0 开始）。
type RetrievedCandidate struct {
	ChunkKey    string
	DocumentID  string
	FileName    string
	Page        int
	Ordinal     int
	TextContent string
	TokenCount  int
	Score       float64
	Rank        int
}
