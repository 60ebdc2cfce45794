package model

import "fmt"

// DocumentChunk 对应于数据库中的 document_chunks 表。
// 每条记录是文档的一个可检索分块，与向量索引中的条目一一对应。
type DocumentChunk struct {
	ID          uint   `gorm:"primaryKey;autoIncrement;column:id"`
	DocumentID  string `gorm:"type:varchar(36);not null;index;column:document_id"`
	Ordinal     int    `gorm:"not null;column:ordinal"`
	Page        int    `gorm:"not null;column:page"`
	TextContent string `gorm:"type:text;column:text_content"`
	TokenCount  int    `gorm:"not null;column:token_count"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// ChunkKey 返回分块在向量索引中的唯一标识（documentID_ordinal）。
func (c DocumentChunk) ChunkKey() string {
	return fmt.Sprintf("%s_%d", c.DocumentID, c.Ordinal)
}
