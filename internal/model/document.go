// Package model 定义了与数据库表对应的 Go 结构体以及对外的 DTO。
package model

import "time"

// 文档索引状态，记录在 Redis 中并随文档列表返回。
const (
	IndexStatusPending = "pending" // 已上传，等待处理
	IndexStatusIndexed = "indexed" // 分块与向量均已写入索引
	IndexStatusEmpty   = "empty"   // 未提取到任何文本，文档保留但无分块
	IndexStatusFailed  = "failed"  // 处理失败
)

// Document 定义了 documents 表的 ORM 模型。
// 它独立于向量索引记录每个上传文档的元数据。
type Document struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"filename"`
	PageCount  int       `gorm:"not null;default:0" json:"pages"`
	TotalSize  int64     `gorm:"not null" json:"size"`
	ObjectName string    `gorm:"type:varchar(300);not null" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// DocumentDTO 在返回给前端时附加索引状态。
type DocumentDTO struct {
	Document
	IndexStatus string `json:"indexStatus"`
}

// PageText 表示提取出的单页文本，页码从 1 开始。
type PageText struct {
	Page int
	Text string
}
