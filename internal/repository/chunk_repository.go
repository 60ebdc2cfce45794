package repository

import (
	"docology-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 定义了对 document_chunks 表的数据操作接口。
type ChunkRepository interface {
	BatchCreate(chunks []*model.DocumentChunk) error
	FindByDocumentID(documentID string) ([]*model.DocumentChunk, error)
	DeleteByDocumentID(documentID string) error
	Clear() error
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// BatchCreate 批量创建文档分块记录。
func (r *chunkRepository) BatchCreate(chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error // 每100条记录一批
}

// FindByDocumentID 按文档 id 查找全部分块，按块序号升序返回。
func (r *chunkRepository) FindByDocumentID(documentID string) ([]*model.DocumentChunk, error) {
	var chunks []*model.DocumentChunk
	err := r.db.Where("document_id = ?", documentID).Order("ordinal asc").Find(&chunks).Error
	return chunks, err
}

// DeleteByDocumentID 删除某个文档的全部分块记录。
func (r *chunkRepository) DeleteByDocumentID(documentID string) error {
	return r.db.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error
}

// Clear 清空全部分块记录。
func (r *chunkRepository) Clear() error {
	return r.db.Where("1 = 1").Delete(&model.DocumentChunk{}).Error
}
