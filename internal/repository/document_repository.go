// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"

	"docology-go/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ErrDocumentNotFound 表示按 id 查找的文档不存在。
var ErrDocumentNotFound = errors.New("文档不存在")

// DocumentRepository 定义了文档元数据的持久化操作，索引状态存放在 Redis。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id string) (*model.Document, error)
	FindAll() ([]model.Document, error)
	FindBatchByIDs(ids []string) ([]*model.Document, error)
	Update(doc *model.Document) error
	Delete(id string) error

	// 索引状态操作（Redis）
	SetIndexStatus(ctx context.Context, id, status string) error
	GetIndexStatus(ctx context.Context, id string) (string, error)
	DeleteIndexStatus(ctx context.Context, id string) error
}

type documentRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB, redisClient *redis.Client) DocumentRepository {
	return &documentRepository{db: db, redisClient: redisClient}
}

func (r *documentRepository) indexStatusKey(id string) string {
	return "indexing:" + id
}

// Create 在数据库中创建一条文档记录。
func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// FindByID 按 id 查找文档；不存在时返回 ErrDocumentNotFound。
func (r *documentRepository) FindByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindAll 按上传时间倒序返回全部文档。
func (r *documentRepository) FindAll() ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Order("created_at desc").Find(&docs).Error
	return docs, err
}

// FindBatchByIDs 批量查找文档记录，结果顺序不保证与入参一致。
func (r *documentRepository) FindBatchByIDs(ids []string) ([]*model.Document, error) {
	var docs []*model.Document
	if len(ids) == 0 {
		return docs, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&docs).Error
	return docs, err
}

// Update 保存文档记录的全部字段。
func (r *documentRepository) Update(doc *model.Document) error {
	return r.db.Save(doc).Error
}

// Delete 按 id 删除文档记录，不存在时是空操作。
func (r *documentRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.Document{}).Error
}

// SetIndexStatus 在 Redis 中记录文档的索引状态。
func (r *documentRepository) SetIndexStatus(ctx context.Context, id, status string) error {
	return r.redisClient.Set(ctx, r.indexStatusKey(id), status, 0).Err()
}

// DeleteIndexStatus 移除文档的索引状态记录，键不存在时是空操作。
func (r *documentRepository) DeleteIndexStatus(ctx context.Context, id string) error {
	return r.redisClient.Del(ctx, r.indexStatusKey(id)).Err()
}

// GetIndexStatus 读取文档的索引状态；无记录时返回空串。
func (r *documentRepository) GetIndexStatus(ctx context.Context, id string) (string, error) {
	val, err := r.redisClient.Get(ctx, r.indexStatusKey(id)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
