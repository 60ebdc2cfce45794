package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"docology-go/internal/config"
	"docology-go/internal/model"
	"docology-go/internal/pipeline"
	"docology-go/internal/repository"
	"docology-go/internal/vectorstore"
	"docology-go/pkg/kafka"
	"docology-go/pkg/log"
	"docology-go/pkg/storage"
	"docology-go/pkg/tasks"

	"github.com/google/uuid"
)

// DocumentService 定义了文档管理操作的接口。
type DocumentService interface {
	// Upload 保存原始文件并投递异步索引任务。
	Upload(ctx context.Context, fileName string, size int64, contentType string, reader io.Reader) (*model.Document, error)
	// List 返回全部文档及各自的索引状态。
	List(ctx context.Context) ([]model.DocumentDTO, error)
	// Delete 删除单个文档：索引条目、分块记录、原始文件与元数据。幂等。
	Delete(ctx context.Context, id string) error
	// DeleteAll 删除全部文档。
	DeleteAll(ctx context.Context) error
	// Reindex 清空索引后对全部文档重建。
	Reindex(ctx context.Context) error
	// ClearIndex 仅清空索引，保留文档与原始文件。
	ClearIndex(ctx context.Context) error
}

type documentService struct {
	docRepo   repository.DocumentRepository
	chunkRepo repository.ChunkRepository
	store     vectorstore.Store
	processor *pipeline.Processor
	gate      *pipeline.IndexGate
	minioCfg  config.MinIOConfig
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	store vectorstore.Store,
	processor *pipeline.Processor,
	gate *pipeline.IndexGate,
	minioCfg config.MinIOConfig,
) DocumentService {
	return &documentService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		store:     store,
		processor: processor,
		gate:      gate,
		minioCfg:  minioCfg,
	}
}

// Upload 将文件写入 MinIO、创建元数据记录并投递 Kafka 索引任务。
// 入库流程由消费端异步执行，本方法返回时文档处于 pending 状态。
func (s *documentService) Upload(ctx context.Context, fileName string, size int64, contentType string, reader io.Reader) (*model.Document, error) {
	id := uuid.NewString()
	objectName := fmt.Sprintf("uploads/%s_%s", id, fileName)

	if err := storage.PutObject(ctx, s.minioCfg.BucketName, objectName, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("上传文件到 MinIO 失败: %w", err)
	}

	doc := &model.Document{
		ID:         id,
		FileName:   fileName,
		TotalSize:  size,
		ObjectName: objectName,
	}
	if err := s.docRepo.Create(doc); err != nil {
		// 元数据写入失败时回收已上传的对象，避免留下孤儿文件
		if rmErr := storage.RemoveObject(ctx, s.minioCfg.BucketName, objectName); rmErr != nil {
			log.Errorf("回收 MinIO 对象失败, Object: %s: %v", objectName, rmErr)
		}
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	if err := s.docRepo.SetIndexStatus(ctx, id, model.IndexStatusPending); err != nil {
		log.Errorf("设置文档索引状态失败, DocumentID: %s: %v", id, err)
	}

	task := tasks.DocumentIndexTask{
		DocumentID: id,
		FileName:   fileName,
		ObjectName: objectName,
		TotalSize:  size,
	}
	if err := kafka.ProduceIndexTask(task); err != nil {
		if statusErr := s.docRepo.SetIndexStatus(ctx, id, model.IndexStatusFailed); statusErr != nil {
			log.Errorf("标记文档失败状态出错: %v", statusErr)
		}
		return nil, fmt.Errorf("投递索引任务失败: %w", err)
	}

	log.Infof("文档上传成功并已投递索引任务, DocumentID: %s, FileName: %s", id, fileName)
	return doc, nil
}

// List 返回全部文档，并为每个文档补上 Redis 中的索引状态。
func (s *documentService) List(ctx context.Context) ([]model.DocumentDTO, error) {
	docs, err := s.docRepo.FindAll()
	if err != nil {
		return nil, fmt.Errorf("读取文档列表失败: %w", err)
	}

	dtos := make([]model.DocumentDTO, 0, len(docs))
	for _, doc := range docs {
		status, err := s.docRepo.GetIndexStatus(ctx, doc.ID)
		if err != nil {
			log.Errorf("读取文档索引状态失败, DocumentID: %s: %v", doc.ID, err)
			status = ""
		}
		if status == "" {
			status = model.IndexStatusPending
		}
		dtos = append(dtos, model.DocumentDTO{Document: doc, IndexStatus: status})
	}
	return dtos, nil
}

// Delete 删除单个文档的全部痕迹。对不存在的 id 是空操作。
// 与索引重建互斥，与其他读写并发进行。
func (s *documentService) Delete(ctx context.Context, id string) error {
	s.gate.RLock()
	defer s.gate.RUnlock()
	return s.deleteOne(ctx, id)
}

func (s *documentService) deleteOne(ctx context.Context, id string) error {
	doc, err := s.docRepo.FindByID(id)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("查找文档失败: %w", err)
	}

	if err := s.store.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("删除向量索引条目失败: %w", err)
	}
	if err := s.chunkRepo.DeleteByDocumentID(id); err != nil {
		return fmt.Errorf("删除分块记录失败: %w", err)
	}
	if err := storage.RemoveObject(ctx, s.minioCfg.BucketName, doc.ObjectName); err != nil {
		log.Errorf("删除 MinIO 对象失败, Object: %s: %v", doc.ObjectName, err)
	}
	if err := s.docRepo.DeleteIndexStatus(ctx, id); err != nil {
		log.Errorf("删除文档索引状态失败, DocumentID: %s: %v", id, err)
	}
	if err := s.docRepo.Delete(id); err != nil {
		return fmt.Errorf("删除文档记录失败: %w", err)
	}

	log.Infof("文档删除成功, DocumentID: %s, FileName: %s", id, doc.FileName)
	return nil
}

// DeleteAll 逐个删除全部文档。
func (s *documentService) DeleteAll(ctx context.Context) error {
	s.gate.RLock()
	defer s.gate.RUnlock()

	docs, err := s.docRepo.FindAll()
	if err != nil {
		return fmt.Errorf("读取文档列表失败: %w", err)
	}

	var errs []error
	for _, doc := range docs {
		if err := s.deleteOne(ctx, doc.ID); err != nil {
			log.Errorf("删除文档失败, DocumentID: %s: %v", doc.ID, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("删除全部文档部分失败（%d/%d）: %w", len(errs), len(docs), errors.Join(errs...))
	}
	return nil
}

// Reindex 委托给 Processor 重建整个索引。
func (s *documentService) Reindex(ctx context.Context) error {
	return s.processor.ReindexAll(ctx)
}

// ClearIndex 委托给 Processor 清空索引。
func (s *documentService) ClearIndex(ctx context.Context) error {
	return s.processor.ClearIndex(ctx)
}
