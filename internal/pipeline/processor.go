package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"docology-go/internal/config"
	"docology-go/internal/model"
	"docology-go/internal/repository"
	"docology-go/internal/vectorstore"
	"docology-go/pkg/embedding"
	"docology-go/pkg/log"
	"docology-go/pkg/storage"
	"docology-go/pkg/tasks"
	"docology-go/pkg/tika"
)

// IndexGate 协调索引的整体性操作与日常读写：
// 重建和清空索引取写锁独占，入库与检索取读锁并发进行。
type IndexGate struct {
	sync.RWMutex
}

// Processor 封装了文档索引的所有依赖和逻辑。
type Processor struct {
	tikaClient tika.Extractor
	embedder   embedding.Embedder
	store      vectorstore.Store
	chunker    *Chunker
	minioCfg   config.MinIOConfig
	docRepo    repository.DocumentRepository
	chunkRepo  repository.ChunkRepository
	gate       *IndexGate
	workers    int
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient tika.Extractor,
	embedder embedding.Embedder,
	store vectorstore.Store,
	chunker *Chunker,
	minioCfg config.MinIOConfig,
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	gate *IndexGate,
	workers int,
) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		tikaClient: tikaClient,
		embedder:   embedder,
		store:      store,
		chunker:    chunker,
		minioCfg:   minioCfg,
		docRepo:    docRepo,
		chunkRepo:  chunkRepo,
		gate:       gate,
		workers:    workers,
	}
}

// Process 是单个文档索引任务的入口。
// 持有读锁执行，与其他入库和检索并发，但会被重建/清空操作排开。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentIndexTask) error {
	p.gate.RLock()
	defer p.gate.RUnlock()
	return p.processOne(ctx, task)
}

// processOne 执行完整的索引流水线，调用方负责 IndexGate 的加锁。
func (p *Processor) processOne(ctx context.Context, task tasks.DocumentIndexTask) error {
	log.Infof("[Processor] 开始处理文档, DocumentID: %s, FileName: %s", task.DocumentID, task.FileName)

	// 1. 从 MinIO 下载文件
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Bucket: %s, Object: %s", p.minioCfg.BucketName, task.ObjectName)
	object, err := storage.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return p.fail(ctx, task.DocumentID, fmt.Errorf("从 MinIO 下载文件失败: %w", err))
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 从MinIO对象流中读取内容失败, Error: %v", err)
		return p.fail(ctx, task.DocumentID, fmt.Errorf("读取MinIO对象流失败: %w", err))
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", size)

	// 2. 使用 Tika 提取分页文本
	log.Info("[Processor] 步骤2: 使用Tika提取分页文本")
	pages, err := p.tikaClient.ExtractPages(bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", task.FileName, err)
		return p.fail(ctx, task.DocumentID, fmt.Errorf("使用 Tika 提取文本失败: %w", err))
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 共 %d 页", len(pages))

	// 3. 文本分块
	chunks := p.chunker.Split(task.DocumentID, pages)
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		// 提取不到任何内容不算处理失败：记录状态后正常结束，不触发重试
		log.Warnf("[Processor] 文档无可索引文本, DocumentID: %s: %v", task.DocumentID, model.ErrExtractionEmpty)
		p.updatePageCount(task.DocumentID, len(pages))
		if err := p.docRepo.SetIndexStatus(ctx, task.DocumentID, model.IndexStatusEmpty); err != nil {
			log.Errorf("[Processor] 更新索引状态失败: %v", err)
		}
		return nil
	}

	// 4. 模型版本校验：索引中已有不同版本的向量时拒绝混入
	existingVersion, err := p.store.ModelVersion(ctx)
	if err != nil {
		return p.fail(ctx, task.DocumentID, fmt.Errorf("读取索引模型版本失败: %w", err))
	}
	if existingVersion != "" && existingVersion != p.embedder.ModelVersion() {
		log.Errorf("[Processor] 模型版本不一致, 索引: %s, 当前: %s", existingVersion, p.embedder.ModelVersion())
		return p.fail(ctx, task.DocumentID,
			fmt.Errorf("%w: 索引为 %s, 当前为 %s", model.ErrModelMismatch, existingVersion, p.embedder.ModelVersion()))
	}

	// 5. 分块入库（先清理旧记录，保证幂等）
	if err := p.chunkRepo.DeleteByDocumentID(task.DocumentID); err != nil {
		log.Warnf("[Processor] 清理 document_chunks 旧记录失败 (document_id=%s): %v", task.DocumentID, err)
	}
	records := make([]*model.DocumentChunk, 0, len(chunks))
	for i := range chunks {
		records = append(records, &chunks[i])
	}
	if err := p.chunkRepo.BatchCreate(records); err != nil {
		return p.fail(ctx, task.DocumentID, fmt.Errorf("批量保存文本分块失败: %w", err))
	}

	// 6. 向量化并写入向量索引
	log.Infof("[Processor] 步骤4: 开始向量化 %d 个分块", len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.TextContent
	}
	vectors := p.embedder.EmbedBatch(texts)

	entries := make([]vectorstore.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorstore.Entry{
			ChunkKey:     c.ChunkKey(),
			DocumentID:   c.DocumentID,
			Ordinal:      c.Ordinal,
			Page:         c.Page,
			TextContent:  c.TextContent,
			TokenCount:   c.TokenCount,
			Vector:       vectors[i],
			ModelVersion: p.embedder.ModelVersion(),
		}
	}
	if err := p.store.Upsert(ctx, task.DocumentID, entries); err != nil {
		return p.fail(ctx, task.DocumentID, fmt.Errorf("写入向量索引失败: %w", err))
	}

	// 7. 更新文档元数据与索引状态
	p.updatePageCount(task.DocumentID, len(pages))
	if err := p.docRepo.SetIndexStatus(ctx, task.DocumentID, model.IndexStatusIndexed); err != nil {
		log.Errorf("[Processor] 更新索引状态失败: %v", err)
	}

	log.Infof("[Processor] 文档处理成功完成, DocumentID: %s, 分块数: %d", task.DocumentID, len(chunks))
	return nil
}

// fail 将文档标记为失败后原样返回错误，交由消费端决定重试。
func (p *Processor) fail(ctx context.Context, documentID string, err error) error {
	if statusErr := p.docRepo.SetIndexStatus(ctx, documentID, model.IndexStatusFailed); statusErr != nil {
		log.Errorf("[Processor] 标记文档失败状态出错: %v", statusErr)
	}
	return err
}

func (p *Processor) updatePageCount(documentID string, pageCount int) {
	doc, err := p.docRepo.FindByID(documentID)
	if err != nil {
		log.Errorf("[Processor] 查找文档记录失败, DocumentID: %s, Error: %v", documentID, err)
		return
	}
	doc.PageCount = pageCount
	if err := p.docRepo.Update(doc); err != nil {
		log.Errorf("[Processor] 更新文档页数失败, DocumentID: %s, Error: %v", documentID, err)
	}
}

// ReindexAll 清空向量索引后对全部文档重新建立索引。
// 持有写锁执行，期间新的入库与检索都会被阻塞。
func (p *Processor) ReindexAll(ctx context.Context) error {
	p.gate.Lock()
	defer p.gate.Unlock()

	log.Info("[Processor] 开始重建索引")
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("清空向量索引失败: %w", err)
	}
	if err := p.chunkRepo.Clear(); err != nil {
		return fmt.Errorf("清空分块记录失败: %w", err)
	}

	docs, err := p.docRepo.FindAll()
	if err != nil {
		return fmt.Errorf("读取文档列表失败: %w", err)
	}

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, p.workers)
		mu   sync.Mutex
		errs []error
	)
	for _, doc := range docs {
		task := tasks.DocumentIndexTask{
			DocumentID: doc.ID,
			FileName:   doc.FileName,
			ObjectName: doc.ObjectName,
			TotalSize:  doc.TotalSize,
		}
		if err := p.docRepo.SetIndexStatus(ctx, doc.ID, model.IndexStatusPending); err != nil {
			log.Errorf("[Processor] 重置索引状态失败, DocumentID: %s: %v", doc.ID, err)
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(task tasks.DocumentIndexTask) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := p.processOne(ctx, task); err != nil {
				log.Errorf("[Processor] 重建索引时处理文档失败, DocumentID: %s: %v", task.DocumentID, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(task)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("重建索引部分失败（%d/%d）: %w", len(errs), len(docs), errors.Join(errs...))
	}
	log.Infof("[Processor] 重建索引完成, 共处理 %d 个文档", len(docs))
	return nil
}

// ClearIndex 清空向量索引与分块记录，保留文档与原始文件。
// 持有写锁执行；重复调用等价于调用一次。
func (p *Processor) ClearIndex(ctx context.Context) error {
	p.gate.Lock()
	defer p.gate.Unlock()

	log.Info("[Processor] 开始清空索引")
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("清空向量索引失败: %w", err)
	}
	if err := p.chunkRepo.Clear(); err != nil {
		return fmt.Errorf("清空分块记录失败: %w", err)
	}

	docs, err := p.docRepo.FindAll()
	if err != nil {
		return fmt.Errorf("读取文档列表失败: %w", err)
	}
	for _, doc := range docs {
		if err := p.docRepo.SetIndexStatus(ctx, doc.ID, model.IndexStatusPending); err != nil {
			log.Errorf("[Processor] 重置索引状态失败, DocumentID: %s: %v", doc.ID, err)
		}
	}

	log.Info("[Processor] 清空索引完成")
	return nil
}
