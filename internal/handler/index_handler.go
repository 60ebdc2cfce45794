package handler

import (
	"net/http"

	"docology-go/internal/service"
	"docology-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// IndexHandler 结构体定义了索引维护相关的处理器。
type IndexHandler struct {
	documentService service.DocumentService
}

// NewIndexHandler 创建一个新的 IndexHandler 实例。
func NewIndexHandler(documentService service.DocumentService) *IndexHandler {
	return &IndexHandler{documentService: documentService}
}

// Reindex 清空并重建整个向量索引。期间入库与检索会被阻塞。
func (h *IndexHandler) Reindex(c *gin.Context) {
	log.Info("[IndexHandler] 收到重建索引请求")
	if err := h.documentService.Reindex(c.Request.Context()); err != nil {
		log.Errorf("[IndexHandler] 重建索引失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "重建索引失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": nil})
}

// Clear 清空向量索引，保留文档与原始文件。重复调用是安全的。
func (h *IndexHandler) Clear(c *gin.Context) {
	log.Info("[IndexHandler] 收到清空索引请求")
	if err := h.documentService.ClearIndex(c.Request.Context()); err != nil {
		log.Errorf("[IndexHandler] 清空索引失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "清空索引失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": nil})
}
