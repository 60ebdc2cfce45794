// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"docology-go/internal/service"
	"docology-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 结构体定义了文档管理相关的处理器。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload 处理文档上传请求，返回时文档尚未完成索引。
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warnf("[DocumentHandler] 上传请求缺少文件: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "缺少上传文件", "data": nil})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("[DocumentHandler] 打开上传文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败", "data": nil})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	doc, err := h.documentService.Upload(c.Request.Context(), fileHeader.Filename, fileHeader.Size, contentType, file)
	if err != nil {
		log.Errorf("[DocumentHandler] 上传文档失败, FileName: %s: %v", fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "上传文档失败", "data": nil})
		return
	}

	log.Infof("[DocumentHandler] 文档上传成功, DocumentID: %s, FileName: %s", doc.ID, doc.FileName)
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": doc})
}

// List 返回全部文档及索引状态。
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context())
	if err != nil {
		log.Errorf("[DocumentHandler] 读取文档列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取文档列表失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": docs})
}

// Delete 删除单个文档。对不存在的 id 也返回成功。
func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "缺少文档 id", "data": nil})
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), id); err != nil {
		log.Errorf("[DocumentHandler] 删除文档失败, DocumentID: %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "删除文档失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": nil})
}

// DeleteAll 删除全部文档。
func (h *DocumentHandler) DeleteAll(c *gin.Context) {
	if err := h.documentService.DeleteAll(c.Request.Context()); err != nil {
		log.Errorf("[DocumentHandler] 删除全部文档失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "删除全部文档失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": nil})
}
