package handler

import (
	"errors"
	"net/http"

	"docology-go/internal/model"
	"docology-go/internal/service"
	"docology-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AskHandler 结构体定义了问答相关的处理器。
type AskHandler struct {
	answerService service.AnswerService
}

// NewAskHandler 创建一个新的 AskHandler 实例。
func NewAskHandler(answerService service.AnswerService) *AskHandler {
	return &AskHandler{answerService: answerService}
}

// Ask 处理一次同步问答请求。
func (h *AskHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[AskHandler] 请求体无效: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	resp, err := h.answerService.Ask(c.Request.Context(), req)
	if err != nil {
		status, message := classifyAskError(err)
		c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": resp})
}

// classifyAskError 将服务层错误映射为对用户有区分度的响应。
// 补全服务不可用与模型版本不一致是两类需要用户感知的错误。
func classifyAskError(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrCompletionUnavailable):
		log.Errorf("[AskHandler] 补全服务不可用: %v", err)
		return http.StatusServiceUnavailable, "AI 服务暂时不可用，请稍后重试"
	case errors.Is(err, model.ErrModelMismatch):
		log.Errorf("[AskHandler] 模型版本不一致: %v", err)
		return http.StatusConflict, "向量索引与当前模型版本不一致，请重建索引"
	case errors.Is(err, model.ErrIndexCorruption):
		log.Errorf("[AskHandler] 索引不一致: %v", err)
		return http.StatusInternalServerError, "索引数据不一致，请重建索引"
	default:
		log.Errorf("[AskHandler] 问答失败: %v", err)
		return http.StatusInternalServerError, "问答失败"
	}
}
