package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"docology-go/internal/model"
	"docology-go/internal/service"
	"docology-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// WsHandler 负责处理 WebSocket 问答连接。
// 连接内每条消息是一次独立问答，答案整体下发，不做 token 级流式传输。
type WsHandler struct {
	answerService service.AnswerService
}

// NewWsHandler 创建一个新的 WsHandler。
func NewWsHandler(answerService service.AnswerService) *WsHandler {
	return &WsHandler{answerService: answerService}
}

// Handle 处理一个传入的 WebSocket 连接。
func (h *WsHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Info("WebSocket 问答连接已建立")

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var req model.AskRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Query == "" {
			h.writeError(conn, "无效的请求参数")
			continue
		}

		resp, err := h.answerService.Ask(c.Request.Context(), req)
		if err != nil {
			_, message := classifyAskError(err)
			h.writeError(conn, message)
			continue
		}

		h.writeJSON(conn, gin.H{"type": "answer", "data": resp})
		h.writeJSON(conn, gin.H{
			"type":      "completion",
			"status":    "finished",
			"message":   "响应已完成",
			"timestamp": time.Now().UnixMilli(),
		})
	}
}

func (h *WsHandler) writeError(conn *websocket.Conn, message string) {
	h.writeJSON(conn, gin.H{"type": "error", "message": message})
}

func (h *WsHandler) writeJSON(conn *websocket.Conn, payload gin.H) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("序列化 WebSocket 响应失败: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("向 WebSocket 写入消息失败: %v", err)
	}
}
