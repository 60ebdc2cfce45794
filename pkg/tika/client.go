// Package tika 提供了一个与 Apache Tika 服务器交互的客户端。
package tika

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"docology-go/internal/config"
	"docology-go/internal/model"
)

// Extractor 定义了从文件流提取分页文本的能力。
type Extractor interface {
	ExtractPages(fileReader io.Reader, fileName string) ([]model.PageText, error)
}

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL string
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(cfg config.TikaConfig) *Client {
	return &Client{serverURL: cfg.ServerURL}
}

// ExtractPages 调用 Tika 提取文本并按页拆分。
// Tika 对 PDF 等分页格式在页间输出换页符 \f；没有换页符的格式整体算第 1 页。
func (c *Client) ExtractPages(fileReader io.Reader, fileName string) ([]model.PageText, error) {
	raw, err := c.extractText(fileReader, fileName)
	if err != nil {
		return nil, err
	}
	return splitPages(raw), nil
}

// extractText 自动根据文件后缀推断 MIME 类型，并调用 Tika 提取全文。
func (c *Client) extractText(fileReader io.Reader, fileName string) (string, error) {
	contentType := detectMimeType(fileName)

	req, err := http.NewRequest("PUT", c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Tika 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("读取 Tika 响应失败: %w", err)
	}

	return buf.String(), nil
}

// splitPages 按换页符拆分全文，页码从 1 开始。
func splitPages(raw string) []model.PageText {
	parts := strings.Split(raw, "\f")
	pages := make([]model.PageText, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, model.PageText{Page: i + 1, Text: part})
	}
	return pages
}

// detectMimeType 根据文件扩展名判断 Content-Type
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		// fallback 默认
		return "application/octet-stream"
	}
	return mimeType
}
