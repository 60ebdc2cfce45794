// Package pipeline 实现文档的解析、分块、向量化与索引入库流程。
package pipeline

import (
	"strings"
	"unicode"

	"docology-go/internal/model"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 150
)

// token 记录一个词在拼接全文中的字节区间及其来源页码。
type token struct {
	start int
	end   int
	page  int
}

// Chunker 按 token 数对文档做滑动窗口分块。
// size 是单块 token 上限，overlap 是相邻块的重叠 token 数。
type Chunker struct {
	size    int
	overlap int
}

// NewChunker 创建分块器。非法参数回落到默认值 800/150。
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split 将按页给出的文本切成带页码归属的分块。
// 各页文本以换行符拼接成全文，在全文上做词级滑动窗口，
// 块文本取全文的原始切片，保留原有空白。
// 跨页的块按块内 token 的多数页归属；全空白的输入返回空切片。
func (c *Chunker) Split(documentID string, pages []model.PageText) []model.DocumentChunk {
	full, tokens := flatten(pages)
	if len(tokens) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []model.DocumentChunk
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		chunks = append(chunks, model.DocumentChunk{
			DocumentID:  documentID,
			Ordinal:     len(chunks),
			Page:        majorityPage(window),
			TextContent: full[window[0].start:window[len(window)-1].end],
			TokenCount:  len(window),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// flatten 把各页文本拼接成全文，并扫描出每个词的字节区间与页码。
// 空白页不产生任何 token，但仍占据拼接后的位置。
func flatten(pages []model.PageText) (string, []token) {
	var sb strings.Builder
	var tokens []token
	for i, p := range pages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		base := sb.Len()
		sb.WriteString(p.Text)

		inToken := false
		tokenStart := 0
		for off, r := range p.Text {
			if unicode.IsSpace(r) {
				if inToken {
					tokens = append(tokens, token{start: base + tokenStart, end: base + off, page: p.Page})
					inToken = false
				}
				continue
			}
			if !inToken {
				tokenStart = off
				inToken = true
			}
		}
		if inToken {
			tokens = append(tokens, token{start: base + tokenStart, end: base + len(p.Text), page: p.Page})
		}
	}
	return sb.String(), tokens
}

// majorityPage 返回窗口内出现 token 最多的页码；并列时取更靠前的页。
func majorityPage(window []token) int {
	counts := make(map[int]int)
	for _, t := range window {
		counts[t.page]++
	}
	bestPage, bestCount := window[0].page, 0
	for page, count := range counts {
		if count > bestCount || (count == bestCount && page < bestPage) {
			bestPage, bestCount = page, count
		}
	}
	return bestPage
}
