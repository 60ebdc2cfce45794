package service

import (
	"fmt"
	"strings"
	"unicode"

	"docology-go/internal/model"
)

// AssembledContext 是装配好的上下文块。
// Sources[i] 对应上下文中的标号 [i+1]，引用解析依赖这一映射。
type AssembledContext struct {
	Text    string
	Sources []model.RetrievedCandidate
}

// ContextAssembler 负责把检索候选压进 token 预算内并编号。
// 入选顺序遵循检索名次而非文档原始顺序，偏向相关性而非叙述连贯。
type ContextAssembler struct {
	maxTokens int
}

// NewContextAssembler 创建上下文装配器。
func NewContextAssembler(maxTokens int) *ContextAssembler {
	if maxTokens <= 0 {
		maxTokens = 3000
	}
	return &ContextAssembler{maxTokens: maxTokens}
}

// Assemble 按名次取候选前缀，累计 token 不超过预算。
// 首个候选单独超出预算时截断其文本而不是丢弃，保证至少送出一块上下文。
func (a *ContextAssembler) Assemble(candidates []model.RetrievedCandidate) AssembledContext {
	var (
		sb     strings.Builder
		used   int
		result AssembledContext
	)
	for _, c := range candidates {
		if len(result.Sources) == 0 && c.TokenCount > a.maxTokens {
			c.TextContent = truncateTokens(c.TextContent, a.maxTokens)
			c.TokenCount = a.maxTokens
		} else if used+c.TokenCount > a.maxTokens {
			break
		}

		marker := len(result.Sources) + 1
		fmt.Fprintf(&sb, "[%d] (%s, p. %d)\n%s\n\n", marker, c.FileName, c.Page, c.TextContent)
		used += c.TokenCount
		result.Sources = append(result.Sources, c)
	}
	result.Text = strings.TrimRight(sb.String(), "\n")
	return result
}

// truncateTokens 保留文本的前 n 个词，返回原文的前缀切片。
func truncateTokens(text string, n int) string {
	inToken := false
	count := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			inToken = false
			continue
		}
		if !inToken {
			if count == n {
				return strings.TrimRight(text[:i], " \t\n")
			}
			count++
			inToken = true
		}
	}
	return text
}
