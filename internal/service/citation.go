package service

import (
	"fmt"

	"docology-go/internal/model"
)

// parseMarkers 用一个小状态机扫描答案文本中的 [n] 标号。
// 只接受方括号内纯数字的形式，按出现顺序返回（可能重复）。
func parseMarkers(content string) []int {
	var markers []int
	i := 0
	for i < len(content) {
		if content[i] != '[' {
			i++
			continue
		}
		j := i + 1
		n := 0
		hasDigit := false
		for j < len(content) && content[j] >= '0' && content[j] <= '9' {
			n = n*10 + int(content[j]-'0')
			hasDigit = true
			j++
		}
		if hasDigit && j < len(content) && content[j] == ']' {
			markers = append(markers, n)
			i = j + 1
			continue
		}
		i++
	}
	return markers
}

// resolveCitations 将答案中的标号解析为引用列表。
// 没有对应上下文块的标号直接丢弃；同一 (文件, 页) 只保留首次出现。
// 展示文本按引用实际涉及的文档数决定：单文档用页码，跨文档带文件名。
func resolveCitations(content string, sources []model.RetrievedCandidate) []model.Citation {
	type sourceKey struct {
		fileName string
		page     int
	}

	seen := make(map[sourceKey]struct{})
	citations := make([]model.Citation, 0)
	files := make(map[string]struct{})
	for _, marker := range parseMarkers(content) {
		if marker < 1 || marker > len(sources) {
			continue
		}
		src := sources[marker-1]
		key := sourceKey{fileName: src.FileName, page: src.Page}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		files[src.FileName] = struct{}{}
		citations = append(citations, model.Citation{
			FileName: src.FileName,
			Page:     src.Page,
			Marker:   marker,
		})
	}

	for i := range citations {
		if len(files) == 1 {
			citations[i].Label = fmt.Sprintf("p. %d", citations[i].Page)
		} else {
			citations[i].Label = fmt.Sprintf("%s, p. %d", citations[i].FileName, citations[i].Page)
		}
	}
	return citations
}
