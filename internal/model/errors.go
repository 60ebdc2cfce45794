package model

import "errors"

// 对调用方有区分意义的错误类别。
// 检索不到相关内容不属于错误，以正常应答（空引用列表）返回。
var (
	// ErrExtractionEmpty 表示文档未能提取出任何文本。
	// 不是致命错误：文档照常保留，只是没有分块进入索引。
	ErrExtractionEmpty = errors.New("文档未提取到任何文本内容")

	// ErrModelMismatch 表示索引中的向量由另一个模型版本生成。
	// 属于配置错误，必须重建索引后才能继续提供检索。
	ErrModelMismatch = errors.New("向量索引的模型版本与当前配置不一致")

	// ErrCompletionUnavailable 表示补全服务不可用（已含一次重试）。
	ErrCompletionUnavailable = errors.New("AI 补全服务暂时不可用")

	// ErrIndexCorruption 表示向量索引与文档元数据之间出现结构性不一致。
	ErrIndexCorruption = errors.New("向量索引与文档存储不一致，需要重建索引")
)
