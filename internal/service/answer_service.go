package service

import (
	"context"
	"strings"

	"docology-go/internal/config"
	"docology-go/internal/model"
	"docology-go/pkg/llm"
	"docology-go/pkg/log"
)

// 缺省的系统提示与无结果回复，可通过配置 llm.prompt 覆盖。
const (
	defaultRules = "You are a document question answering assistant. Answer strictly based on the reference " +
		"content between the REF markers below; never invent facts that are not in the references. " +
		"Structure the answer with UPPERCASE section headings where helpful and use • bullets for lists. " +
		"After each claim, add an inline citation marker such as [1] that points to the numbered reference " +
		"block supporting it. If the references do not contain the answer, say so explicitly."

	defaultNoResultAnswer = "No relevant documents found to answer this question. Please try uploading related documents first."
)

// AnswerService 定义了问答编排的接口。
type AnswerService interface {
	// Ask 执行一次完整的问答：检索、装配上下文、调用补全并解析引用。
	Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error)
}

type answerService struct {
	retrieveService RetrieveService
	assembler       *ContextAssembler
	llmClient       llm.Client
}

// NewAnswerService 创建一个新的 AnswerService 实例。
func NewAnswerService(retrieveService RetrieveService, assembler *ContextAssembler, llmClient llm.Client) AnswerService {
	return &answerService{
		retrieveService: retrieveService,
		assembler:       assembler,
		llmClient:       llmClient,
	}
}

// Ask 按固定状态推进单次问答：
// RECEIVED → EMBEDDED → RETRIEVED → CONTEXT_BUILT → COMPOSING → DONE，
// 任何一步失败进入 ERROR。除补全服务的一次重试外，各步都不自动重试。
func (s *answerService) Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error) {
	log.Infof("[Query] state=RECEIVED, query: %q, 限定文档数: %d", req.Query, len(req.DocumentIDs))

	candidates, err := s.retrieveService.Retrieve(ctx, req.Query, req.DocumentIDs)
	if err != nil {
		log.Errorf("[Query] state=ERROR, 检索失败: %v", err)
		return nil, err
	}

	// 检索不到相关内容不是错误：返回无依据的正常应答，引用列表为空
	if len(candidates) == 0 {
		log.Infof("[Query] state=DONE, 无相关上下文")
		return &model.AskResponse{
			Content:   s.noResultAnswer(),
			Citations: []model.Citation{},
		}, nil
	}

	assembled := s.assembler.Assemble(candidates)
	log.Infof("[Query] state=CONTEXT_BUILT, 入选分块数: %d", len(assembled.Sources))

	messages := []llm.Message{
		{Role: "system", Content: s.buildSystemMessage(assembled.Text)},
		{Role: "user", Content: req.Query},
	}
	log.Info("[Query] state=COMPOSING, 调用补全服务")

	content, err := s.llmClient.Complete(ctx, messages)
	if err != nil {
		log.Errorf("[Query] state=ERROR, 补全失败: %v", err)
		return nil, err
	}

	citations := resolveCitations(content, assembled.Sources)
	log.Infof("[Query] state=DONE, 答案长度: %d, 引用数: %d", len(content), len(citations))

	return &model.AskResponse{
		Content:   content,
		Citations: citations,
	}, nil
}

// buildSystemMessage 用规则文本与 REF 包裹符组装 system 消息。
func (s *answerService) buildSystemMessage(contextText string) string {
	rules := config.Conf.LLM.Prompt.Rules
	if rules == "" {
		rules = defaultRules
	}
	refStart := config.Conf.LLM.Prompt.RefStart
	if refStart == "" {
		refStart = "<<REF>>"
	}
	refEnd := config.Conf.LLM.Prompt.RefEnd
	if refEnd == "" {
		refEnd = "<<END>>"
	}

	var sys strings.Builder
	sys.WriteString(rules)
	sys.WriteString("\n\n")
	sys.WriteString(refStart)
	sys.WriteString("\n")
	sys.WriteString(contextText)
	sys.WriteString("\n")
	sys.WriteString(refEnd)
	return sys.String()
}

func (s *answerService) noResultAnswer() string {
	if text := config.Conf.LLM.Prompt.NoResultText; text != "" {
		return text
	}
	return defaultNoResultAnswer
}
