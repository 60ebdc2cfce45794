package service

import (
	"context"
	"testing"

	"docology-go/internal/model"
	"docology-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetrieveService struct {
	candidates []model.RetrievedCandidate
	err        error
}

func (f *fakeRetrieveService) Retrieve(ctx context.Context, query string, documentIDs []string) ([]model.RetrievedCandidate, error) {
	return f.candidates, f.err
}

type fakeLLMClient struct {
	answer   string
	err      error
	messages []llm.Message
}

func (f *fakeLLMClient) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func TestAskComposesAnswerWithCitations(t *testing.T) {
	retriever := &fakeRetrieveService{candidates: []model.RetrievedCandidate{
		{ChunkKey: "a_0", DocumentID: "a", FileName: "report.pdf", Page: 2, TextContent: "budget is 1.2M", TokenCount: 4},
	}}
	client := &fakeLLMClient{answer: "BUDGET\n• The budget is 1.2M [1]."}
	svc := NewAnswerService(retriever, NewContextAssembler(100), client)

	resp, err := svc.Ask(context.Background(), model.AskRequest{Query: "what is the budget?"})
	require.NoError(t, err)
	assert.Equal(t, client.answer, resp.Content)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "report.pdf", resp.Citations[0].FileName)
	assert.Equal(t, 2, resp.Citations[0].Page)
	assert.Equal(t, "p. 2", resp.Citations[0].Label)

	// system 消息应包含 REF 包裹的上下文，user 消息是原始提问
	require.Len(t, client.messages, 2)
	assert.Equal(t, "system", client.messages[0].Role)
	assert.Contains(t, client.messages[0].Content, "<<REF>>")
	assert.Contains(t, client.messages[0].Content, "budget is 1.2M")
	assert.Contains(t, client.messages[0].Content, "<<END>>")
	assert.Equal(t, "what is the budget?", client.messages[1].Content)
}

func TestAskNoRelevantContextIsNormalAnswer(t *testing.T) {
	retriever := &fakeRetrieveService{candidates: nil}
	client := &fakeLLMClient{answer: "should not be called"}
	svc := NewAnswerService(retriever, NewContextAssembler(100), client)

	resp, err := svc.Ask(context.Background(), model.AskRequest{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, defaultNoResultAnswer, resp.Content)
	assert.Empty(t, resp.Citations)
	assert.Nil(t, client.messages, "无上下文时不应调用补全服务")
}

func TestAskSurfacesCompletionFailure(t *testing.T) {
	retriever := &fakeRetrieveService{candidates: []model.RetrievedCandidate{
		{ChunkKey: "a_0", DocumentID: "a", FileName: "report.pdf", Page: 1, TextContent: "text", TokenCount: 1},
	}}
	client := &fakeLLMClient{err: model.ErrCompletionUnavailable}
	svc := NewAnswerService(retriever, NewContextAssembler(100), client)

	_, err := svc.Ask(context.Background(), model.AskRequest{Query: "anything"})
	assert.ErrorIs(t, err, model.ErrCompletionUnavailable)
}

func TestAskPropagatesRetrieveError(t *testing.T) {
	retriever := &fakeRetrieveService{err: model.ErrModelMismatch}
	svc := NewAnswerService(retriever, NewContextAssembler(100), &fakeLLMClient{})

	_, err := svc.Ask(context.Background(), model.AskRequest{Query: "anything"})
	assert.ErrorIs(t, err, model.ErrModelMismatch)
}
