package ai

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/cvagent/internal/model"
)

type fakeBedrock struct {
	converseIn *bedrockruntime.ConverseInput
	converse   *bedrockruntime.ConverseOutput
	invokeIn   *bedrockruntime.InvokeModelInput
	invokeBody []byte
}

func (f *fakeBedrock) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.converseIn = params
	return f.converse, nil
}

func (f *fakeBedrock) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.invokeIn = params
	return &bedrockruntime.InvokeModelOutput{Body: f.invokeBody}, nil
}

func TestBedrockChat_ParsesToolUse(t *testing.T) {
	fake := &fakeBedrock{converse: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role: types.ConversationRoleAssistant,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String("tu-1"),
					Name:      aws.String("retrieve"),
					Input:     document.NewLazyDocument(map[string]interface{}{"query": "skills"}),
				}},
			},
		}},
	}}
	p := &bedrockProvider{client: fake}

	msg, err := p.Chat(context.Background(), "anthropic.claude-3-haiku", &ChatRequest{
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: "sys"},
			{Role: model.RoleHuman, Content: "What are his skills?"},
		},
		Tools: []model.ToolSpec{{Name: "retrieve", Params: []model.ToolParam{{Name: "query", Type: "string", Required: true}}}},
	})
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	require.Equal(t, "tu-1", msg.ToolCalls[0].ID)
	require.JSONEq(t, `{"query":"skills"}`, string(msg.ToolCalls[0].Arguments))

	require.Equal(t, "anthropic.claude-3-haiku", aws.ToString(fake.converseIn.ModelId))
	require.Len(t, fake.converseIn.System, 1)
	require.Len(t, fake.converseIn.Messages, 1)
	require.NotNil(t, fake.converseIn.ToolConfig)
}

func TestBedrockChat_TextAnswer(t *testing.T) {
	fake := &fakeBedrock{converse: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: " He knows Go. "}},
		}},
	}}
	p := &bedrockProvider{client: fake}
	msg, err := p.Chat(context.Background(), "m", &ChatRequest{})
	require.NoError(t, err)
	require.Equal(t, "He knows Go.", msg.Content)
	require.False(t, msg.HasToolCalls())
}

func TestToBedrockMessages_FoldsToolResults(t *testing.T) {
	_, out := toBedrockMessages([]model.Message{
		{Role: model.RoleHuman, Content: "q"},
		{Role: model.RoleAI, ToolCalls: []model.ToolCall{
			{ID: "a", Name: "retrieve", Arguments: json.RawMessage(`{"query":"x"}`)},
			{ID: "b", Name: "retrieve", Arguments: json.RawMessage(`{"query":"y"}`)},
		}},
		{Role: model.RoleTool, ToolCallID: "a", Content: "ra"},
		{Role: model.RoleTool, ToolCallID: "b", Content: "rb"},
		{Role: model.RoleAI, Content: "done"},
	})
	require.Len(t, out, 4)
	require.Equal(t, types.ConversationRoleUser, out[2].Role)
	require.Len(t, out[2].Content, 2)
}

func TestBedrockEmbed_Titan(t *testing.T) {
	fake := &fakeBedrock{invokeBody: []byte(`{"embedding":[0.25,0.75]}`)}
	p := &bedrockProvider{client: fake}
	vec, err := p.Embed(context.Background(), "amazon.titan-embed-text-v2:0", "hello", TaskTypeRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, []float32{0.25, 0.75}, vec)
	require.JSONEq(t, `{"inputText":"hello"}`, string(fake.invokeIn.Body))
}
