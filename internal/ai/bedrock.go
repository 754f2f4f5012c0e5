package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/xxxsen/cvagent/internal/model"
)

type bedrockConfig struct {
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
}

type bedrockAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type bedrockProvider struct {
	client bedrockAPI
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (p *bedrockProvider) Name() string {
	return "bedrock"
}

func (p *bedrockProvider) Chat(ctx context.Context, model string, req *ChatRequest) (*model.Message, error) {
	system, msgs := toBedrockMessages(req.Messages)
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: msgs,
	}
	if system != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = &types.ToolConfiguration{Tools: toBedrockTools(req.Tools)}
	}
	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, err
	}
	return fromBedrockOutput(out)
}

func (p *bedrockProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, err
	}
	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, err
	}
	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode bedrock embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embedding, nil
}

// toBedrockMessages folds consecutive tool results into the single user turn
// that Converse expects right after a tool-use turn.
func toBedrockMessages(msgs []model.Message) (string, []types.Message) {
	var system []string
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case model.RoleSystem:
			system = append(system, m.Content)
		case model.RoleHuman:
			out = append(out, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		case model.RoleAI:
			blocks := make([]types.ContentBlock, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: m.Content})
			}
			for _, call := range m.ToolCalls {
				args := map[string]interface{}{}
				_ = json.Unmarshal(call.Arguments, &args)
				blocks = append(blocks, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String(call.ID),
					Name:      aws.String(call.Name),
					Input:     document.NewLazyDocument(args),
				}})
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, types.Message{Role: types.ConversationRoleAssistant, Content: blocks})
		case model.RoleTool:
			block := &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
				ToolUseId: aws.String(m.ToolCallID),
				Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: m.Content}},
			}}
			if n := len(out); n > 0 && out[n-1].Role == types.ConversationRoleUser && isToolResultTurn(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, types.Message{Role: types.ConversationRoleUser, Content: []types.ContentBlock{block}})
		}
	}
	return strings.Join(system, "\n\n"), out
}

func isToolResultTurn(m types.Message) bool {
	for _, block := range m.Content {
		if _, ok := block.(*types.ContentBlockMemberToolResult); !ok {
			return false
		}
	}
	return len(m.Content) > 0
}

func toBedrockTools(specs []model.ToolSpec) []types.Tool {
	out := make([]types.Tool, 0, len(specs))
	for _, spec := range specs {
		out = append(out, &types.ToolMemberToolSpec{Value: types.ToolSpecification{
			Name:        aws.String(spec.Name),
			Description: aws.String(spec.Description),
			InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(spec.JSONSchema())},
		}})
	}
	return out
}

func fromBedrockOutput(out *bedrockruntime.ConverseOutput) (*model.Message, error) {
	if out == nil {
		return nil, fmt.Errorf("bedrock response is empty")
	}
	member, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("bedrock response has no message")
	}
	msg := &model.Message{Role: model.RoleAI, Ctime: time.Now().UnixMilli()}
	var texts []string
	for _, block := range member.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			texts = append(texts, b.Value)
		case *types.ContentBlockMemberToolUse:
			args := map[string]interface{}{}
			if b.Value.Input != nil {
				if err := b.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
					return nil, fmt.Errorf("decode tool use input: %w", err)
				}
			}
			raw, err := json.Marshal(args)
			if err != nil {
				return nil, err
			}
			msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: raw,
			})
		}
	}
	msg.Content = strings.TrimSpace(strings.Join(texts, "\n"))
	return msg, nil
}

func newBedrockProvider(args interface{}) (*bedrockProvider, error) {
	cfg := &bedrockConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if region := strings.TrimSpace(cfg.Region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if ak := strings.TrimSpace(cfg.AccessKeyID); ak != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, strings.TrimSpace(cfg.SecretAccessKey), strings.TrimSpace(cfg.SessionToken)),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &bedrockProvider{client: bedrockruntime.NewFromConfig(awsCfg)}, nil
}

func createBedrockFactory(args interface{}) (IChatProvider, error) {
	return newBedrockProvider(args)
}

func createBedrockEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newBedrockProvider(args)
}

func init() {
	Register("bedrock", createBedrockFactory)
	RegisterEmbed("bedrock", createBedrockEmbedFactory)
}
