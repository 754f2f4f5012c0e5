package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/ai"
	"github.com/xxxsen/cvagent/internal/memory"
	"github.com/xxxsen/cvagent/internal/model"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
	"github.com/xxxsen/cvagent/internal/tool"
)

const DefaultMaxToolRounds = 5

type Memory interface {
	memory.Checkpointer
	Lock(threadID string) func()
}

// Turn is the outcome of one user query. Answer is always set, including the
// fallback text when Run also returns a per-turn error.
type Turn struct {
	Answer     string
	Messages   []model.Message
	Retrievals model.RetrievalResult
	ToolRounds int
}

type Agent struct {
	chat               ai.IChatModel
	tools              *tool.Registry
	mem                Memory
	systemPrompt       string
	maxToolRounds      int
	callTimeout        time.Duration
	unableAnswer       string
	insufficientAnswer string
	now                func() time.Time
}

type Option func(*Agent)

func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

func WithMaxToolRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxToolRounds = n
		}
	}
}

// WithCallTimeout bounds every model call and every tool call; zero leaves
// only the caller's deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.callTimeout = d
	}
}

func WithFallbackAnswers(unable, insufficient string) Option {
	return func(a *Agent) {
		if unable != "" {
			a.unableAnswer = unable
		}
		if insufficient != "" {
			a.insufficientAnswer = insufficient
		}
	}
}

func New(chat ai.IChatModel, tools *tool.Registry, mem Memory, opts ...Option) *Agent {
	a := &Agent{
		chat:               chat,
		tools:              tools,
		mem:                mem,
		systemPrompt:       DefaultSystemPrompt(""),
		maxToolRounds:      DefaultMaxToolRounds,
		unableAnswer:       DefaultUnableAnswer,
		insufficientAnswer: DefaultInsufficientAnswer,
		now:                time.Now,
	}
	if a.tools == nil {
		a.tools = tool.NewRegistry()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Run(ctx context.Context, threadID, query string) (*Turn, error) {
	threadID = strings.TrimSpace(threadID)
	query = strings.TrimSpace(query)
	if threadID == "" || query == "" {
		return nil, fmt.Errorf("thread id and query are required: %w", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("thread_id", threadID))

	unlock := a.mem.Lock(threadID)
	defer unlock()

	history := a.mem.Load(ctx, threadID)
	humanMsg := model.Message{Role: model.RoleHuman, Content: query, Ctime: a.now().UnixMilli()}
	msgs := make([]model.Message, 0, len(history)+2)
	if a.systemPrompt != "" {
		msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: a.systemPrompt})
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, humanMsg)

	turn := &Turn{Messages: []model.Message{humanMsg}}
	specs := a.tools.Specs()
	for round := 0; ; round++ {
		reply, err := a.callModel(ctx, msgs, specs)
		if err != nil {
			logger.Error("model call failed", zap.Int("round", round), zap.Error(err))
			return a.fail(ctx, threadID, turn, a.unableAnswer, fmt.Errorf("%w: %w", appErr.ErrModelService, err))
		}
		if !reply.HasToolCalls() {
			if strings.TrimSpace(reply.Content) == "" {
				logger.Error("model returned empty answer", zap.Int("round", round))
				return a.fail(ctx, threadID, turn, a.unableAnswer, fmt.Errorf("empty answer: %w", appErr.ErrModelService))
			}
			turn.Answer = reply.Content
			turn.Messages = append(turn.Messages, *reply)
			a.mem.Append(ctx, threadID, turn.Messages...)
			logger.Info("turn answered", zap.Int("tool_rounds", turn.ToolRounds), zap.Int("retrievals", len(turn.Retrievals)))
			return turn, nil
		}
		if round >= a.maxToolRounds {
			logger.Warn("tool rounds exceeded", zap.Int("max_tool_rounds", a.maxToolRounds))
			return a.fail(ctx, threadID, turn, a.insufficientAnswer,
				fmt.Errorf("more than %d tool rounds: %w", a.maxToolRounds, appErr.ErrToolLoopExceeded))
		}

		for i := range reply.ToolCalls {
			if reply.ToolCalls[i].ID == "" {
				reply.ToolCalls[i].ID = uuid.NewString()
			}
		}
		msgs = append(msgs, *reply)
		turn.Messages = append(turn.Messages, *reply)
		for _, call := range reply.ToolCalls {
			toolMsg := a.runTool(ctx, call, turn)
			msgs = append(msgs, toolMsg)
			turn.Messages = append(turn.Messages, toolMsg)
		}
		turn.ToolRounds++
	}
}

func (a *Agent) callModel(ctx context.Context, msgs []model.Message, specs []model.ToolSpec) (*model.Message, error) {
	if a.chat == nil {
		return nil, ai.ErrUnavailable
	}
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}
	reply, err := a.chat.Chat(ctx, &ai.ChatRequest{Messages: msgs, Tools: specs})
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, errors.New("nil model reply")
	}
	reply.Role = model.RoleAI
	if reply.Ctime == 0 {
		reply.Ctime = a.now().UnixMilli()
	}
	return reply, nil
}

// runTool never fails the turn: errors go back to the model as tool output.
func (a *Agent) runTool(ctx context.Context, call model.ToolCall, turn *Turn) model.Message {
	msg := model.Message{
		Role:       model.RoleTool,
		ToolCallID: call.ID,
		Name:       call.Name,
		Ctime:      a.now().UnixMilli(),
	}
	callCtx := ctx
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}
	res, err := a.tools.Call(callCtx, call)
	if err != nil {
		logutil.GetLogger(ctx).Warn("tool call failed", zap.String("tool", call.Name), zap.Error(err))
		msg.Content = "Error: " + err.Error()
		return msg
	}
	msg.Content = res.Content
	if hits, ok := res.Artifact.(model.RetrievalResult); ok {
		turn.Retrievals = append(turn.Retrievals, hits...)
	}
	return msg
}

// fail records the query plus the fallback answer so the thread keeps the context.
func (a *Agent) fail(ctx context.Context, threadID string, turn *Turn, answer string, err error) (*Turn, error) {
	fallback := model.Message{Role: model.RoleAI, Content: answer, Ctime: a.now().UnixMilli()}
	turn.Answer = answer
	turn.Messages = []model.Message{turn.Messages[0], fallback}
	a.mem.Append(ctx, threadID, turn.Messages...)
	return turn, err
}
