package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/cvagent/internal/agent"
	"github.com/xxxsen/cvagent/internal/model"
	"github.com/xxxsen/cvagent/internal/pkg/errcode"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
	"github.com/xxxsen/cvagent/internal/pkg/response"
)

// ChatAPI is the part of the chat service exposed over HTTP.
type ChatAPI interface {
	Ask(ctx context.Context, threadID, query string) (*agent.Turn, error)
	History(ctx context.Context, threadID string) []model.Message
	Ready() bool
	Chunks() []model.Chunk
}

type ChatHandler struct {
	chat          ChatAPI
	defaultThread string
}

func NewChatHandler(chat ChatAPI, defaultThread string) *ChatHandler {
	if strings.TrimSpace(defaultThread) == "" {
		defaultThread = "1"
	}
	return &ChatHandler{chat: chat, defaultThread: defaultThread}
}

type chatRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id"`
}

type sourceItem struct {
	Source   string  `json:"source"`
	Position int     `json:"position"`
	Score    float32 `json:"score"`
}

type chatResponse struct {
	Answer   string       `json:"answer"`
	ThreadID string       `json:"thread_id"`
	Sources  []sourceItem `json:"sources"`
	Degraded bool         `json:"degraded,omitempty"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.Error(c, errcode.ErrInvalid, "query required")
		return
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = h.defaultThread
	}
	turn, err := h.chat.Ask(c.Request.Context(), scopedThread(c, threadID), req.Query)
	if err != nil && (turn == nil || !appErr.IsTurnRecoverable(err)) {
		handleError(c, err)
		return
	}
	out := chatResponse{
		Answer:   turn.Answer,
		ThreadID: threadID,
		Sources:  make([]sourceItem, 0, len(turn.Retrievals)),
		Degraded: err != nil,
	}
	for _, item := range turn.Retrievals {
		out.Sources = append(out.Sources, sourceItem{
			Source:   item.Chunk.Meta.Source,
			Position: item.Chunk.Meta.Position,
			Score:    item.Score,
		})
	}
	response.Success(c, out)
}

func (h *ChatHandler) Messages(c *gin.Context) {
	threadID := strings.TrimSpace(c.Param("id"))
	if threadID == "" {
		response.Error(c, errcode.ErrInvalid, "thread id required")
		return
	}
	msgs := h.chat.History(c.Request.Context(), scopedThread(c, threadID))
	response.Success(c, gin.H{"thread_id": threadID, "messages": msgs})
}

func (h *ChatHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"ready": h.chat.Ready(), "chunks": len(h.chat.Chunks())})
}
