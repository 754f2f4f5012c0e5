package tool

import (
	"context"
	"encoding/json"

	"github.com/xxxsen/cvagent/internal/model"
)

// Result carries text for the model plus a structured artifact for the caller.
type Result struct {
	Content  string
	Artifact interface{}
}

type Tool interface {
	Spec() model.ToolSpec
	Call(ctx context.Context, args json.RawMessage) (*Result, error)
}
