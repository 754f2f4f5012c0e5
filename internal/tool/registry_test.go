package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/cvagent/internal/model"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

type echoTool struct {
	name string
}

func (e *echoTool) Spec() model.ToolSpec {
	return model.ToolSpec{Name: e.name}
}

func (e *echoTool) Call(ctx context.Context, args json.RawMessage) (*Result, error) {
	return &Result{Content: string(args)}, nil
}

func TestRegistry_CallsByName(t *testing.T) {
	r := NewRegistry(&echoTool{name: "b"}, &echoTool{name: "a"})
	specs := r.Specs()
	require.Len(t, specs, 2)
	require.Equal(t, "b", specs[0].Name)
	require.Equal(t, "a", specs[1].Name)

	res, err := r.Call(context.Background(), model.ToolCall{ID: "1", Name: "a", Arguments: json.RawMessage(`{"x":1}`)})
	require.NoError(t, err)
	require.Equal(t, `{"x":1}`, res.Content)
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call(context.Background(), model.ToolCall{Name: "search_web"})
	require.ErrorIs(t, err, appErr.ErrSchemaValidation)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry(&echoTool{name: "a"})
	r.Register(&echoTool{name: "a"})
	r.Register(nil)
	require.Len(t, r.Specs(), 1)
}
