package ai

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/cvagent/internal/model"
)

// hangingEmbedder blocks until ctx is done for its first `hangs` calls.
type hangingEmbedder struct {
	hangs int32
	calls atomic.Int32
}

func (h *hangingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if h.calls.Add(1) <= h.hangs {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []float32{1, 0}, nil
}

func (h *hangingEmbedder) ModelName() string {
	return "hang"
}

type hangingChat struct{}

func (hangingChat) Chat(ctx context.Context, req *ChatRequest) (*model.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (hangingChat) ModelName() string {
	return "hang"
}

func TestWrapTimeoutEmbedder_BoundsHungCall(t *testing.T) {
	e := WrapTimeoutEmbedder(&hangingEmbedder{hangs: 1}, 20*time.Millisecond)
	start := time.Now()
	_, err := e.Embed(context.Background(), "q", TaskTypeRetrievalQuery)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, "hang", e.ModelName())
}

func TestWrapTimeoutEmbedder_RetriedPerAttempt(t *testing.T) {
	inner := &hangingEmbedder{hangs: 1}
	e := WrapRetryEmbedder(WrapTimeoutEmbedder(inner, 20*time.Millisecond), 2, time.Millisecond)

	vec, err := e.Embed(context.Background(), "q", TaskTypeRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 0}, vec)
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestRetryEmbedder_StopsWhenCallerCancels(t *testing.T) {
	inner := &hangingEmbedder{hangs: 100}
	e := WrapRetryEmbedder(WrapTimeoutEmbedder(inner, 10*time.Millisecond), 50, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.Embed(ctx, "q", TaskTypeRetrievalQuery)
	require.Error(t, err)
	require.Less(t, inner.calls.Load(), int32(50))
}

func TestWrapTimeoutChatModel(t *testing.T) {
	m := WrapTimeoutChatModel(hangingChat{}, 20*time.Millisecond)
	_, err := m.Chat(context.Background(), &ChatRequest{})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	inner := &fakeChatModel{}
	require.Same(t, inner, WrapTimeoutChatModel(inner, 0))
	embed := &fakeEmbedder{}
	require.Same(t, embed, WrapTimeoutEmbedder(embed, 0))
}
