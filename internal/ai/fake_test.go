package ai

import (
	"context"
	"sync"

	"github.com/xxxsen/cvagent/internal/model"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	name  string
	calls int
	errs  []error
	vec   []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.vec, nil
}

func (f *fakeEmbedder) ModelName() string {
	return f.name
}

type fakeChatModel struct {
	name  string
	calls int
	err   error
	reply *model.Message
}

func (f *fakeChatModel) Chat(ctx context.Context, req *ChatRequest) (*model.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) ModelName() string {
	return f.name
}
