package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/agent"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

const (
	DefaultSentinel = "exit"
	promptText      = "Question: "
)

type Asker interface {
	Ask(ctx context.Context, threadID, query string) (*agent.Turn, error)
}

type Options struct {
	ThreadID string
	Sentinel string
}

type styles struct {
	banner lipgloss.Style
	label  lipgloss.Style
	answer lipgloss.Style
	err    lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		banner: r.NewStyle().Foreground(lipgloss.Color("11")),
		label:  r.NewStyle().Foreground(lipgloss.Color("10")),
		answer: r.NewStyle().Foreground(lipgloss.Color("12")),
		err:    r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Run reads one question per line until the sentinel, EOF or ctx is done.
// Per-turn failures print the fallback answer and the session continues.
func Run(ctx context.Context, in io.Reader, out io.Writer, asker Asker, opts Options) error {
	if opts.Sentinel == "" {
		opts.Sentinel = DefaultSentinel
	}
	if opts.ThreadID == "" {
		opts.ThreadID = "1"
	}
	st := newStyles(out)
	logger := logutil.GetLogger(ctx).With(zap.String("thread_id", opts.ThreadID))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	fmt.Fprintln(out, st.banner.Render(fmt.Sprintf("You can now ask questions about the CV document. Type '%s' to quit.", opts.Sentinel)))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(out, promptText)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == opts.Sentinel {
			return nil
		}
		if question == "" {
			continue
		}
		turn, err := asker.Ask(ctx, opts.ThreadID, question)
		switch {
		case err == nil:
		case turn != nil:
			logger.Warn("turn failed, showing fallback answer", zap.Error(err))
		case errors.Is(err, appErr.ErrInvalid):
			fmt.Fprintln(out, st.err.Render("Please enter a question."))
			continue
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
		fmt.Fprintln(out, st.label.Render("AI:"), st.answer.Render(turn.Answer))
	}
}
