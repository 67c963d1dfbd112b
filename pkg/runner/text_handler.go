package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/pkg/domain"
)

// Commands accepted at any prompt, mapped to the injected affordances.
const (
	CommandBack = ":back"
	CommandEnd  = ":end"
)

// TextHandler implements the standard text-based interface.
// Options are numbered; answering with a number picks the matching option,
// except at input nodes where numbers are submitted as typed.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	last      domain.Turn
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honor context cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) Output(ctx context.Context, turn domain.Turn) error {
	h.last = turn

	output := tui.TurnMarkdown(turn)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return err
}

func (h *TextHandler) Input(ctx context.Context) (Reply, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return Reply{}, io.EOF
			}
			if res.err != nil {
				return Reply{}, res.err
			}

			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return h.resolve(clean), nil
		}
	}
}

// resolve maps commands to controls and option numbers to option ids.
// At input turns everything else is an answer as typed.
func (h *TextHandler) resolve(text string) Reply {
	switch strings.ToLower(text) {
	case CommandBack:
		return Reply{Action: domain.ActionBack}
	case CommandEnd:
		return Reply{Action: domain.ActionEnd}
	}
	if h.last.Type == domain.TurnInput {
		return Reply{Input: text}
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(h.last.Options) {
		opt := h.last.Options[n-1]
		switch opt.OptionID {
		case domain.BackOptionID:
			return Reply{Action: domain.ActionBack}
		case domain.EndOptionID:
			return Reply{Action: domain.ActionEnd}
		}
		return Reply{Input: opt.OptionID}
	}
	return Reply{Input: text}
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}
