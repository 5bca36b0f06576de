package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/lattice/pkg/schema"
)

// ContentRenderer transforms a prompt before outputting it. This allows
// TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// Prompt carries everything a handler needs to ask for one field.
type Prompt struct {
	Field   schema.Field
	Current any
	Errors  []string
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between interactive text IO and scripted answers.
type IOHandler interface {
	// Ask presents a field prompt to the user.
	Ask(ctx context.Context, p Prompt) error

	// Input reads a response from the user.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (status updates,
	// submit verdicts). This is distinct from field prompts.
	SystemOutput(ctx context.Context, msg string) error
}

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
}

func (h *TextHandler) Ask(ctx context.Context, p Prompt) error {
	for _, msg := range p.Errors {
		fmt.Fprintf(h.Writer, "! %s\n", msg)
	}

	label := p.Field.Label
	if label == "" {
		label = p.Field.ID
	}
	if h.Renderer != nil {
		if rendered, err := h.Renderer(label); err == nil {
			label = strings.TrimSpace(rendered)
		}
	}

	fmt.Fprint(h.Writer, label)
	if p.Field.Options != nil && len(p.Field.Options.Static) > 0 {
		var values []string
		for _, opt := range p.Field.Options.Static {
			values = append(values, schema.AsString(opt.Value))
		}
		fmt.Fprintf(h.Writer, " (%s)", strings.Join(values, "/"))
	}
	if p.Current != nil {
		fmt.Fprintf(h.Writer, " [%s]", schema.AsString(p.Current))
	}
	fmt.Fprintln(h.Writer)
	return nil
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	fmt.Fprint(h.Writer, "> ")

	text, err := h.Reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintln(h.Writer, msg)
	return err
}
