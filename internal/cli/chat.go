package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/presentation/tui"
	"github.com/aretw0/canopy/pkg/bridge"
	"github.com/aretw0/canopy/pkg/domain"
)

// maxResultWidth truncates tool results in the transcript.
const maxResultWidth = 200

// ChatOptions configures an interactive chat.
type ChatOptions struct {
	SessionID string
	// Quiet prints only final answers, hiding delegations and tool calls.
	Quiet bool
	// Markdown renders final answers as terminal markdown.
	Markdown bool
}

// transcript prints frames to a terminal or a plain writer.
type transcript struct {
	out    io.Writer
	style  *tui.Style
	render func(string) (string, error)
	quiet  bool
}

func newTranscript(out io.Writer, opts ChatOptions) *transcript {
	t := &transcript{
		out:    out,
		style:  tui.NewStyle(out),
		render: tui.PlainRenderer,
		quiet:  opts.Quiet,
	}
	if opts.Markdown {
		t.render = tui.NewRenderer()
	}
	return t
}

// RunChat reads one query per line from in and prints the hierarchy's activity and answer
// to out until in is exhausted or ctx is done. Lines "/exit" and "/quit" end the chat.
func RunChat(ctx context.Context, studio *canopy.Studio, opts ChatOptions, in io.Reader, out io.Writer) error {
	id := opts.SessionID
	if id == "" {
		var err error
		if id, err = studio.CreateSession(ctx); err != nil {
			return err
		}
	} else if err := studio.Sessions().Ensure(ctx, id); err != nil {
		return err
	}
	tr := newTranscript(out, opts)
	tr.system("Session '%s' active. Type /exit to leave.", id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		_, err := studio.Stream(ctx, id, line, func(ctx context.Context, f bridge.Frame) error {
			tr.frame(f)
			return nil
		})
		if err != nil {
			var inv *domain.InvocationError
			if errors.As(err, &inv) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (t *transcript) system(format string, args ...any) {
	fmt.Fprintln(t.out, t.style.System(">>> "+fmt.Sprintf(format, args...)))
}

// frame prints one frame of an invocation.
func (t *transcript) frame(f bridge.Frame) {
	if f.IsTerminal() {
		if f.Final.Error != "" {
			fmt.Fprintln(t.out, t.style.Error("error: "+f.Final.Error))
			return
		}
		answer, err := t.render(f.Final.Response)
		if err != nil {
			answer, _ = tui.PlainRenderer(f.Final.Response)
		}
		fmt.Fprint(t.out, answer)
		return
	}
	if f.Rejected != nil {
		fmt.Fprintln(t.out, t.style.Error(fmt.Sprintf("rejected %q: %s", f.Rejected.Query, f.Rejected.Reason)))
		return
	}
	if t.quiet || f.Event == nil {
		return
	}
	if line := describe(*f.Event); line != "" {
		fmt.Fprintln(t.out, t.style.Event("  · "+line))
	}
}

// describe renders an intermediate event as one line, or "" for events the transcript skips.
func describe(ev domain.Event) string {
	d := ev.Data
	switch ev.Type {
	case domain.EventSupervisorDelegate:
		s := fmt.Sprintf("%s → %s: %s", name(d.Source), name(d.Target), d.QueryForAgent)
		if d.Reasoning != "" {
			s += fmt.Sprintf(" (%s)", d.Reasoning)
		}
		return s
	case domain.EventAgentToolCall:
		return fmt.Sprintf("%s calls %s %v", name(d.Source), d.ToolName, d.Arguments)
	case domain.EventAgentToolResponse:
		status := "ok"
		if d.IsError {
			status = "failed"
		}
		return fmt.Sprintf("%s %s: %s", d.ToolName, status, truncate(d.Result, maxResultWidth))
	case domain.EventAgentResponse:
		return fmt.Sprintf("%s → %s: %s", name(d.Source), name(d.Target), truncate(d.Content, maxResultWidth))
	case domain.EventError:
		return "error: " + d.ErrorMessage
	default:
		return ""
	}
}

func name(r *domain.Ref) string {
	if r == nil {
		return "?"
	}
	return r.Name
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
