package frontend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"linechat/internal/core"
)

// Console is a line-oriented frontend for pipes and plain terminals.
// Each message is one output line; status changes are printed as
// "-- <status>".
type Console struct {
	in  io.Reader
	out io.Writer

	mu         sync.Mutex
	lastStatus string
}

// NewConsole returns a Console reading commands from in and writing to
// out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out}
}

// DisplayMessage prints m with its label.
func (c *Console) DisplayMessage(m core.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s %s\n", Label(m), m.Text)
}

// SetStatus prints status unless it repeats the previous one.
func (c *Console) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status == c.lastStatus {
		return
	}
	c.lastStatus = status
	fmt.Fprintf(c.out, "-- %s\n", status)
}

// Run reads one intent per input line.  It returns when input ends,
// the user quits, the chat session ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context, client *core.Client) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.DisplayMessage(core.Message{Kind: core.System, Text: "Type /help for commands"})
	done := client.SessionDone()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if Dispatch(client, c, ParseIntent(line)) {
				return nil
			}
		}
	}
}
