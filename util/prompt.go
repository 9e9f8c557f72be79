package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for values on the controlling terminal.  When
// In is not a terminal (piped input, tests) it falls back to reading
// one line per answer, and the same buffered reader is handed on to
// the console frontend so no typed-ahead input is lost.
type Prompter struct {
	in  *os.File
	out io.Writer
	r   *bufio.Reader
}

// NewPrompter returns a Prompter reading from in and writing prompts
// to out.
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, r: bufio.NewReader(in)}
}

// Interactive reports whether input comes from a terminal.
func (p *Prompter) Interactive() bool {
	return term.IsTerminal(int(p.in.Fd()))
}

// Reader exposes the buffered input for whoever consumes stdin next.
func (p *Prompter) Reader() *bufio.Reader { return p.r }

// Line prints prompt and returns the next input line without its
// terminator.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return p.readLine()
}

// Secret prints prompt and reads a value without echo when attached to
// a terminal.
func (p *Prompter) Secret(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.Interactive() {
		return p.readLine()
	}
	b, err := term.ReadPassword(int(p.in.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(b), nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
