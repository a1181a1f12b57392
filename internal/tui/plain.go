package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/dev-dami/relaychat/internal/chat"
)

// Plain is a line-oriented chat.UI for pipes and dumb terminals.
type Plain struct {
	mu      sync.Mutex
	out     io.Writer
	status  string
	enabled bool
}

var _ chat.UI = (*Plain)(nil)

func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

func (p *Plain) SetStatus(text string, _ chat.Color) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.status {
		return
	}
	p.status = text
	fmt.Fprintf(p.out, "[%s]\n", text)
}

func (p *Plain) ReplaceScrollback(notice string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "-- %s --\n", notice)
}

func (p *Plain) AppendLine(line chat.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line.String())
}

func (p *Plain) SetInputEnabled(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = on
}

func (p *Plain) FocusInput() {}

func (p *Plain) inputEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// ReadLines submits every line read from in while input is enabled. It
// returns nil at end of input or when ctx is done.
func (p *Plain) ReadLines(ctx context.Context, in io.Reader, submit func(string)) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return errors.Wrap(err, "read input")
		case line := <-lines:
			if !p.inputEnabled() {
				p.mu.Lock()
				fmt.Fprintln(p.out, "[not connected, line dropped]")
				p.mu.Unlock()
				continue
			}
			submit(line)
		}
	}
}
