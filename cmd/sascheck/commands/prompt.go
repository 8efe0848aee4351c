package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"sascheck/internal/domain"
)

// prompt asks on the terminal whether the codes match.
type prompt struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newPrompt(in io.Reader, out io.Writer) *prompt {
	return &prompt{in: bufio.NewReader(in), out: out}
}

var _ domain.Confirmer = (*prompt)(nil)

type line struct {
	s   string
	err error
}

func (p *prompt) ConfirmSAS(ctx context.Context, code string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Does your peer's screen show %s? [y/N]: ", groupDigits(code))
	ch := make(chan line, 1)
	go func() {
		s, err := p.in.ReadString('\n')
		ch <- line{s, err}
	}()
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case l := <-ch:
		if l.err != nil && l.s == "" {
			return false, l.err
		}
		switch strings.ToLower(strings.TrimSpace(l.s)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

// groupDigits splits a code into groups of three for reading aloud.
func groupDigits(code string) string {
	if len(code) <= 4 {
		return code
	}
	var b strings.Builder
	for i, r := range code {
		if i > 0 && (len(code)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// autoConfirm accepts every code. Used for the loopback peer.
type autoConfirm struct{}

func (autoConfirm) ConfirmSAS(context.Context, string) (bool, error) { return true, nil }
