package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter asks the user for input on a terminal.
type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	secret func(fd int) ([]byte, error)
}

func newTerminalPrompter() *prompter {
	return &prompter{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		fd:     int(os.Stdin.Fd()),
		secret: term.ReadPassword,
	}
}

// Line prints "label: " and reads one trimmed line. A final line without a
// newline is accepted; an empty stream is io.EOF.
func (p *prompter) Line(label string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password reads without echo. The caller wipes the result.
func (p *prompter) Password() ([]byte, error) {
	if _, err := fmt.Fprint(p.out, "Password: "); err != nil {
		return nil, err
	}
	pw, err := p.secret(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(pw) == 0 {
		return nil, errors.New("empty password")
	}
	return pw, nil
}
