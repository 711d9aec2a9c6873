package device

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for a secret.
type Prompter interface {
	Secret(prompt string) (string, error)
}

// TermPrompter reads secrets from a terminal with echo
// off. When In is not a terminal it reads one line.
type TermPrompter struct {
	In  *os.File
	Out io.Writer
}

// Secret implements Prompter.
func (tp TermPrompter) Secret(prompt string) (string, error) {
	const errCtx = "reading secret"

	in := tp.In
	if in == nil {
		in = os.Stdin
	}

	out := tp.Out
	if out == nil {
		out = os.Stderr
	}

	_, _ = fmt.Fprint(out, prompt)

	fd := int(in.Fd()) //nolint:gosec // file descriptors fit in int

	if term.IsTerminal(fd) {
		by, err := term.ReadPassword(fd)

		_, _ = fmt.Fprintln(out)

		if err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		return strings.TrimSpace(string(by)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return strings.TrimSpace(line), nil
}
