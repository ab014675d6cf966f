package credentials

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptProvider asks for missing credentials on the terminal.
// The password is read without echo.
type PromptProvider struct {
	in  *os.File
	out io.Writer

	// Overridable for tests
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
	lineReader   io.Reader
}

// NewPromptProvider creates a PromptProvider reading from in and writing prompts to out
func NewPromptProvider(in *os.File, out io.Writer) *PromptProvider {
	return &PromptProvider{
		in:           in,
		out:          out,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
		lineReader:   in,
	}
}

// Resolve implements Provider
func (p *PromptProvider) Resolve(_ context.Context, known Credentials) (Credentials, error) {
	if known.Complete() {
		return known, nil
	}

	fd := int(p.in.Fd())
	if !p.isTerminal(fd) {
		return known, &ConfigurationError{Msg: "cannot prompt for credentials: stdin is not a terminal"}
	}

	got := known
	if got.Username == "" {
		fmt.Fprint(p.out, "Username: ")
		line, err := bufio.NewReader(p.lineReader).ReadString('\n')
		if err != nil && line == "" {
			return known, &ConfigurationError{Msg: "failed to read username", Err: err}
		}
		got.Username = strings.TrimSpace(line)
	}

	if got.Password == "" {
		fmt.Fprintf(p.out, "Password for %s: ", got.Username)
		pw, err := p.readPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return known, &ConfigurationError{Msg: "failed to read password", Err: err}
		}
		got.Password = string(pw)
	}

	return got, nil
}
