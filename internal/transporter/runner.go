package transporter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/crypto/ssh"
)

// maxLineSize bounds a single line of transporter output
const maxLineSize = 1024 * 1024

// Runner executes a shell command line attached to a terminal and streams
// every output line to onLine. It returns once the output stream is closed.
type Runner interface {
	Run(ctx context.Context, command string, onLine func(line string)) error
}

// ExitError reports a non-zero exit status of the spawned shell
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	switch e.Code {
	case 126:
		return "transporter could not be executed (exit status 126)"
	case 127:
		return "transporter not found (exit status 127)"
	}
	return fmt.Sprintf("transporter exited with status %d", e.Code)
}

// Started reports whether the shell managed to start the transporter.
// 126 and 127 are the shell's "cannot execute" and "not found" codes.
func (e *ExitError) Started() bool {
	return e.Code != 126 && e.Code != 127
}

// PTYRunner runs commands locally through a shell on a pseudo-terminal.
// The transporter disables output buffering when it sees a terminal.
type PTYRunner struct {
	Shell string
}

// NewPTYRunner creates a PTYRunner using /bin/sh
func NewPTYRunner() *PTYRunner {
	return &PTYRunner{Shell: "/bin/sh"}
}

// Run implements Runner
func (r *PTYRunner) Run(ctx context.Context, command string, onLine func(line string)) error {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	f, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start transporter: %w", err)
	}
	defer f.Close()

	readErr := scanLines(f, onLine)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return fmt.Errorf("transporter cancelled: %w", ctx.Err())
	}
	if readErr != nil {
		return fmt.Errorf("failed to read transporter output: %w", readErr)
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return waitErr
}

// scanLines feeds r to onLine until EOF. Reading a pty whose child has
// exited fails with EIO on Linux, which is treated as end of stream.
func scanLines(r io.Reader, onLine func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, syscall.EIO) {
		return err
	}
	return nil
}

// PTYClient runs a command on a remote host inside a terminal session
type PTYClient interface {
	RunPTY(ctx context.Context, cmd string, onLine func(line string)) error
}

// RemoteRunner runs the transporter on a remote host, typically a macOS
// build machine reached over SSH.
type RemoteRunner struct {
	client PTYClient
}

// NewRemoteRunner creates a RemoteRunner on top of client
func NewRemoteRunner(client PTYClient) *RemoteRunner {
	return &RemoteRunner{client: client}
}

// Run implements Runner
func (r *RemoteRunner) Run(ctx context.Context, command string, onLine func(line string)) error {
	err := r.client.RunPTY(ctx, command, onLine)
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitStatus()}
	}
	return err
}
