// Package transporter wraps the vendor transporter binary used to download and
// upload app metadata packages. It builds the command line, runs it on a
// pseudo-terminal and turns "> ERROR:" lines of the output into a TransferError.
package transporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"deploykit/internal/app"
	"deploykit/internal/credentials"
)

// Logger receives transporter output and diagnostics. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Transporter
type Options struct {
	Username    string
	Password    string
	Credentials credentials.Provider // asked for whatever Username/Password leave empty
	BinaryPath  string               // located with NewLocator when empty
	Logger      Logger
}

// Transporter runs downloads and uploads for a single account.
// Each call spawns its own process, so separate instances can be used concurrently.
type Transporter struct {
	username   string
	password   string
	binaryPath string
	runner     Runner
	logger     Logger
}

// NewTransporter creates a Transporter running the binary locally on a pty
func NewTransporter(ctx context.Context, opts Options) (*Transporter, error) {
	return NewTransporterWithDeps(ctx, opts, NewPTYRunner())
}

// NewTransporterWithDeps allows injecting the Runner (remote host, tests)
func NewTransporterWithDeps(ctx context.Context, opts Options, runner Runner) (*Transporter, error) {
	creds, err := resolveCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	bin, err := NewLocator().Locate(opts.BinaryPath)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transporter{
		username:   creds.Username,
		password:   creds.Password,
		binaryPath: bin,
		runner:     runner,
		logger:     logger,
	}, nil
}

func resolveCredentials(ctx context.Context, opts Options) (credentials.Credentials, error) {
	creds := credentials.Credentials{Username: opts.Username, Password: opts.Password}
	if creds.Complete() {
		return creds, nil
	}
	if opts.Credentials == nil {
		return creds, &ConfigurationError{Msg: "credentials incomplete and no credential provider configured"}
	}

	creds, err := opts.Credentials.Resolve(ctx, creds)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return creds, err
		}
		return creds, &ConfigurationError{Msg: "failed to resolve credentials", Err: err}
	}
	if !creds.Complete() {
		return creds, &ConfigurationError{Msg: "credential provider returned incomplete credentials"}
	}
	return creds, nil
}

// BinaryPath returns the transporter binary used for commands
func (t *Transporter) BinaryPath() string {
	return t.binaryPath
}

// Download fetches the metadata package of a into destination.
// An empty destination falls back to the app's metadata directory.
func (t *Transporter) Download(ctx context.Context, a *app.App, destination string) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, &InputError{Err: err}
	}
	if destination == "" {
		destination = a.MetadataDir
	}

	command, err := t.buildDownloadCommand(a.AppleID, destination)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("Downloading metadata", "app", a.AppleID, "destination", destination)
	return t.run(ctx, command)
}

// Upload sends the {dir}/{AppleID}.itmsp package of a.
// An empty dir falls back to the app's metadata directory.
func (t *Transporter) Upload(ctx context.Context, a *app.App, dir string) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, &InputError{Err: err}
	}
	source := a.PackagePath(dir)

	command, err := t.buildUploadCommand(source)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("Uploading package", "app", a.AppleID, "source", source)
	res, err := t.run(ctx, command)
	if err != nil {
		return nil, err
	}

	t.logger.Info("Successfully uploaded package. It might take a few minutes until it's visible online.", "app", a.AppleID)
	return res, nil
}

func (t *Transporter) run(ctx context.Context, command string) (*Result, error) {
	res := t.execute(ctx, command)
	if res.Failed() {
		t.logger.Debug("Transporter failed", "stack", string(debug.Stack()))
		return nil, &TransferError{Errors: res.Errors, Warnings: res.Warnings}
	}
	return res, nil
}

// execute runs command and collects its errors and warnings. Failures to run
// the process at all are folded into Errors.
func (t *Transporter) execute(ctx context.Context, command string) *Result {
	res := &Result{}

	err := t.runner.Run(ctx, command, func(line string) {
		if out, ok := res.record(line); ok {
			t.logger.Debug(fmt.Sprintf("[Transporter Output]: %s", out))
		}
	})
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Started() {
			// Failures are reported on the output stream
			t.logger.Debug("Transporter exited with non-zero status", "code", exitErr.Code)
		} else {
			t.logger.Error(err.Error())
			res.Errors = append(res.Errors, err.Error())
		}
	}

	return res
}
