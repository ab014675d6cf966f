package transporter

import (
	"fmt"
	"strings"

	"deploykit/internal/credentials"
)

// ConfigurationError is returned by NewTransporter when credentials or the
// transporter binary cannot be resolved.
type ConfigurationError = credentials.ConfigurationError

// InputError is returned when Download or Upload is called without a valid app.
// No process is started in that case.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("no valid app given: %v", e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// TransferError is returned when the transporter reported ERROR lines or could
// not be run at all. Errors keeps the order in which they were encountered.
type TransferError struct {
	Errors   []string
	Warnings []string
}

func (e *TransferError) Error() string {
	return strings.Join(e.Errors, "\n")
}
