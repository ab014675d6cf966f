package transporter

import (
	"fmt"
	"strings"

	"deploykit/internal/templates"
)

// EscapePassword escapes every "$" so the shell does not expand it.
// Single quotes in the password are not handled.
func EscapePassword(password string) string {
	return strings.ReplaceAll(password, "$", `\$`)
}

func (t *Transporter) buildDownloadCommand(appleID, destination string) (string, error) {
	out, err := templates.Render("download", templates.DownloadCmdTmpl, templates.Config{
		BinaryPath: t.binaryPath,
		Username:   t.username,
		Password:   EscapePassword(t.password),
		AppleID:    appleID,
		Dir:        destination,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build download command: %w", err)
	}
	return string(out), nil
}

func (t *Transporter) buildUploadCommand(source string) (string, error) {
	out, err := templates.Render("upload", templates.UploadCmdTmpl, templates.Config{
		BinaryPath: t.binaryPath,
		Username:   t.username,
		Password:   EscapePassword(t.password),
		Dir:        source,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build upload command: %w", err)
	}
	return string(out), nil
}
