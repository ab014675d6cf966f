package transporter

import (
	"fmt"
	"os"
	"os/exec"
)

const (
	// BinaryName is the transporter executable name
	BinaryName = "iTMSTransporter"
	// PathEnv overrides the transporter location
	PathEnv = "DEPLOYKIT_TRANSPORTER_PATH"
	// DefaultBinaryPath is where Transporter.app installs the binary on macOS
	DefaultBinaryPath = "/Applications/Transporter.app/Contents/itms/bin/iTMSTransporter"
)

var knownLocations = []string{
	DefaultBinaryPath,
	"/Applications/Xcode.app/Contents/SharedFrameworks/ContentDeliveryServices.framework/itms/bin/iTMSTransporter",
	"/usr/local/itms/bin/iTMSTransporter",
}

// Locator finds the transporter binary on the local machine
type Locator struct {
	Getenv     func(string) string
	LookPath   func(string) (string, error)
	Stat       func(string) (os.FileInfo, error)
	Candidates []string
}

// NewLocator creates a Locator backed by the real environment and filesystem
func NewLocator() *Locator {
	return &Locator{
		Getenv:     os.Getenv,
		LookPath:   exec.LookPath,
		Stat:       os.Stat,
		Candidates: knownLocations,
	}
}

// Locate returns explicit if set, then PathEnv, then BinaryName on PATH,
// then the first known install location that exists.
func (l *Locator) Locate(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := l.Getenv(PathEnv); p != "" {
		return p, nil
	}
	if p, err := l.LookPath(BinaryName); err == nil {
		return p, nil
	}
	for _, c := range l.Candidates {
		if info, err := l.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", &ConfigurationError{
		Msg: fmt.Sprintf("%s not found: set %s or transporter.path in the config", BinaryName, PathEnv),
	}
}
