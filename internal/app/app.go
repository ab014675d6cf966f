package app

import (
	"fmt"
	"path/filepath"
)

// PackageSuffix is the directory suffix the transporter expects for upload sources
const PackageSuffix = ".itmsp"

// App describes a single application on the distribution service
type App struct {
	AppleID     string // Remote identifier
	MetadataDir string // Local metadata directory
}

// New creates a validated App
func New(appleID, metadataDir string) (*App, error) {
	a := &App{AppleID: appleID, MetadataDir: metadataDir}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate ensures the descriptor can be handed to the transporter
func (a *App) Validate() error {
	if a == nil {
		return fmt.Errorf("no app given")
	}
	if a.AppleID == "" {
		return fmt.Errorf("app missing apple id")
	}
	if a.MetadataDir == "" {
		return fmt.Errorf("app %s missing metadata directory", a.AppleID)
	}
	return nil
}

// PackagePath returns the itmsp package directory for this app inside dir.
// An empty dir falls back to the metadata directory.
func (a *App) PackagePath(dir string) string {
	if dir == "" {
		dir = a.MetadataDir
	}
	return filepath.Join(dir, a.AppleID+PackageSuffix)
}
