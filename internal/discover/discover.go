package discover

import (
	"fmt"
	"strings"
)

// HostInfo describes the machine the transporter will run on
type HostInfo struct {
	Hostname      string
	OS            string
	OSVersion     string
	BinaryPath    string
	BinaryPresent bool
}

// SSHClient abstracts the remote command execution needed for discovery
type SSHClient interface {
	RunCommand(cmd string) (string, error)
}

// Probe checks the remote host and whether binaryPath is executable there
func Probe(client SSHClient, binaryPath string) (*HostInfo, error) {
	info := &HostInfo{BinaryPath: binaryPath}

	host, err := client.RunCommand("uname -n")
	if err != nil {
		return nil, fmt.Errorf("failed to get hostname: %v", err)
	}
	info.Hostname = host

	// Prints "os|version", sw_vers only exists on macOS
	out, err := client.RunCommand(`os=$(uname -s); ver=$(sw_vers -productVersion 2>/dev/null || uname -r); echo "$os|$ver"`)
	if err != nil {
		return nil, fmt.Errorf("failed to get os version: %v", err)
	}
	info.OS, info.OSVersion, err = parseOSInfo(out)
	if err != nil {
		return nil, err
	}

	// Exit status carries the answer, an error just means "not present"
	_, err = client.RunCommand(fmt.Sprintf("test -x '%s'", binaryPath))
	info.BinaryPresent = err == nil

	return info, nil
}

// IsMacOS reports whether the host runs Darwin
func (h *HostInfo) IsMacOS() bool {
	return h.OS == "Darwin"
}

// parseOSInfo parses string in "os|version" format
func parseOSInfo(raw string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(raw), "|")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid os info format, expected 2 fields, got: %s", raw)
	}
	return parts[0], parts[1], nil
}
