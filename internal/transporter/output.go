package transporter

import (
	"regexp"
	"strings"
)

// Transporter output lines of interest look like "> ERROR: ...", "> WARN: ..."
// or just "> ..." with optional leading whitespace.
var (
	errorRegex   = regexp.MustCompile(`^\s*>\s*ERROR:\s+(.+)`)
	warningRegex = regexp.MustCompile(`^\s*>\s*WARN:\s+(.+)`)
	outputRegex  = regexp.MustCompile(`^\s*>\s+(.+)`)
)

// Result is the outcome of one transporter run
type Result struct {
	Errors   []string
	Warnings []string
}

// Failed reports whether any error was collected
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// record classifies one line of output. It returns the text to forward to
// the debug log when the line is generic transporter output. An ERROR line is
// also generic output, both checks run independently.
func (r *Result) record(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")

	if m := errorRegex.FindStringSubmatch(line); m != nil {
		r.Errors = append(r.Errors, m[1])
	} else if m := warningRegex.FindStringSubmatch(line); m != nil {
		r.Warnings = append(r.Warnings, m[1])
	}

	if m := outputRegex.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	return "", false
}
