package templates

import (
	"bytes"
	"text/template"
)

// Command line templates for the transporter binary.
// Username is double quoted, password and paths are single quoted.
// The password must already be escaped (see transporter.EscapePassword).

const DownloadCmdTmpl = `{{.BinaryPath}} -m lookupMetadata -u "{{.Username}}" -p '{{.Password}}' -apple_id {{.AppleID}} -destination '{{.Dir}}'`

const UploadCmdTmpl = `{{.BinaryPath}} -m upload -u "{{.Username}}" -p '{{.Password}}' -f '{{.Dir}}'`

// Config holds the variables needed to render a command line
type Config struct {
	BinaryPath string
	Username   string
	Password   string
	AppleID    string // download only
	Dir        string // destination for download, package for upload
}

// Render executes tmplStr with cfg
func Render(name, tmplStr string, cfg Config) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
