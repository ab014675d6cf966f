package transporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// writeScript creates an executable fake transporter in a temp dir
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pty runner requires a unix shell")
	}
	path := filepath.Join(t.TempDir(), "iTMSTransporter")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestPTYRunner_StreamsLines(t *testing.T) {
	script := writeScript(t, `
echo "first"
echo "> WARN: second"
if [ -t 1 ]; then echo "tty"; else echo "pipe"; fi
`)

	var lines []string
	err := NewPTYRunner().Run(context.Background(), script, func(l string) {
		lines = append(lines, strings.TrimRight(l, "\r"))
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "> WARN: second", "tty"}, lines)
}

func TestPTYRunner_ExitStatus(t *testing.T) {
	script := writeScript(t, "exit 3\n")

	err := NewPTYRunner().Run(context.Background(), script, func(string) {})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.True(t, exitErr.Started())
}

func TestPTYRunner_MissingBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pty runner requires a unix shell")
	}
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	err := NewPTYRunner().Run(context.Background(), missing+" -m upload", func(string) {})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.False(t, exitErr.Started())
}

func TestPTYRunner_BadShell(t *testing.T) {
	r := &PTYRunner{Shell: filepath.Join(t.TempDir(), "no-shell")}

	err := r.Run(context.Background(), "true", func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start transporter")
}

func TestTransporter_PTYEndToEnd(t *testing.T) {
	script := writeScript(t, `
echo "[2024-01-01 10:00:00 UTC] <main> DBG-X: args $*"
echo "    > WARN: Image too small"
echo "> ERROR: ITMS-4000: bad"
echo "> ERROR: ITMS-5000: worse"
exit 1
`)

	rec := &recordingLogger{}
	tr, err := NewTransporter(context.Background(), Options{
		Username:   "dev@example.com",
		Password:   "pw",
		BinaryPath: script,
		Logger:     rec,
	})
	require.NoError(t, err)

	_, err = tr.Download(context.Background(), testApp(), t.TempDir())
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "ITMS-4000: bad\nITMS-5000: worse", err.Error())
	assert.Equal(t, []string{"Image too small"}, transferErr.Warnings)
}

func TestTransporter_PTYSuccess(t *testing.T) {
	script := writeScript(t, `
echo "> WARN: only a warning"
echo "> Package upload complete"
`)

	rec := &recordingLogger{}
	tr, err := NewTransporter(context.Background(), Options{
		Username:   "dev@example.com",
		Password:   "pw",
		BinaryPath: script,
		Logger:     rec,
	})
	require.NoError(t, err)

	res, err := tr.Upload(context.Background(), testApp(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"only a warning"}, res.Warnings)
	assert.Contains(t, rec.debugs, "[Transporter Output]: Package upload complete")
}

func TestTransporter_UnspawnableBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pty runner requires a unix shell")
	}

	rec := &recordingLogger{}
	tr, err := NewTransporter(context.Background(), Options{
		Username:   "dev@example.com",
		Password:   "pw",
		BinaryPath: filepath.Join(t.TempDir(), "missing", "iTMSTransporter"),
		Logger:     rec,
	})
	require.NoError(t, err)

	_, err = tr.Download(context.Background(), testApp(), "")
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Contains(t, err.Error(), "not found")
	assert.Len(t, rec.errs, 1)
}

// fakePTYClient stands in for an SSH connection
type fakePTYClient struct {
	lines []string
	err   error
	cmd   string
}

func (f *fakePTYClient) RunPTY(_ context.Context, cmd string, onLine func(string)) error {
	f.cmd = cmd
	for _, l := range f.lines {
		onLine(l)
	}
	return f.err
}

func TestRemoteRunner(t *testing.T) {
	client := &fakePTYClient{lines: []string{"> ERROR: remote failure"}}
	rec := &recordingLogger{}
	tr, err := NewTransporterWithDeps(context.Background(), Options{
		Username:   "dev@example.com",
		Password:   "pw",
		BinaryPath: DefaultBinaryPath,
		Logger:     rec,
	}, NewRemoteRunner(client))
	require.NoError(t, err)

	_, err = tr.Download(context.Background(), testApp(), "")
	assert.EqualError(t, err, "remote failure")
	assert.True(t, strings.HasPrefix(client.cmd, DefaultBinaryPath+" -m lookupMetadata"))
}

func TestRemoteRunner_Errors(t *testing.T) {
	client := &fakePTYClient{err: errors.New("ssh: handshake failed")}
	err := NewRemoteRunner(client).Run(context.Background(), "x", func(string) {})
	assert.EqualError(t, err, "ssh: handshake failed")

	client.err = &ssh.ExitError{Waitmsg: ssh.Waitmsg{}}
	err = NewRemoteRunner(client).Run(context.Background(), "x", func(string) {})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 0, exitErr.Code)
}

type fakeFileInfo struct {
	os.FileInfo
	dir bool
}

func (f fakeFileInfo) IsDir() bool { return f.dir }

func TestLocator(t *testing.T) {
	existing := map[string]bool{"/usr/local/itms/bin/iTMSTransporter": false, "/Applications/Transporter.app/Contents/itms/bin/iTMSTransporter": true}
	newLocator := func(env string, onPath string) *Locator {
		return &Locator{
			Getenv: func(k string) string {
				if k == PathEnv {
					return env
				}
				return ""
			},
			LookPath: func(string) (string, error) {
				if onPath == "" {
					return "", errors.New("not found")
				}
				return onPath, nil
			},
			Stat: func(p string) (os.FileInfo, error) {
				isDir, ok := existing[p]
				if !ok {
					return nil, os.ErrNotExist
				}
				return fakeFileInfo{dir: isDir}, nil
			},
			Candidates: []string{
				"/Applications/Transporter.app/Contents/itms/bin/iTMSTransporter",
				"/usr/local/itms/bin/iTMSTransporter",
			},
		}
	}

	tests := []struct {
		name     string
		explicit string
		env      string
		onPath   string
		want     string
	}{
		{name: "explicit wins", explicit: "/x/iTMSTransporter", env: "/env/bin", onPath: "/path/bin", want: "/x/iTMSTransporter"},
		{name: "env before PATH", env: "/env/bin", onPath: "/path/bin", want: "/env/bin"},
		{name: "PATH before known locations", onPath: "/path/bin", want: "/path/bin"},
		{name: "known location, directories skipped", want: "/usr/local/itms/bin/iTMSTransporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newLocator(tt.env, tt.onPath).Locate(tt.explicit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("nothing found", func(t *testing.T) {
		l := newLocator("", "")
		l.Candidates = nil
		_, err := l.Locate("")
		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})
}
