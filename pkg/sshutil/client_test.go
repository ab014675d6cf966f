package sshutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kevinburke/ssh_config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home := os.Getenv("HOME")

	assert.Equal(t, filepath.Join(home, "test/file"), expandPath("~/test/file"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}

func TestNewClientFromConfig(t *testing.T) {
	cfg, err := ssh_config.Decode(strings.NewReader(`
Host mac-builder
  HostName 10.0.0.20
  User ci
  Port 2222
  IdentityFile ~/.ssh/mac_ci
  StrictHostKeyChecking no
`))
	require.NoError(t, err)

	c := newClientFromConfig("mac-builder", cfg)
	assert.Equal(t, "10.0.0.20", c.Host)
	assert.Equal(t, "ci", c.User)
	assert.Equal(t, "2222", c.Port)
	assert.Equal(t, "~/.ssh/mac_ci", c.Key)
	assert.False(t, c.StrictHostKeys)
}

func TestNewClientFromConfig_Defaults(t *testing.T) {
	t.Setenv("USER", "tester")

	c := newClientFromConfig("build.example.com", &ssh_config.Config{})
	assert.Equal(t, "build.example.com", c.Host)
	assert.Equal(t, "tester", c.User)
	assert.Equal(t, "22", c.Port)
	assert.True(t, c.StrictHostKeys)
}

func TestStreamLines(t *testing.T) {
	var lines []string
	err := streamLines(strings.NewReader("a\r\n> ERROR: b\r\nc"), func(l string) {
		lines = append(lines, l)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "> ERROR: b", "c"}, lines)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStreamLines_Error(t *testing.T) {
	err := streamLines(failingReader{}, func(string) {})
	assert.EqualError(t, err, "connection reset")
}

func TestClose_NotConnected(t *testing.T) {
	c := &Client{Alias: "x"}
	assert.NoError(t, c.Close())
}
