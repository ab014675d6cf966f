package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"deploykit/internal/config"
	"deploykit/internal/credentials"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploykit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: info
transporter:
  path: /from/config
credentials:
  username: config-user
`), 0644))

	cfg, err := loadConfig(GlobalOptions{
		ConfigPath:  path,
		LogLevel:    "debug",
		Username:    "flag-user",
		Transporter: "/from/flag",
		Remote:      "mac-builder",
	})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "flag-user", cfg.Credentials.Username)
	assert.Equal(t, "/from/flag", cfg.Transporter.Path)
	assert.Equal(t, "mac-builder", cfg.Transporter.Remote)
}

func TestResolveApp(t *testing.T) {
	cfg := &config.Config{Apps: []config.AppConfig{{AppleID: "987", MetadataDir: "/meta/987"}}}

	a, err := resolveApp(cfg, "987", "")
	require.NoError(t, err)
	assert.Equal(t, "/meta/987", a.MetadataDir)

	a, err = resolveApp(cfg, "987", "/override")
	require.NoError(t, err)
	assert.Equal(t, "/override", a.MetadataDir)

	a, err = resolveApp(cfg, "111", "/adhoc")
	require.NoError(t, err)
	assert.Equal(t, "111", a.AppleID)

	_, err = resolveApp(cfg, "111", "")
	assert.ErrorContains(t, err, "not configured")
}

func TestCredentialChain(t *testing.T) {
	noPrompt := false
	chain, err := credentialChain(context.Background(), config.CredentialsConfig{
		UsernameEnv: "TEST_DK_USER",
		PasswordEnv: "TEST_DK_PASS",
		Prompt:      &noPrompt,
	})
	require.NoError(t, err)
	require.Len(t, chain, 1)

	t.Setenv("TEST_DK_USER", "env-user")
	t.Setenv("TEST_DK_PASS", "env-pass")
	got, err := chain.Resolve(context.Background(), credentials.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, credentials.Credentials{Username: "env-user", Password: "env-pass"}, got)

	chain, err = credentialChain(context.Background(), config.CredentialsConfig{})
	require.NoError(t, err)
	assert.Len(t, chain, 2, "env and prompt by default")
}
