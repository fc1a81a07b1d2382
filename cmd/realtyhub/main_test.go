package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "RealtyHub")
}

func TestMigrateRejectsUnknownCommand(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.toml"), "migrate", "sideways"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "unknown migrate command")
}

func TestResolveConfigPathPrefersFlag(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/realtyhub.toml")
	assert.Equal(t, "local.toml", resolveConfigPath("local.toml"))
	assert.Equal(t, "/etc/realtyhub.toml", resolveConfigPath(""))
}
