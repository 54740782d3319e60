package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClaudeConfigDir(t *testing.T) {
	homeDir := "/home/testuser"

	t.Run("CLAUDE_CONFIG_DIR wins", func(t *testing.T) {
		t.Setenv("CLAUDE_CONFIG_DIR", "/opt/claude")
		assert.Equal(t, "/opt/claude", getClaudeConfigDir(homeDir))
	})

	t.Run("falls back to ~/.claude", func(t *testing.T) {
		t.Setenv("CLAUDE_CONFIG_DIR", "")
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		assert.Equal(t, filepath.Join(homeDir, ".claude"), getClaudeConfigDir(homeDir))
	})

	t.Run("on Linux an existing XDG claude dir is preferred", func(t *testing.T) {
		if runtime.GOOS != "linux" {
			t.Skip("skipping test on non-Linux systems")
		}
		xdg := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(xdg, "claude", "projects"), 0755))

		t.Setenv("CLAUDE_CONFIG_DIR", "")
		t.Setenv("XDG_CONFIG_HOME", xdg)
		assert.Equal(t, filepath.Join(xdg, "claude"), getClaudeConfigDir(homeDir))
	})
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("MONORAIL_HOME", "/tmp/mr-home")
	p := DefaultPaths()

	assert.Equal(t, "/tmp/mr-home", p.Home)
	assert.Equal(t, "/tmp/mr-home/config.yaml", p.ConfigFile)
	assert.Equal(t, "/tmp/mr-home/prompts", p.PromptsDir)
	assert.Equal(t, "/tmp/mr-home/inbox.md", p.InboxFile)
	assert.Equal(t, "/tmp/mr-home/daemon.pid", p.PidFile)
	assert.Equal(t, "/tmp/mr-home/daemon.log", p.LogFile)
	assert.Equal(t, "/tmp/mr-home/activity.json", p.ActivityFile)
}

func TestEnsureHomeMigratesLegacyDir(t *testing.T) {
	root := t.TempDir()
	legacy := filepath.Join(root, ".mm")
	require.NoError(t, os.MkdirAll(legacy, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(legacy, "inbox.md"), []byte("# inbox\n"), 0644))

	p := PathsAt(filepath.Join(root, ".monorail"))
	require.NoError(t, p.EnsureHome())

	data, err := os.ReadFile(p.InboxFile)
	require.NoError(t, err)
	assert.Equal(t, "# inbox\n", string(data))
	assert.DirExists(t, p.PromptsDir)
	assert.NoDirExists(t, legacy)
}

func TestDefaultCodexSessionsDir(t *testing.T) {
	t.Setenv("CODEX_HOME", "/srv/codex")
	assert.Equal(t, "/srv/codex/sessions", DefaultCodexSessionsDir())
}
