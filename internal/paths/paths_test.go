package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanpelt/monorail/internal/cache"
	"github.com/vanpelt/monorail/internal/models"
)

func TestIsValidSessionUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid UUID", "cf568042-7147-4fba-a2ca-c6a646581260", true},
		{"agent file", "agent-d221d088", false},
		{"too short", "abc-123", false},
		{"wrong number of dashes", "cf5680427147-4fba-a2ca-c6a646581260", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidSessionUUID(tt.input))
		})
	}
}

func TestEncodePathForClaude(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple path", "/workspaces/myproject", "-workspaces-myproject"},
		{"path with dots", "/home/user/my.project", "-home-user-my-project"},
		{"already has leading dash", "-foo/bar", "-foo-bar"},
		{"underscores and spaces", "/home/user/my_proj/Side Notes", "-home-user-my-proj-Side-Notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodePathForClaude(tt.input))
		})
	}
}

func TestDecodeClaudeProjectPath(t *testing.T) {
	root := t.TempDir()

	t.Run("dot inside a component", func(t *testing.T) {
		project := filepath.Join(root, "jeremy.chrysler", "monorail")
		require.NoError(t, os.MkdirAll(project, 0755))

		decoded, ok := DecodeClaudeProjectPath(EncodePathForClaude(project))
		assert.True(t, ok)
		assert.Equal(t, project, decoded)
	})

	t.Run("dash inside a component", func(t *testing.T) {
		project := filepath.Join(root, "my-app", "web")
		require.NoError(t, os.MkdirAll(project, 0755))

		decoded, ok := DecodeClaudeProjectPath(EncodePathForClaude(project))
		assert.True(t, ok)
		assert.Equal(t, project, decoded)
	})

	t.Run("shortest valid prefix wins", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))
		require.NoError(t, os.MkdirAll(filepath.Join(root, "a-b"), 0755))

		decoded, ok := DecodeClaudeProjectPath(EncodePathForClaude(filepath.Join(root, "a", "b")))
		assert.True(t, ok)
		assert.Equal(t, filepath.Join(root, "a", "b"), decoded)
	})

	t.Run("backtracks out of a dead end", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "x"), 0755))
		project := filepath.Join(root, "x-y", "z")
		require.NoError(t, os.MkdirAll(project, 0755))

		decoded, ok := DecodeClaudeProjectPath(EncodePathForClaude(project))
		assert.True(t, ok)
		assert.Equal(t, project, decoded)
	})

	t.Run("underscore inside a component", func(t *testing.T) {
		project := filepath.Join(root, "my_proj")
		require.NoError(t, os.MkdirAll(project, 0755))

		decoded, ok := DecodeClaudeProjectPath(EncodePathForClaude(project))
		assert.True(t, ok)
		assert.Equal(t, project, decoded)
	})

	t.Run("space inside a component", func(t *testing.T) {
		project := filepath.Join(root, "side notes", "app")
		require.NoError(t, os.MkdirAll(project, 0755))

		decoded, ok := DecodeClaudeProjectPath(EncodePathForClaude(project))
		assert.True(t, ok)
		assert.Equal(t, project, decoded)
	})

	t.Run("falls back to naive substitution", func(t *testing.T) {
		decoded, ok := DecodeClaudeProjectPath("-definitely-not-here-zz9")
		assert.False(t, ok)
		assert.Equal(t, "/definitely/not/here/zz9", decoded)
	})

	t.Run("non-encoded name is returned as is", func(t *testing.T) {
		decoded, ok := DecodeClaudeProjectPath("plain")
		assert.False(t, ok)
		assert.Equal(t, "plain", decoded)
	})
}

func TestClaudeResolver(t *testing.T) {
	projectsDir := t.TempDir()
	project := filepath.Join(t.TempDir(), "svc.api")
	require.NoError(t, os.MkdirAll(project, 0755))

	folder := filepath.Join(projectsDir, EncodePathForClaude(project))
	require.NoError(t, os.MkdirAll(folder, 0755))

	r := ClaudeResolver{ProjectsDir: projectsDir}
	resolved, err := r.Resolve(filepath.Join(folder, "cf568042-7147-4fba-a2ca-c6a646581260.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, project, resolved)

	_, err = r.Resolve("/elsewhere/file.jsonl")
	assert.ErrorIs(t, err, ErrUnresolved)

	resolved, err = r.Resolve(filepath.Join(projectsDir, "-gone-forever-q7", "s.jsonl"))
	require.NoError(t, err, "unverified folders fall back to naive substitution")
	assert.Equal(t, "/gone/forever/q7", resolved)
}

func TestClaudeResolverUnverifiableFolder(t *testing.T) {
	projectsDir := t.TempDir()
	project := filepath.Join(t.TempDir(), "my_proj.v2")
	require.NoError(t, os.MkdirAll(project, 0755))
	folder := filepath.Join(projectsDir, EncodePathForClaude(project))

	// Mixed separators inside one component cannot be verified, but the
	// transcript is still attributed to the naive decode.
	_, verified := DecodeClaudeProjectPath(filepath.Base(folder))
	require.False(t, verified)

	r := NewCachedResolver(projectsDir, cache.DefaultConfig())
	resolved, err := r.Resolve(models.AgentTypeClaude, filepath.Join(folder, "cf568042-7147-4fba-a2ca-c6a646581260.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(project), "my", "proj", "v2"), resolved)
	assert.Equal(t, 0, r.Stats().Size, "unverified decodes are not cached")
}

func writeRollout(t *testing.T, dir, name, firstLine string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(firstLine+"\n{\"type\":\"response_item\"}\n"), 0644))
	return path
}

func TestCodexResolver(t *testing.T) {
	dir := t.TempDir()
	project := t.TempDir()

	t.Run("session_meta cwd", func(t *testing.T) {
		path := writeRollout(t, dir, "ok.jsonl", `{"type":"session_meta","payload":{"cwd":"`+project+`"}}`)
		resolved, err := CodexResolver{}.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, project, resolved)
	})

	t.Run("first record of another type", func(t *testing.T) {
		path := writeRollout(t, dir, "other.jsonl", `{"type":"response_item","payload":{}}`)
		_, err := CodexResolver{}.Resolve(path)
		assert.ErrorIs(t, err, ErrUnresolved)
	})

	t.Run("cwd no longer exists", func(t *testing.T) {
		path := writeRollout(t, dir, "gone.jsonl", `{"type":"session_meta","payload":{"cwd":"/no/such/dir/zz9"}}`)
		_, err := CodexResolver{}.Resolve(path)
		assert.ErrorIs(t, err, ErrUnresolved)
	})

	t.Run("malformed first line", func(t *testing.T) {
		path := writeRollout(t, dir, "bad.jsonl", `{"type":`)
		_, err := CodexResolver{}.Resolve(path)
		assert.ErrorIs(t, err, ErrUnresolved)
	})

	t.Run("first line larger than a megabyte", func(t *testing.T) {
		instructions := strings.Repeat("x", 3<<20)
		path := writeRollout(t, dir, "big.jsonl", `{"type":"session_meta","payload":{"cwd":"`+project+`","instructions":"`+instructions+`"}}`)
		resolved, err := CodexResolver{}.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, project, resolved)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := CodexResolver{}.Resolve(filepath.Join(dir, "nope.jsonl"))
		assert.ErrorIs(t, err, ErrUnresolved)
	})
}

func TestCachedResolverCachesVerifiedOnly(t *testing.T) {
	projectsDir := t.TempDir()
	project := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(project, 0755))
	folder := filepath.Join(projectsDir, EncodePathForClaude(project))

	r := NewCachedResolver(projectsDir, cache.DefaultConfig())

	first, err := r.Resolve(models.AgentTypeClaude, filepath.Join(folder, "a.jsonl"))
	require.NoError(t, err)
	second, err := r.Resolve(models.AgentTypeClaude, filepath.Join(folder, "b.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), r.Stats().Hits)

	missing, err := r.Resolve(models.AgentTypeClaude, filepath.Join(projectsDir, "-missing-zz9", "a.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, "/missing/zz9", missing)
	assert.Equal(t, 1, r.Stats().Size)

	require.NoError(t, os.RemoveAll(project))
	_, err = r.Resolve(models.AgentTypeClaude, filepath.Join(folder, "c.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Stats().Size, "stale cache entries are re-verified")

	_, err = r.Resolve(models.AgentType("cursor"), "x")
	assert.ErrorIs(t, err, ErrUnresolved)
}
