package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds the on-disk locations the tool reads and writes.
type Paths struct {
	Home         string // ~/.monorail
	ConfigFile   string
	PromptsDir   string
	InboxFile    string
	PidFile      string
	LogFile      string
	ActivityFile string
}

// legacyHomeName is the directory used before the rename to monorail.
const legacyHomeName = ".mm"

// DefaultPaths resolves the monorail home directory. MONORAIL_HOME overrides
// the default of ~/.monorail.
func DefaultPaths() Paths {
	home := os.Getenv("MONORAIL_HOME")
	if home == "" {
		home = filepath.Join(userHomeDir(), ".monorail")
	}
	return PathsAt(home)
}

// PathsAt lays out the standard files beneath home.
func PathsAt(home string) Paths {
	return Paths{
		Home:         home,
		ConfigFile:   filepath.Join(home, "config.yaml"),
		PromptsDir:   filepath.Join(home, "prompts"),
		InboxFile:    filepath.Join(home, "inbox.md"),
		PidFile:      filepath.Join(home, "daemon.pid"),
		LogFile:      filepath.Join(home, "daemon.log"),
		ActivityFile: filepath.Join(home, "activity.json"),
	}
}

// EnsureHome creates the home and prompts directories, migrating a legacy
// ~/.mm directory first when one exists.
func (p Paths) EnsureHome() error {
	migrateLegacyHome(p.Home)
	if err := ensureDir(p.Home); err != nil {
		return err
	}
	return ensureDir(p.PromptsDir)
}

func userHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			homeDir = "."
		}
	}
	return homeDir
}

// getClaudeConfigDir returns where Claude Code keeps its data. CLAUDE_CONFIG_DIR
// wins; on Linux an existing $XDG_CONFIG_HOME/claude (or ~/.config/claude) is
// preferred over ~/.claude.
func getClaudeConfigDir(homeDir string) string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if runtime.GOOS == "linux" {
		xdg := os.Getenv("XDG_CONFIG_HOME")
		if xdg == "" {
			xdg = filepath.Join(homeDir, ".config")
		}
		candidate := filepath.Join(xdg, "claude")
		if info, err := os.Stat(filepath.Join(candidate, "projects")); err == nil && info.IsDir() {
			return candidate
		}
	}
	return filepath.Join(homeDir, ".claude")
}

// DefaultClaudeProjectsDir returns the directory holding Claude Code's
// per-project transcript folders.
func DefaultClaudeProjectsDir() string {
	return filepath.Join(getClaudeConfigDir(userHomeDir()), "projects")
}

// DefaultCodexSessionsDir returns the directory holding Codex rollout files.
func DefaultCodexSessionsDir() string {
	if dir := os.Getenv("CODEX_HOME"); dir != "" {
		return filepath.Join(dir, "sessions")
	}
	return filepath.Join(userHomeDir(), ".codex", "sessions")
}

// migrateLegacyHome moves ~/.mm content into the new home. Failures are
// ignored; the legacy directory is simply left in place.
func migrateLegacyHome(home string) {
	legacy := filepath.Join(filepath.Dir(home), legacyHomeName)
	if filepath.Base(home) != ".monorail" {
		return
	}
	if _, err := os.Stat(legacy); err != nil {
		return
	}

	if _, err := os.Stat(home); os.IsNotExist(err) {
		_ = os.Rename(legacy, home)
		return
	}

	entries, err := os.ReadDir(legacy)
	if err != nil {
		return
	}
	for _, entry := range entries {
		target := filepath.Join(home, entry.Name())
		if _, err := os.Stat(target); err == nil {
			continue
		}
		_ = os.Rename(filepath.Join(legacy, entry.Name()), target)
	}
	_ = os.Remove(legacy)
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
