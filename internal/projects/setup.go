package projects

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanpelt/monorail/internal/notes"
)

// SessionContextSection asks the coding agent to read the notes at the start
// of each session.
const SessionContextSection = `
## Session Context
At the start of each session, check context/monorail-notes.md for recent session history.
If it exists and is recent, start by briefly telling the user:
- What was being worked on
- Where it left off
- Any loose threads

Example: "I see you were working on the cart API and left off at the quantity update feature. There's a loose thread about a rounding bug. Want to continue there or start something new?"

If monorail-notes.md doesn't exist or is stale (>24 hours), skip this and start fresh.
`

const (
	sessionContextHeading = "## Session Context"
	gitignoreBlock        = "# Monorail\ncontext/\n"
)

// InitProject prepares dir for tracking: the context directory, the notes
// document, agent instructions and optionally a .gitignore entry. It returns a
// line per change made and is safe to run repeatedly.
func InitProject(dir string, gitignore bool) ([]string, error) {
	var actions []string

	contextDir := filepath.Join(dir, "context")
	if _, err := os.Stat(contextDir); os.IsNotExist(err) {
		if err := os.MkdirAll(contextDir, 0755); err != nil {
			return actions, fmt.Errorf("failed to create context directory: %w", err)
		}
		actions = append(actions, "Created context/")
	}

	if gitignore {
		action, err := ensureGitignore(filepath.Join(dir, ".gitignore"))
		if err != nil {
			return actions, err
		}
		if action != "" {
			actions = append(actions, action)
		}
	}

	for _, name := range []string{"CLAUDE.md", "agents.md"} {
		// agents.md is only amended, never created.
		action, err := appendSessionContext(filepath.Join(dir, name), name == "CLAUDE.md")
		if err != nil {
			return actions, err
		}
		if action != "" {
			actions = append(actions, action)
		}
	}

	store := notes.NewStore(dir, notes.ArchiveOptions{})
	if !store.Exists() {
		if _, err := store.CreateIfAbsent(); err != nil {
			return actions, err
		}
		actions = append(actions, "Created context/"+notes.FileName)
	}
	return actions, nil
}

func ensureGitignore(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(gitignoreBlock), 0644); err != nil {
			return "", fmt.Errorf("failed to create .gitignore: %w", err)
		}
		return "Created .gitignore", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read .gitignore: %w", err)
	}

	content := string(data)
	for _, line := range strings.Split(content, "\n") {
		switch strings.TrimSpace(line) {
		case "context/", "context", "/context", "/context/":
			return "", nil
		}
	}
	if err := appendFile(path, "\n"+gitignoreBlock); err != nil {
		return "", fmt.Errorf("failed to update .gitignore: %w", err)
	}
	return "Updated .gitignore", nil
}

func appendSessionContext(path string, create bool) (string, error) {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if !create {
			return "", nil
		}
		if err := os.WriteFile(path, []byte(strings.TrimLeft(SessionContextSection, "\n")), 0644); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", name, err)
		}
		return "Created " + name, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	if strings.Contains(string(data), sessionContextHeading) {
		return "", nil
	}
	if err := appendFile(path, SessionContextSection); err != nil {
		return "", fmt.Errorf("failed to update %s: %w", name, err)
	}
	return "Updated " + name, nil
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
