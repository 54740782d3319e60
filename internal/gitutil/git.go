// Package gitutil reads source-control state for a project directory.
package gitutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// shortHashLen matches git's default abbreviated object name.
const shortHashLen = 7

// FindGitRoot finds the git repository root starting from the given directory
func FindGitRoot(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}

	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil {
			// Check if it's a directory (normal repo) or file (worktree)
			if info.IsDir() {
				return dir, true
			}
			// Git worktree file contains "gitdir: path/to/git/dir"
			if content, err := os.ReadFile(gitDir); err == nil {
				if strings.HasPrefix(string(content), "gitdir: ") {
					return dir, true
				}
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

// Revision identifies the checked-out commit of a repository.
type Revision struct {
	Hash   string
	Branch string
}

// String renders "abc1234 (main)", or just the hash on a detached HEAD.
func (r Revision) String() string {
	if r.Branch == "" {
		return r.Hash
	}
	return fmt.Sprintf("%s (%s)", r.Hash, r.Branch)
}

// HeadRevision returns the HEAD commit of the repository containing dir.
func HeadRevision(dir string) (Revision, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Revision{}, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return Revision{}, fmt.Errorf("failed to get HEAD: %w", err)
	}

	rev := Revision{Hash: head.Hash().String()[:shortHashLen]}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, nil
}

// RevisionFunc returns a lookup suitable for stamping notes; it yields ""
// for directories that are not repositories or have no commits.
func RevisionFunc(dir string) func() string {
	return func() string {
		rev, err := HeadRevision(dir)
		if err != nil {
			return ""
		}
		return rev.String()
	}
}
