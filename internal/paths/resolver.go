package paths

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/vanpelt/monorail/internal/cache"
	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
)

// ErrUnresolved is returned when a transcript file cannot be mapped to a
// project directory. Callers drop the event and retry on the next one.
var ErrUnresolved = errors.New("project path unresolved")

// Resolver maps a raw transcript file to the working directory of its project.
type Resolver interface {
	Resolve(sessionFile string) (string, error)
}

// ClaudeResolver decodes the encoded project folder a Claude transcript lives under.
type ClaudeResolver struct {
	ProjectsDir string
}

// Resolve returns the decoded project path. When no decomposition exists on
// disk the naive substitution is returned.
func (r ClaudeResolver) Resolve(sessionFile string) (string, error) {
	decoded, _, err := r.lookup(sessionFile)
	return decoded, err
}

func (r ClaudeResolver) lookup(sessionFile string) (string, bool, error) {
	folder, err := r.projectFolder(sessionFile)
	if err != nil {
		return "", false, err
	}
	decoded, verified := DecodeClaudeProjectPath(folder)
	return decoded, verified, nil
}

// CacheKey is the encoded folder name, shared by every transcript in it.
func (r ClaudeResolver) CacheKey(sessionFile string) string {
	folder, err := r.projectFolder(sessionFile)
	if err != nil {
		return sessionFile
	}
	return folder
}

func (r ClaudeResolver) projectFolder(sessionFile string) (string, error) {
	rel, err := filepath.Rel(r.ProjectsDir, sessionFile)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s is outside %s", ErrUnresolved, sessionFile, r.ProjectsDir)
	}
	folder := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	if folder == "" || folder == "." {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, sessionFile)
	}
	return folder, nil
}

// CodexResolver reads the session_meta record Codex writes as the first line
// of each rollout file.
type CodexResolver struct{}

// Resolve extracts payload.cwd from the first record.
func (CodexResolver) Resolve(sessionFile string) (string, error) {
	file, err := os.Open(sessionFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	defer file.Close()

	line, err := readFirstLine(file)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	if !gjson.Valid(line) {
		return "", fmt.Errorf("%w: first record is not valid JSON", ErrUnresolved)
	}

	record := gjson.Parse(line)
	if record.Get("type").String() != "session_meta" {
		return "", fmt.Errorf("%w: first record is %q", ErrUnresolved, record.Get("type").String())
	}
	cwd := record.Get("payload.cwd").String()
	if cwd == "" {
		return "", fmt.Errorf("%w: session_meta has no cwd", ErrUnresolved)
	}
	if !exists(cwd) {
		return "", fmt.Errorf("%w: %s no longer exists", ErrUnresolved, cwd)
	}
	return cwd, nil
}

func (r CodexResolver) lookup(sessionFile string) (string, bool, error) {
	cwd, err := r.Resolve(sessionFile)
	return cwd, err == nil, err
}

// CacheKey is the file itself; each rollout records its own cwd.
func (CodexResolver) CacheKey(sessionFile string) string {
	return sessionFile
}

// readFirstLine reads the whole first record. session_meta embeds the full
// instructions text, so the line is not length capped.
func readFirstLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty file")
	}
	return line, nil
}

// keyedResolver is a Resolver that knows which files share a resolution and
// whether a resolution was verified on disk.
type keyedResolver interface {
	Resolver
	CacheKey(sessionFile string) string
	lookup(sessionFile string) (path string, verified bool, err error)
}

// CachedResolver dispatches on backend and memoizes verified resolutions.
type CachedResolver struct {
	backends map[models.AgentType]keyedResolver
	cache    *cache.LRU[string]
}

// NewCachedResolver builds a resolver for both backends.
func NewCachedResolver(claudeProjectsDir string, cfg cache.Config) *CachedResolver {
	return &CachedResolver{
		backends: map[models.AgentType]keyedResolver{
			models.AgentTypeClaude: ClaudeResolver{ProjectsDir: claudeProjectsDir},
			models.AgentTypeCodex:  CodexResolver{},
		},
		cache: cache.NewLRU[string](cfg),
	}
}

// Resolve maps sessionFile for the given backend. Only paths verified on disk
// are cached, so an unverified guess is decoded again on the next event. A
// cached path that has since disappeared is re-resolved.
func (c *CachedResolver) Resolve(backend models.AgentType, sessionFile string) (string, error) {
	resolver, ok := c.backends[backend]
	if !ok {
		return "", fmt.Errorf("%w: unknown backend %q", ErrUnresolved, backend)
	}

	key := string(backend) + ":" + resolver.CacheKey(sessionFile)
	if cached, ok := c.cache.Get(key); ok {
		if exists(cached) {
			return cached, nil
		}
		c.cache.Delete(key)
	}

	resolved, verified, err := resolver.lookup(sessionFile)
	if err != nil {
		logger.Debugf("🔍 Could not resolve %s transcript %s: %v", backend, sessionFile, err)
		return "", err
	}
	if !verified {
		logger.Debugf("🔍 Using unverified project path %s for %s", resolved, sessionFile)
		return resolved, nil
	}
	c.cache.Set(key, resolved)
	return resolved, nil
}

// Stats exposes cache counters for status output.
func (c *CachedResolver) Stats() cache.Stats {
	return c.cache.Stats()
}
