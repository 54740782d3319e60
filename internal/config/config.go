// Package config holds the typed daemon configuration, its YAML persistence
// under ~/.monorail and the locations of the transcript directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Provider selects the summarization backend.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

// ExtractOn controls when accumulated session text is handed to the summarizer.
type ExtractOn struct {
	// MinNewBytes is the pending-text size that triggers an immediate hand-off.
	MinNewBytes int `yaml:"min_new_bytes"`
	// IdleSeconds is how long a session may be quiet before a forced hand-off.
	IdleSeconds int `yaml:"idle_seconds"`
}

// Config is the full daemon configuration.
type Config struct {
	Provider        Provider `yaml:"provider"`
	GeminiAPIKey    string   `yaml:"gemini_api_key"`
	GeminiModel     string   `yaml:"gemini_model"`
	AnthropicAPIKey string   `yaml:"anthropic_api_key"`
	AnthropicModel  string   `yaml:"anthropic_model"`

	PollIntervalSeconds       int       `yaml:"poll_interval_seconds"`
	ExtractOn                 ExtractOn `yaml:"extract_on"`
	SessionGapSeconds         int       `yaml:"session_gap_seconds"`
	MinExtractIntervalSeconds int       `yaml:"min_extract_interval_seconds"`
	EndPhrases                []string  `yaml:"end_phrases"`

	MaxSessionsBeforeArchive int `yaml:"max_sessions_before_archive"`
	MaxLinesBeforeArchive    int `yaml:"max_lines_before_archive"`
	KeepRecentSessions       int `yaml:"keep_recent_sessions"`
	ArchiveSummaryMaxTokens  int `yaml:"archive_summary_max_tokens"`

	ClaudeProjectsDir string `yaml:"claude_projects_dir,omitempty"`
	CodexSessionsDir  string `yaml:"codex_sessions_dir,omitempty"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Provider:       ProviderGemini,
		GeminiModel:    "gemini-2.5-flash-lite",
		AnthropicModel: "claude-3-5-haiku-latest",

		PollIntervalSeconds: 30,
		ExtractOn: ExtractOn{
			MinNewBytes: 500,
			IdleSeconds: 60,
		},
		SessionGapSeconds:         30 * 60,
		MinExtractIntervalSeconds: 30,
		EndPhrases:                []string{"/exit", "/quit"},

		MaxSessionsBeforeArchive: 20,
		MaxLinesBeforeArchive:    600,
		KeepRecentSessions:       10,
		ArchiveSummaryMaxTokens:  500,
	}
}

// Load reads the YAML file at path and fills unset fields from Default. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			cfg.fillDirs()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.merge(&fromFile)
	cfg.applyEnv()
	cfg.fillDirs()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration atomically.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to update config file: %w", err)
	}
	return nil
}

// HasAPIKey reports whether the selected provider has a key.
func (c *Config) HasAPIKey() bool {
	if c.Provider == ProviderAnthropic {
		return c.AnthropicAPIKey != ""
	}
	return c.GeminiAPIKey != ""
}

// Validate rejects values the watcher cannot run with.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("invalid provider %q (want %q or %q)", c.Provider, ProviderGemini, ProviderAnthropic)
	}

	positive := map[string]int{
		"poll_interval_seconds":       c.PollIntervalSeconds,
		"extract_on.min_new_bytes":    c.ExtractOn.MinNewBytes,
		"extract_on.idle_seconds":     c.ExtractOn.IdleSeconds,
		"session_gap_seconds":         c.SessionGapSeconds,
		"max_sessions_before_archive": c.MaxSessionsBeforeArchive,
		"max_lines_before_archive":    c.MaxLinesBeforeArchive,
		"keep_recent_sessions":        c.KeepRecentSessions,
		"archive_summary_max_tokens":  c.ArchiveSummaryMaxTokens,
	}
	keys := make([]string, 0, len(positive))
	for k := range positive {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if positive[k] <= 0 {
			return fmt.Errorf("%s must be positive", k)
		}
	}

	if c.MinExtractIntervalSeconds < 0 {
		return fmt.Errorf("min_extract_interval_seconds must not be negative")
	}
	if c.KeepRecentSessions >= c.MaxSessionsBeforeArchive {
		return fmt.Errorf("keep_recent_sessions (%d) must be below max_sessions_before_archive (%d)",
			c.KeepRecentSessions, c.MaxSessionsBeforeArchive)
	}
	return nil
}

// merge overlays every non-zero field of other onto c.
func (c *Config) merge(other *Config) {
	if other.Provider != "" {
		c.Provider = other.Provider
	}
	setString(&c.GeminiAPIKey, other.GeminiAPIKey)
	setString(&c.GeminiModel, other.GeminiModel)
	setString(&c.AnthropicAPIKey, other.AnthropicAPIKey)
	setString(&c.AnthropicModel, other.AnthropicModel)
	setString(&c.ClaudeProjectsDir, other.ClaudeProjectsDir)
	setString(&c.CodexSessionsDir, other.CodexSessionsDir)

	setInt(&c.PollIntervalSeconds, other.PollIntervalSeconds)
	setInt(&c.ExtractOn.MinNewBytes, other.ExtractOn.MinNewBytes)
	setInt(&c.ExtractOn.IdleSeconds, other.ExtractOn.IdleSeconds)
	setInt(&c.SessionGapSeconds, other.SessionGapSeconds)
	setInt(&c.MinExtractIntervalSeconds, other.MinExtractIntervalSeconds)
	setInt(&c.MaxSessionsBeforeArchive, other.MaxSessionsBeforeArchive)
	setInt(&c.MaxLinesBeforeArchive, other.MaxLinesBeforeArchive)
	setInt(&c.KeepRecentSessions, other.KeepRecentSessions)
	setInt(&c.ArchiveSummaryMaxTokens, other.ArchiveSummaryMaxTokens)

	if other.EndPhrases != nil {
		c.EndPhrases = other.EndPhrases
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.GeminiAPIKey == "" {
		c.GeminiAPIKey = key
	}
	if c.AnthropicAPIKey == "" {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			c.AnthropicAPIKey = key
		} else if key := os.Getenv("CLAUDE_API_KEY"); key != "" {
			c.AnthropicAPIKey = key
		}
	}
}

func (c *Config) fillDirs() {
	if c.ClaudeProjectsDir == "" {
		c.ClaudeProjectsDir = DefaultClaudeProjectsDir()
	}
	if c.CodexSessionsDir == "" {
		c.CodexSessionsDir = DefaultCodexSessionsDir()
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// PollInterval is the idle-check period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// IdleThreshold is the quiet period after which pending text is flushed.
func (c *Config) IdleThreshold() time.Duration {
	return time.Duration(c.ExtractOn.IdleSeconds) * time.Second
}

// SessionGap is the quiet period after which new content opens a new session.
func (c *Config) SessionGap() time.Duration {
	return time.Duration(c.SessionGapSeconds) * time.Second
}

// MinExtractInterval is the global spacing between extraction calls.
func (c *Config) MinExtractInterval() time.Duration {
	return time.Duration(c.MinExtractIntervalSeconds) * time.Second
}

// Get returns the value stored under a dotted YAML key such as
// "extract_on.idle_seconds".
func (c *Config) Get(key string) (string, error) {
	values, err := c.flatten()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return v, nil
}

// Set assigns a dotted YAML key from its string form and re-validates.
func (c *Config) Set(key, value string) error {
	values, err := c.flatten()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	tree := map[string]interface{}{}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	node := tree
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[interface{}]interface{})
		if !ok {
			return fmt.Errorf("config key %q is not a section", p)
		}
		converted := map[string]interface{}{}
		for k, v := range child {
			converted[fmt.Sprint(k)] = v
		}
		node[p] = converted
		node = converted
	}
	if key == "end_phrases" {
		node[parts[len(parts)-1]] = parseList(value)
	} else {
		node[parts[len(parts)-1]] = parseScalar(value)
	}

	data, err = yaml.Marshal(tree)
	if err != nil {
		return err
	}
	updated := Default()
	if err := yaml.Unmarshal(data, updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*c = *updated
	return nil
}

// Keys lists every settable key in sorted order.
func (c *Config) Keys() []string {
	values, _ := c.flatten()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Config) flatten() (map[string]string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var tree yaml.MapSlice
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	out := map[string]string{}
	flattenInto(out, "", tree)
	// omitempty keys still need to be settable
	for _, k := range []string{"claude_projects_dir", "codex_sessions_dir"} {
		if _, ok := out[k]; !ok {
			out[k] = ""
		}
	}
	return out, nil
}

func flattenInto(out map[string]string, prefix string, tree yaml.MapSlice) {
	for _, item := range tree {
		key := fmt.Sprint(item.Key)
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := item.Value.(type) {
		case yaml.MapSlice:
			flattenInto(out, key, v)
		case []interface{}:
			parts := make([]string, len(v))
			for i, p := range v {
				parts[i] = fmt.Sprint(p)
			}
			out[key] = strings.Join(parts, ",")
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}

func parseScalar(value string) interface{} {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}

func parseList(value string) []interface{} {
	list := []interface{}{}
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
