package models

// AgentType identifies the coding tool that produced a transcript. It picks
// the transcript parser and the project path resolution strategy.
type AgentType string

// Supported agent types
const (
	AgentTypeClaude AgentType = "claude"
	AgentTypeCodex  AgentType = "codex"
)

// DisplayName returns the user facing tool name.
func (a AgentType) DisplayName() string {
	switch a {
	case AgentTypeClaude:
		return "Claude Code"
	case AgentTypeCodex:
		return "Codex"
	}
	return string(a)
}
