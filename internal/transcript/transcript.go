// Package transcript flattens backend JSONL records into "role: text" lines.
package transcript

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
)

// MaxMessageChars bounds the text kept from any single message.
const MaxMessageChars = 500

// Parser converts complete JSONL lines into readable lines.
type Parser func(lines []string) []string

// ForBackend returns the parser for a tool backend.
func ForBackend(backend models.AgentType) Parser {
	switch backend {
	case models.AgentTypeCodex:
		return ParseCodex
	default:
		return ParseClaude
	}
}

// ParseClaude reads Claude Code records. message.content is either a string
// or an array of text, tool_use and tool_result items.
func ParseClaude(lines []string) []string {
	var out []string
	for _, line := range lines {
		record, ok := parseLine(line)
		if !ok {
			continue
		}

		message := record.Get("message")
		role := message.Get("role").String()
		text := claudeContent(message.Get("content"))
		if role == "" || text == "" {
			continue
		}
		out = append(out, format(role, text))
	}
	return out
}

func claudeContent(content gjson.Result) string {
	switch {
	case content.Type == gjson.String:
		return content.String()
	case content.IsArray():
		var parts []string
		content.ForEach(func(_, item gjson.Result) bool {
			if item.Type == gjson.String {
				parts = append(parts, item.String())
				return true
			}
			switch item.Get("type").String() {
			case "text":
				parts = append(parts, item.Get("text").String())
			case "tool_use":
				name := item.Get("name").String()
				if name == "" {
					name = "unknown"
				}
				parts = append(parts, "[Tool: "+name+"]")
			case "tool_result":
				parts = append(parts, "[Tool result]")
			}
			return true
		})
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// ParseCodex reads Codex rollout records. Only response_item records carry
// conversation text; their payload content holds input_text and text items.
func ParseCodex(lines []string) []string {
	var out []string
	for _, line := range lines {
		record, ok := parseLine(line)
		if !ok {
			continue
		}
		if record.Get("type").String() != "response_item" {
			continue
		}

		payload := record.Get("payload")
		role := payload.Get("role").String()

		var parts []string
		payload.Get("content").ForEach(func(_, item gjson.Result) bool {
			switch item.Get("type").String() {
			case "input_text", "text", "output_text":
				parts = append(parts, item.Get("text").String())
			}
			return true
		})

		text := strings.Join(parts, " ")
		if role == "" || text == "" {
			continue
		}
		out = append(out, format(role, text))
	}
	return out
}

func parseLine(line string) (gjson.Result, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return gjson.Result{}, false
	}
	if !gjson.Valid(line) {
		logger.Debugf("📄 Skipping malformed transcript record (%d bytes)", len(line))
		return gjson.Result{}, false
	}
	return gjson.Parse(line), true
}

func format(role, text string) string {
	return role + ": " + Truncate(text, MaxMessageChars)
}

// Truncate keeps at most max characters of s.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
