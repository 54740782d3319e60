package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanpelt/monorail/internal/models"
)

func TestParseClaude(t *testing.T) {
	lines := []string{
		`{"type":"user","message":{"role":"user","content":"fix the login bug"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Looking now."},{"type":"tool_use","name":"Read","input":{}}]}}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","content":"..."}]}}`,
		`{"type":"assistant","message":{"role":"assistant","content":["plain", {"type":"tool_use"}]}}`,
		`{"type":"summary","summary":"no message"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"thinking","thinking":"hmm"}]}}`,
	}

	assert.Equal(t, []string{
		"user: fix the login bug",
		"assistant: Looking now. [Tool: Read]",
		"user: [Tool result]",
		"assistant: plain [Tool: unknown]",
	}, ParseClaude(lines))
}

func TestParseClaudeSkipsMalformedLines(t *testing.T) {
	lines := []string{
		`{"message":{"role":"user","content":"one"}}`,
		`{"message":{"role":`,
		``,
		`   `,
		`{"message":{"role":"user","content":"two"}}`,
	}
	assert.Equal(t, []string{"user: one", "user: two"}, ParseClaude(lines))
}

func TestParseCodex(t *testing.T) {
	lines := []string{
		`{"type":"session_meta","payload":{"cwd":"/tmp/x"}}`,
		`{"type":"response_item","payload":{"role":"user","content":[{"type":"input_text","text":"add tests"}]}}`,
		`{"type":"response_item","payload":{"role":"assistant","content":[{"type":"text","text":"ok"},{"type":"output_text","text":"done"}]}}`,
		`{"type":"response_item","payload":{"type":"function_call","name":"shell"}}`,
		`{"type":"event_msg","payload":{"role":"user","content":[{"type":"input_text","text":"ignored"}]}}`,
		`not json`,
	}

	assert.Equal(t, []string{
		"user: add tests",
		"assistant: ok done",
	}, ParseCodex(lines))
}

func TestMessagesAreTruncated(t *testing.T) {
	long := strings.Repeat("é", 800)
	out := ParseClaude([]string{`{"message":{"role":"user","content":"` + long + `"}}`})
	if assert.Len(t, out, 1) {
		assert.Equal(t, "user: "+strings.Repeat("é", MaxMessageChars), out[0])
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}

func TestForBackend(t *testing.T) {
	codexLine := []string{`{"type":"response_item","payload":{"role":"user","content":[{"type":"input_text","text":"hi"}]}}`}
	assert.Equal(t, []string{"user: hi"}, ForBackend(models.AgentTypeCodex)(codexLine))
	assert.Empty(t, ForBackend(models.AgentTypeClaude)(codexLine))
}
