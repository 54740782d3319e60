package notes

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanpelt/monorail/internal/models"
)

var at = time.Date(2025, 1, 2, 14, 15, 0, 0, time.Local)

func sampleResult() *models.ExtractionResult {
	return &models.ExtractionResult{
		StatedGoal:   "Fix flaky login test",
		WhatHappened: []string{"Found race in session cache", "Added mutex"},
		LeftOffAt:    "Running the full suite",
		LooseThreads: []string{"Check CI timeout", "Remove debug logging"},
		KeyArtifacts: []models.Artifact{{Path: "auth/cache.go", Description: "session cache"}},
	}
}

func TestNewDocumentRendersInitialLayout(t *testing.T) {
	doc := New("monorail", at)
	want := `# monorail notes
_Project: monorail_
_Last updated: 2025-01-02 14:15_

## Active Context

**Current task:** Not set
**Blockers:** None
**Priority notes:** None

## Session Log

`
	assert.Equal(t, want, doc.Render())
}

func TestApplyExtractionFormatsEntry(t *testing.T) {
	doc := New("monorail", at)
	doc.ApplyExtraction("a7b3f-20250102-1415", at.Add(time.Hour), "claude", sampleResult())

	rendered := doc.Render()
	assert.Contains(t, rendered, "**Current task:** Fix flaky login test\n")
	assert.Contains(t, rendered, "_Last updated: 2025-01-02 15:15_\n")
	assert.Contains(t, rendered, `## Session Log

### a7b3f-20250102-1415 | 2025-01-02 15:15 | claude

**Stated goal:** Fix flaky login test

**What happened:**
- Found race in session cache
- Added mutex

**Left off at:**
Running the full suite

**Loose threads:**
- Check CI timeout
- Remove debug logging

**Key artifacts:**
- auth/cache.go: session cache

---

`)
}

func TestApplyExtractionWithoutGoalKeepsTask(t *testing.T) {
	doc := New("p", at)
	doc.ApplyExtraction("s1", at, "claude", sampleResult())
	doc.ApplyExtraction("s2", at, "codex", &models.ExtractionResult{})

	assert.Equal(t, "Fix flaky login test", doc.Context.CurrentTask)
	require.Len(t, doc.Entries, 2)
	assert.Equal(t, "s2", doc.Entries[0].SessionID, "newest entry first")
	assert.Contains(t, doc.Entries[0].Body, "**Stated goal:** Not stated")
	assert.Contains(t, doc.Entries[0].Body, "**Left off at:**\nNot specified\n")
	assert.NotContains(t, doc.Entries[0].Body, "Key artifacts")
}

func TestRepeatedApplyKeepsSingleStructuralHeaders(t *testing.T) {
	doc := New("p", at)
	for i := 0; i < 5; i++ {
		parsed, err := Parse(doc.Render())
		require.NoError(t, err)
		parsed.ApplyExtraction(fmt.Sprintf("s%d", i), at.Add(time.Duration(i)*time.Minute), "claude", sampleResult())
		doc = parsed
	}

	rendered := doc.Render()
	assert.Equal(t, 1, strings.Count(rendered, ActiveContextTitle))
	assert.Equal(t, 1, strings.Count(rendered, SessionLogTitle))
	assert.Len(t, doc.Entries, 5)
}

func TestParseRenderRoundTrip(t *testing.T) {
	doc := New("p", at)
	doc.Revision = "abc1234"
	doc.Context.Extra = []string{"- remember the staging env"}
	doc.History = &HistoricalSummary{Archived: 12, Text: "Built the watcher.\n\nThen the notes model."}
	doc.Other = []Section{{Heading: "## Decisions", Lines: []string{"- use fsnotify"}}}
	doc.ApplyExtraction("s1", at, "claude", sampleResult())
	doc.ApplyExtraction("s2", at, "codex", &models.ExtractionResult{StatedGoal: "Ship", LeftOffAt: "line one\n## not a heading"})

	rendered := doc.Render()
	parsed, err := Parse(rendered)
	require.NoError(t, err)

	assert.Equal(t, doc, parsed)
	assert.Equal(t, rendered, parsed.Render())
}

func TestParseFillsMissingSections(t *testing.T) {
	doc, err := Parse("# monorail notes\n_Project: p_\n")
	require.NoError(t, err)
	assert.Equal(t, "Not set", doc.Context.CurrentTask)
	assert.Empty(t, doc.Entries)
	assert.Contains(t, doc.Render(), SessionLogTitle)
}

func TestParseRejectsDuplicateSections(t *testing.T) {
	_, err := Parse(New("p", at).Render() + "## Session Log\n\n")
	assert.ErrorIs(t, err, ErrMalformed)

	dup := strings.Replace(New("p", at).Render(), SessionLogTitle, ActiveContextTitle+"\n\n"+SessionLogTitle, 1)
	_, err = Parse(dup)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLooseThreadsAndLastSessionTime(t *testing.T) {
	doc := New("p", at)
	_, ok := doc.LastSessionTime()
	assert.False(t, ok)

	doc.ApplyExtraction("old", at, "claude", &models.ExtractionResult{LooseThreads: []string{"old thread"}})
	doc.ApplyExtraction("new", at.Add(2*time.Hour), "claude", sampleResult())

	assert.Equal(t, []string{"Check CI timeout", "Remove debug logging", "old thread"}, doc.LooseThreads(5))
	assert.Equal(t, []string{"Check CI timeout"}, doc.LooseThreads(1))

	last, ok := doc.LastSessionTime()
	require.True(t, ok)
	assert.True(t, at.Add(2*time.Hour).Equal(last))
}

func TestValuesCannotForgeMarkers(t *testing.T) {
	doc := New("p", at)
	doc.ApplyExtraction("s1", at, "claude", &models.ExtractionResult{
		StatedGoal:   "goal\n## Session Log",
		WhatHappened: []string{"did\n### x | 2025-01-01 00:00 | y"},
	})

	parsed, err := Parse(doc.Render())
	require.NoError(t, err)
	assert.Len(t, parsed.Entries, 1)
	assert.Equal(t, "goal ## Session Log", parsed.Context.CurrentTask)
}
