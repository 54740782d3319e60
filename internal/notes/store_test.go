package notes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanpelt/monorail/internal/models"
)

type fakeCondenser struct {
	summary string
	err     error
	inputs  []string
}

func (f *fakeCondenser) Summarize(_ context.Context, text string, _ int) (string, error) {
	f.inputs = append(f.inputs, text)
	return f.summary, f.err
}

func newTestStore(t *testing.T, opts ArchiveOptions) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "myproj"), opts)
	s.now = func() time.Time { return at }
	return s
}

func fill(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		result := &models.ExtractionResult{
			StatedGoal:   fmt.Sprintf("goal %d", i),
			WhatHappened: []string{fmt.Sprintf("step %d", i)},
		}
		require.NoError(t, s.ApplyExtraction(fmt.Sprintf("s%02d", i), at.Add(time.Duration(i)*time.Minute), "claude", result))
	}
}

func TestStoreCreateIfAbsent(t *testing.T) {
	s := newTestStore(t, ArchiveOptions{})
	assert.False(t, s.Exists())

	doc, err := s.CreateIfAbsent()
	require.NoError(t, err)
	assert.Equal(t, "myproj", doc.Project)
	assert.True(t, s.Exists())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Title+"\n_Project: myproj_\n"))

	again, err := s.CreateIfAbsent()
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestStoreApplyExtractionAndReaders(t *testing.T) {
	s := newTestStore(t, ArchiveOptions{})
	s.Revision = func() string { return "deadbee" }

	assert.Equal(t, "", s.CurrentTask())
	assert.Nil(t, s.LooseThreads(5))

	require.NoError(t, s.ApplyExtraction("s1", at, "claude", sampleResult()))
	assert.Equal(t, "Fix flaky login test", s.CurrentTask())
	assert.Equal(t, []string{"Check CI timeout", "Remove debug logging"}, s.LooseThreads(5))

	last, ok := s.LastSessionTime()
	require.True(t, ok)
	assert.True(t, at.Equal(last))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "deadbee", doc.Revision)

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), "*.tmp"))
	assert.Empty(t, matches, "no temp files are left behind")
}

func TestStoreMigratesLegacyNotes(t *testing.T) {
	s := newTestStore(t, ArchiveOptions{})
	legacy := filepath.Join(filepath.Dir(s.Path()), LegacyFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(legacy), 0755))
	require.NoError(t, os.WriteFile(legacy, []byte(New("myproj", at).Render()), 0644))

	assert.True(t, s.Exists())
	assert.NoFileExists(t, legacy)
}

func TestArchivePreservesRecency(t *testing.T) {
	s := newTestStore(t, ArchiveOptions{MaxEntries: 15, MaxLines: 10000, KeepRecent: 10, SummaryMaxTokens: 500})
	fill(t, s, 20)

	before, err := s.Load()
	require.NoError(t, err)
	recent := append([]Entry(nil), before.Entries[:10]...)

	condenser := &fakeCondenser{summary: "Early work on goals 0 through 9."}
	changed, err := s.ArchiveIfOversized(context.Background(), condenser)
	require.NoError(t, err)
	assert.True(t, changed)

	after, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, recent, after.Entries)
	require.NotNil(t, after.History)
	assert.Equal(t, 10, after.History.Archived)
	assert.Equal(t, "Early work on goals 0 through 9.", after.History.Text)
	assert.Equal(t, "goal 19", after.Context.CurrentTask)

	require.Len(t, condenser.inputs, 1)
	assert.Contains(t, condenser.inputs[0], "### s00 |")
	assert.NotContains(t, condenser.inputs[0], "### s10 |")

	archives, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ArchiveDir, "*.md"))
	assert.Len(t, archives, 1)

	content, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	changed, err = s.ArchiveIfOversized(context.Background(), condenser)
	require.NoError(t, err)
	assert.False(t, changed)
	again, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, content, again, "under the ceiling archival leaves the file byte-identical")
	assert.Len(t, condenser.inputs, 1)
}

func TestArchiveMergesExistingSummary(t *testing.T) {
	s := newTestStore(t, ArchiveOptions{MaxEntries: 3, MaxLines: 10000, KeepRecent: 2})
	fill(t, s, 4)
	condenser := &fakeCondenser{summary: "first"}
	_, err := s.ArchiveIfOversized(context.Background(), condenser)
	require.NoError(t, err)

	fill(t, s, 2)
	condenser.summary = "merged"
	changed, err := s.ArchiveIfOversized(context.Background(), condenser)
	require.NoError(t, err)
	assert.True(t, changed)

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, doc.History.Archived)
	assert.Equal(t, "merged", doc.History.Text)
	assert.Contains(t, condenser.inputs[1], "Existing historical summary:\nfirst")
}

func TestArchiveFailureIsNoOp(t *testing.T) {
	s := newTestStore(t, ArchiveOptions{MaxEntries: 2, MaxLines: 10000, KeepRecent: 1})
	fill(t, s, 4)
	content, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	changed, err := s.ArchiveIfOversized(context.Background(), &fakeCondenser{err: errors.New("boom")})
	assert.Error(t, err)
	assert.False(t, changed)

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, content, after)
}

func TestArchiveTriggeredByLineCount(t *testing.T) {
	s := newTestStore(t, ArchiveOptions{MaxEntries: 100, MaxLines: 40, KeepRecent: 1})
	fill(t, s, 4)

	changed, err := s.ArchiveIfOversized(context.Background(), &fakeCondenser{summary: "short"})
	require.NoError(t, err)
	assert.True(t, changed)

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, doc.Entries, 1)
}

func TestArchiveSummaryWithHeadings(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{
			name:    "unknown heading",
			summary: "Overview of work.\n\n## Key decisions\n- chose X",
			want:    "Overview of work.\n\n\\## Key decisions\n- chose X",
		},
		{
			name:    "structural heading",
			summary: "Recap\n## Session Log\n- earlier",
			want:    "Recap\n\\## Session Log\n- earlier",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, ArchiveOptions{MaxEntries: 3, MaxLines: 10000, KeepRecent: 2})
			fill(t, s, 4)

			changed, err := s.ArchiveIfOversized(context.Background(), &fakeCondenser{summary: tt.summary})
			require.NoError(t, err)
			require.True(t, changed)

			doc, err := s.Load()
			require.NoError(t, err)
			require.NotNil(t, doc.History)
			assert.Equal(t, tt.want, doc.History.Text)
			assert.Empty(t, doc.Other)
			assert.Len(t, doc.Entries, 2)

			content, err := os.ReadFile(s.Path())
			require.NoError(t, err)
			assert.Equal(t, string(content), doc.Render(), "the archived document round-trips")

			result := &models.ExtractionResult{StatedGoal: "after archive"}
			require.NoError(t, s.ApplyExtraction("s99", at.Add(time.Hour), "claude", result))
			assert.Equal(t, "after archive", s.CurrentTask())
		})
	}
}

func TestArchiveWithoutDocument(t *testing.T) {
	s := newTestStore(t, ArchiveOptions{MaxEntries: 1})
	changed, err := s.ArchiveIfOversized(context.Background(), &fakeCondenser{})
	require.NoError(t, err)
	assert.False(t, changed)
}
