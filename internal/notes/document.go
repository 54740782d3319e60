// Package notes maintains the per-project monorail-notes.md document.
package notes

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vanpelt/monorail/internal/models"
)

// Structural markers shared by every reader and writer of the document.
const (
	Title              = "# monorail notes"
	ActiveContextTitle = "## Active Context"
	HistoryTitle       = "## Historical Summary"
	SessionLogTitle    = "## Session Log"

	// TimestampLayout is used for the header stamp and entry headers.
	TimestampLayout = "2006-01-02 15:04"

	// UnsetTask is the current task of a document no session has named yet.
	UnsetTask = "Not set"

	currentTaskLabel   = "**Current task:** "
	blockersLabel      = "**Blockers:** "
	priorityNotesLabel = "**Priority notes:** "
)

// ErrMalformed is returned when a document repeats a structural section.
var ErrMalformed = errors.New("malformed notes document")

var (
	entryHeaderRe  = regexp.MustCompile(`^### (\S+) \| (\d{4}-\d{2}-\d{2} \d{2}:\d{2}) \| (.*)$`)
	archivedRe     = regexp.MustCompile(`^_Sessions archived: (\d+)_$`)
	headerFieldRe  = regexp.MustCompile(`^_(Project|Last updated|Revision): (.*)_$`)
	looseThreadsRe = regexp.MustCompile(`(?m)^\*\*Loose threads:\*\*\n((?:- .+\n?)+)`)
)

// ActiveContext is the free-text block describing current work.
type ActiveContext struct {
	CurrentTask   string
	Blockers      string
	PriorityNotes string
	// Extra holds any other lines a person added, kept verbatim.
	Extra []string
}

// HistoricalSummary condenses archived session entries.
type HistoricalSummary struct {
	Archived int
	Text     string
}

// Entry is one session log entry. Body is everything after the header line,
// kept verbatim so entries survive any number of rewrites unchanged.
type Entry struct {
	SessionID string
	Timestamp string
	Tool      string
	Body      string
}

// Time parses the entry timestamp in local time.
func (e Entry) Time() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, e.Timestamp, time.Local)
}

// Render returns the entry exactly as it appears in the document.
func (e Entry) Render() string {
	return fmt.Sprintf("### %s | %s | %s\n%s", e.SessionID, e.Timestamp, e.Tool, e.Body)
}

// Section is a heading the tool does not manage, kept verbatim.
type Section struct {
	Heading string
	Lines   []string
}

// Document is the parsed form of monorail-notes.md.
type Document struct {
	Project     string
	LastUpdated string
	Revision    string
	HeaderExtra []string

	Context ActiveContext
	History *HistoricalSummary
	Other   []Section
	Entries []Entry
}

// New returns the initial document for a project.
func New(project string, now time.Time) *Document {
	return &Document{
		Project:     project,
		LastUpdated: now.Format(TimestampLayout),
		Context: ActiveContext{
			CurrentTask:   UnsetTask,
			Blockers:      "None",
			PriorityNotes: "None",
		},
	}
}

// Parse reads a document. Missing sections are tolerated and filled in with
// defaults on the next render.
func Parse(content string) (*Document, error) {
	doc := &Document{}
	lines := strings.Split(content, "\n")

	var (
		heading    string
		body       []string
		seenTitles = map[string]bool{}
	)

	flush := func() error {
		switch heading {
		case "":
			doc.parseHeader(body)
		case ActiveContextTitle:
			doc.parseContext(body)
		case HistoryTitle:
			doc.History = parseHistory(body)
		case SessionLogTitle:
			doc.Entries = parseEntries(body)
		default:
			doc.Other = append(doc.Other, Section{Heading: heading, Lines: trimBlank(body)})
			return nil
		}
		if seenTitles[heading] {
			return fmt.Errorf("%w: %q appears more than once", ErrMalformed, heading)
		}
		seenTitles[heading] = true
		return nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") && heading != SessionLogTitle {
			if err := flush(); err != nil {
				return nil, err
			}
			heading = strings.TrimRight(line, " ")
			body = nil
			continue
		}
		if line == SessionLogTitle && heading == SessionLogTitle {
			return nil, fmt.Errorf("%w: %q appears more than once", ErrMalformed, SessionLogTitle)
		}
		body = append(body, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if !seenTitles[ActiveContextTitle] {
		doc.Context = New("", time.Time{}).Context
	}
	return doc, nil
}

func (d *Document) parseHeader(lines []string) {
	for _, line := range trimBlank(lines) {
		if line == Title {
			continue
		}
		if m := headerFieldRe.FindStringSubmatch(line); m != nil {
			switch m[1] {
			case "Project":
				d.Project = m[2]
			case "Last updated":
				d.LastUpdated = m[2]
			case "Revision":
				d.Revision = m[2]
			}
			continue
		}
		d.HeaderExtra = append(d.HeaderExtra, line)
	}
}

func (d *Document) parseContext(lines []string) {
	for _, line := range trimBlank(lines) {
		switch {
		case strings.HasPrefix(line, currentTaskLabel):
			d.Context.CurrentTask = strings.TrimPrefix(line, currentTaskLabel)
		case strings.HasPrefix(line, blockersLabel):
			d.Context.Blockers = strings.TrimPrefix(line, blockersLabel)
		case strings.HasPrefix(line, priorityNotesLabel):
			d.Context.PriorityNotes = strings.TrimPrefix(line, priorityNotesLabel)
		default:
			d.Context.Extra = append(d.Context.Extra, line)
		}
	}
}

func parseHistory(lines []string) *HistoricalSummary {
	lines = trimBlank(lines)
	history := &HistoricalSummary{}
	if len(lines) > 0 {
		if m := archivedRe.FindStringSubmatch(lines[0]); m != nil {
			history.Archived, _ = strconv.Atoi(m[1])
			lines = trimBlank(lines[1:])
		}
	}
	history.Text = strings.Join(lines, "\n")
	return history
}

func parseEntries(lines []string) []Entry {
	var (
		entries []Entry
		current *Entry
		body    []string
	)
	finish := func() {
		if current == nil {
			return
		}
		current.Body = strings.Join(body, "\n") + "\n"
		entries = append(entries, *current)
	}

	for i, line := range lines {
		if m := entryHeaderRe.FindStringSubmatch(line); m != nil {
			finish()
			current = &Entry{SessionID: m[1], Timestamp: m[2], Tool: m[3]}
			body = nil
			continue
		}
		if current == nil {
			continue
		}
		// The split on "\n" leaves one empty element after the final newline.
		if i == len(lines)-1 && line == "" {
			continue
		}
		body = append(body, line)
	}
	finish()
	return entries
}

// Render produces the markdown text of the document.
func (d *Document) Render() string {
	var b strings.Builder

	b.WriteString(Title + "\n")
	fmt.Fprintf(&b, "_Project: %s_\n", d.Project)
	fmt.Fprintf(&b, "_Last updated: %s_\n", d.LastUpdated)
	if d.Revision != "" {
		fmt.Fprintf(&b, "_Revision: %s_\n", d.Revision)
	}
	for _, line := range d.HeaderExtra {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + ActiveContextTitle + "\n\n")
	b.WriteString(currentTaskLabel + d.Context.CurrentTask + "\n")
	b.WriteString(blockersLabel + d.Context.Blockers + "\n")
	b.WriteString(priorityNotesLabel + d.Context.PriorityNotes + "\n")
	for _, line := range d.Context.Extra {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if d.History != nil {
		b.WriteString(HistoryTitle + "\n\n")
		fmt.Fprintf(&b, "_Sessions archived: %d_\n\n", d.History.Archived)
		if d.History.Text != "" {
			b.WriteString(d.History.Text + "\n\n")
		}
	}

	for _, section := range d.Other {
		b.WriteString(section.Heading + "\n\n")
		if len(section.Lines) > 0 {
			b.WriteString(strings.Join(section.Lines, "\n") + "\n\n")
		}
	}

	b.WriteString(SessionLogTitle + "\n\n")
	for _, entry := range d.Entries {
		b.WriteString(entry.Render())
	}
	return b.String()
}

// ApplyExtraction records a session: the current task is replaced only when
// the extraction stated a goal, the entry goes to the top of the log, and the
// last-updated stamp moves to at.
func (d *Document) ApplyExtraction(sessionID string, at time.Time, tool string, result *models.ExtractionResult) {
	if goal := strings.TrimSpace(result.StatedGoal); goal != "" {
		d.Context.CurrentTask = singleLine(goal)
	}

	stamp := at.Format(TimestampLayout)
	entry := Entry{
		SessionID: sessionID,
		Timestamp: stamp,
		Tool:      tool,
		Body:      formatEntryBody(result),
	}
	d.Entries = append([]Entry{entry}, d.Entries...)
	d.LastUpdated = stamp
}

func formatEntryBody(result *models.ExtractionResult) string {
	var b strings.Builder

	goal := singleLine(result.StatedGoal)
	if goal == "" {
		goal = "Not stated"
	}
	fmt.Fprintf(&b, "\n**Stated goal:** %s\n\n**What happened:**\n", goal)
	for _, item := range result.WhatHappened {
		fmt.Fprintf(&b, "- %s\n", singleLine(item))
	}

	leftOff := block(result.LeftOffAt)
	if leftOff == "" {
		leftOff = "Not specified"
	}
	fmt.Fprintf(&b, "\n**Left off at:**\n%s\n\n**Loose threads:**\n", leftOff)
	for _, thread := range result.LooseThreads {
		fmt.Fprintf(&b, "- %s\n", singleLine(thread))
	}

	if len(result.KeyArtifacts) > 0 {
		b.WriteString("\n**Key artifacts:**\n")
		for _, artifact := range result.KeyArtifacts {
			fmt.Fprintf(&b, "- %s: %s\n", artifact.Path, singleLine(artifact.Description))
		}
	}

	b.WriteString("\n---\n\n")
	return b.String()
}

// LineCount is the number of lines in the rendered document.
func (d *Document) LineCount() int {
	return strings.Count(d.Render(), "\n")
}

// LooseThreads returns up to limit loose threads, newest entries first.
func (d *Document) LooseThreads(limit int) []string {
	var threads []string
	for _, entry := range d.Entries {
		for _, m := range looseThreadsRe.FindAllStringSubmatch(entry.Body, -1) {
			for _, line := range strings.Split(m[1], "\n") {
				if item, ok := strings.CutPrefix(line, "- "); ok {
					threads = append(threads, strings.TrimSpace(item))
				}
			}
		}
		if limit > 0 && len(threads) >= limit {
			return threads[:limit]
		}
	}
	return threads
}

// LastSessionTime is the timestamp of the most recent entry.
func (d *Document) LastSessionTime() (time.Time, bool) {
	if len(d.Entries) == 0 {
		return time.Time{}, false
	}
	t, err := d.Entries[0].Time()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// singleLine keeps a value on one markdown line so it cannot forge markers.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// block keeps a multi-line value but escapes lines that would read as headings.
func block(s string) string {
	lines := trimBlank(strings.Split(strings.TrimSpace(s), "\n"))
	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.HasPrefix(line, "#") {
			line = "\\" + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func trimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
