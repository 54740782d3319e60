package summarizer

import (
	"regexp"
	"strings"

	"github.com/vanpelt/monorail/internal/models"
)

var (
	statedGoalRe = regexp.MustCompile(`(?s)STATED_GOAL:\s*(.+?)(?:\n\n|\nWHAT_HAPPENED|$)`)
	leftOffRe    = regexp.MustCompile(`(?s)LEFT_OFF_AT:\s*(.+?)(?:\n\n|\nLOOSE_THREADS|$)`)
	completeRe   = regexp.MustCompile(`(?i)SESSION_COMPLETE:\s*(true|false)`)
	statusRe     = regexp.MustCompile(`STATUS:[ \t]*(.+)`)
	vibeRe       = regexp.MustCompile(`VIBE:\s*(\w+)`)
	bulletRe     = regexp.MustCompile(`- (.+)`)
)

// listSection matches a label followed by a run of "- " bullet lines.
func listSection(label string) *regexp.Regexp {
	return regexp.MustCompile(label + `:[ \t]*\n((?:[ \t]*- .+\n?)+)`)
}

var (
	whatHappenedRe = listSection("WHAT_HAPPENED")
	looseThreadsRe = listSection("LOOSE_THREADS")
	artifactsRe    = listSection("KEY_ARTIFACTS")
)

// ParseExtraction reads the labelled sections of a model response. Missing
// sections are left empty.
func ParseExtraction(response string) *models.ExtractionResult {
	response = strings.ReplaceAll(response, "\r\n", "\n")
	result := &models.ExtractionResult{RawResponse: response}

	if m := statedGoalRe.FindStringSubmatch(response); m != nil {
		result.StatedGoal = strings.TrimSpace(m[1])
	}
	result.WhatHappened = bullets(whatHappenedRe, response)
	if m := leftOffRe.FindStringSubmatch(response); m != nil {
		result.LeftOffAt = strings.TrimSpace(m[1])
	}
	result.LooseThreads = bullets(looseThreadsRe, response)

	for _, line := range bullets(artifactsRe, response) {
		path, desc, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		result.KeyArtifacts = append(result.KeyArtifacts, models.Artifact{
			Path:        strings.TrimSpace(path),
			Description: strings.TrimSpace(desc),
		})
	}

	if m := completeRe.FindStringSubmatch(response); m != nil {
		result.SessionComplete = strings.EqualFold(m[1], "true")
	}
	if m := statusRe.FindStringSubmatch(response); m != nil {
		result.Status = strings.TrimSpace(m[1])
	}
	if m := vibeRe.FindStringSubmatch(response); m != nil {
		result.Vibe = strings.ToLower(m[1])
	}
	return result
}

func bullets(section *regexp.Regexp, response string) []string {
	m := section.FindStringSubmatch(response)
	if m == nil {
		return nil
	}
	var items []string
	for _, item := range bulletRe.FindAllStringSubmatch(m[1], -1) {
		if text := strings.TrimSpace(item[1]); text != "" && !isPlaceholder(text) {
			items = append(items, text)
		}
	}
	return items
}

// isPlaceholder filters template echoes such as "[item]" or "None".
func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "none", "n/a", "[item]":
		return true
	}
	return false
}
